package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/MikeSquared-Agency/chatexport/internal/transcript"
)

type Config struct {
	Port         int
	NatsURL      string
	NatsToken    string
	DatabaseURL  string
	LogLevel     string
	Timezone     string
	MergePolicy  string
	SlackToken   string
	SlackChannel string
	APIToken     string
}

// Load reads the configuration from the environment. A .env file in the
// working directory fills in variables that are not already set.
func Load() Config {
	_ = godotenv.Load(".env")

	return Config{
		Port:         envInt("CHATEXPORT_PORT", 8760),
		NatsURL:      envStr("NATS_URL", "nats://hermes:4222"),
		NatsToken:    envStr("NATS_TOKEN", ""),
		DatabaseURL:  envStr("DATABASE_URL", ""),
		LogLevel:     envStr("LOG_LEVEL", "info"),
		Timezone:     envStr("CHATEXPORT_TIMEZONE", "Local"),
		MergePolicy:  envStr("CHATEXPORT_MERGE_POLICY", "earliest"),
		SlackToken:   envStr("SLACK_BOT_TOKEN", ""),
		SlackChannel: envStr("SLACK_EXPORT_CHANNEL", ""),
		APIToken:     envStr("CHATEXPORT_API_TOKEN", ""),
	}
}

// Location resolves Timezone. Unknown zones return time.Local with an error
// for the caller to log.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Policy resolves MergePolicy. Unknown names return PolicyEarliest and false.
func (c Config) Policy() (transcript.Policy, bool) {
	return transcript.ParsePolicy(c.MergePolicy)
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
