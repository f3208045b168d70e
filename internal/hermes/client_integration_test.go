//go:build integration

package hermes

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/chatexport/internal/transcript"
)

func skipWithoutNATS(t *testing.T) string {
	t.Helper()
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set, skipping integration test")
	}
	return url
}

func TestIntegration_PubSub(t *testing.T) {
	natsURL := skipWithoutNATS(t)
	ctx := context.Background()
	logger := slog.Default()

	client, err := NewClient(ctx, natsURL, os.Getenv("NATS_TOKEN"), logger)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer client.Close()

	received := make(chan BatchEvent, 1)

	err = client.Subscribe("swarm.chatexport.test.>", func(subject string, data []byte) {
		var ev BatchEvent
		json.Unmarshal(data, &ev)
		received <- ev
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	// Give subscription time to propagate
	time.Sleep(100 * time.Millisecond)

	err = client.Publish("swarm.chatexport.test.ping", BatchEvent{
		SessionID: "integration",
		Source:    "live",
		Records: []transcript.RawRecord{
			{Kind: transcript.KindMessage, AuthorText: "Alice", TimestampText: "10:02 AM", ContentText: "hello from integration test"},
		},
	})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case ev := <-received:
		if len(ev.Records) != 1 || ev.Records[0].ContentText != "hello from integration test" {
			t.Errorf("expected hello record, got %+v", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestIntegration_CloseDrainsDeliveredPasses(t *testing.T) {
	natsURL := skipWithoutNATS(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := NewClient(ctx, natsURL, os.Getenv("NATS_TOKEN"), slog.Default())
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}

	var handled int
	if err := client.Subscribe("swarm.chatexport.test.drain", func(_ string, _ []byte) {
		time.Sleep(50 * time.Millisecond)
		handled++
	}); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	for i := 0; i < 3; i++ {
		if err := client.Publish("swarm.chatexport.test.drain", BatchEvent{SessionID: "drain"}); err != nil {
			t.Fatalf("publish failed: %v", err)
		}
	}
	time.Sleep(20 * time.Millisecond)

	client.Close()
	if handled != 3 {
		t.Errorf("expected 3 handled passes after Close, got %d", handled)
	}
	if client.Connected() {
		t.Error("client should be closed")
	}
}
