package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"version"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if got := buf.String(); got != "chatexport version dev\n" {
		t.Errorf("unexpected output %q", got)
	}
}

func writePasses(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	passes := map[string]string{
		"pass-01.jsonl": `{"kind":"divider","contentText":"June 2, 2025"}
{"kind":"message","id":"m1","authorText":"Alice","timestampText":"10:02 AM","contentText":"hello"}
`,
		"pass-02.jsonl": `{"kind":"divider","contentText":"June 2, 2025"}
{"kind":"message","id":"m1","authorText":"Alice","timestampText":"10:02 AM","contentText":"hello"}

not json
{"kind":"message","id":"m2","authorText":"Bob","timestampText":"10:05 AM","contentText":"hi Alice"}
`,
		"notes.txt": "ignored",
	}
	for name, body := range passes {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestExportCommand_Text(t *testing.T) {
	dir := writePasses(t)

	out, err := runRoot(t, "export", dir, "--format", "text", "--tz", "UTC", "--policy", "earliest", "--output", "", "--file", "")
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	want := "--- Jun 2, 2025 ---\n\n" +
		"[Jun 2, 2025 10:02 AM] Alice: hello\n" +
		"[Jun 2, 2025 10:05 AM] Bob: hi Alice\n"
	if out != want {
		t.Errorf("unexpected transcript:\n%s\nwant:\n%s", out, want)
	}
}

func TestExportCommand_JSONFile(t *testing.T) {
	dir := writePasses(t)
	target := filepath.Join(t.TempDir(), "out.json")

	if _, err := runRoot(t, "export", dir, "--format", "json", "--tz", "UTC", "--policy", "most-complete", "--output", target, "--file", ""); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	var doc struct {
		SessionID    string `json:"session_id"`
		MessageCount int    `json:"message_count"`
		Messages     []struct {
			ID           string `json:"id"`
			ISOTimestamp string `json:"isoTimestamp"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if doc.SessionID == "" {
		t.Error("expected a session id")
	}
	if doc.MessageCount != 3 {
		t.Fatalf("expected 3 messages, got %d", doc.MessageCount)
	}
	if doc.Messages[2].ID != "m2" || doc.Messages[2].ISOTimestamp != "2025-06-02T10:05:00Z" {
		t.Errorf("unexpected last message %+v", doc.Messages[2])
	}
}

func TestExportCommand_SingleFile(t *testing.T) {
	dir := writePasses(t)

	out, err := runRoot(t, "export", "--file", filepath.Join(dir, "pass-01.jsonl"), "--format", "text", "--tz", "UTC", "--policy", "earliest", "--output", "")
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if strings.Contains(out, "Bob") {
		t.Errorf("single file export read other passes:\n%s", out)
	}
	if !strings.Contains(out, "Alice: hello") {
		t.Errorf("missing message:\n%s", out)
	}
}

func TestExportCommand_Errors(t *testing.T) {
	dir := writePasses(t)

	tests := []struct {
		name string
		args []string
	}{
		{"no input", []string{"export", "--format", "json", "--tz", "UTC", "--policy", "earliest", "--output", "", "--file", ""}},
		{"bad format", []string{"export", dir, "--format", "xml", "--tz", "UTC", "--policy", "earliest", "--output", "", "--file", ""}},
		{"bad policy", []string{"export", dir, "--format", "json", "--tz", "UTC", "--policy", "latest", "--output", "", "--file", ""}},
		{"bad timezone", []string{"export", dir, "--format", "json", "--tz", "Nowhere/Special", "--policy", "earliest", "--output", "", "--file", ""}},
		{"missing dir", []string{"export", filepath.Join(dir, "absent"), "--format", "json", "--tz", "UTC", "--policy", "earliest", "--output", "", "--file", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runRoot(t, tt.args...); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestExportCommand_OutputFailureIsReported(t *testing.T) {
	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("/dev/full not available")
	}
	dir := writePasses(t)

	_, err := runRoot(t, "export", dir, "--format", "json", "--tz", "UTC", "--policy", "earliest", "--output", "/dev/full", "--file", "")
	if err == nil {
		t.Error("expected an error when the output cannot be written")
	}
}
