package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func run(t *testing.T, in string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(in))
	err := cmd.Execute()
	return out.String(), err
}

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ROUTINE_DB_PATH", filepath.Join(t.TempDir(), "routine.db"))
	t.Setenv("ROUTINE_LOG_LEVEL", "error")
	t.Setenv("ROUTINE_VOICE", "")
}

func TestSayAndList(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "", "say", "set", "alarm", "for", "7", "AM", "tomorrow")
	if err != nil {
		t.Fatalf("say: %v", err)
	}
	if !strings.HasPrefix(out, "Alarm set for") {
		t.Errorf("say output = %q", out)
	}

	out, err = run(t, "", "list", "--view", "alarms")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "07:00") || !strings.Contains(out, "Alarm") {
		t.Errorf("list output = %q", out)
	}
}

func TestSayUnparseable(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "", "say", "set alarm for breakfast")
	if err == nil {
		t.Error("expected error for unparseable command")
	}
	if !strings.HasPrefix(out, "Could not understand the time") {
		t.Errorf("output = %q", out)
	}
}

func TestSayUnsuccessfulOutcomesFail(t *testing.T) {
	setupEnv(t)

	tests := []struct {
		text   string
		status string
	}{
		{"set alarm for breakfast", "Could not understand the time"},
		{"delete alarm for 9 AM", "Could not find alarm for that time"},
		{"what's the weather", "Command not recognized"},
	}
	for _, tt := range tests {
		out, err := run(t, "", "say", tt.text)
		if err == nil {
			t.Errorf("say %q: expected error", tt.text)
		}
		if !strings.HasPrefix(out, tt.status) {
			t.Errorf("say %q: output = %q, want prefix %q", tt.text, out, tt.status)
		}
	}
}

func TestREPLStopsOnCancel(t *testing.T) {
	setupEnv(t)

	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cmd := newRootCmd()
	cmd.SetArgs([]string{"repl"})
	cmd.SetOut(io.Discard)
	cmd.SetIn(pr)

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	// Two lines: the second is read while the REPL is no longer receiving.
	go func() {
		io.WriteString(pw, "show alarms\nshow alarms\n")
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("repl: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("repl did not return after cancel")
	}
}

func TestSayVoiceDisabled(t *testing.T) {
	setupEnv(t)
	t.Setenv("ROUTINE_VOICE", "false")

	if _, err := run(t, "", "say", "set alarm for 7 AM"); err == nil {
		t.Error("expected error with voice disabled")
	}
}

func TestAddListRm(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "", "add", "--title", "Dentist", "--kind", "meeting", "--date", "2030-05-01", "--time", "09:30")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !strings.HasPrefix(out, `Added "Dentist"`) {
		t.Errorf("add output = %q", out)
	}
	id := strings.SplitN(strings.SplitN(out, "(", 2)[1], ")", 2)[0]

	out, _ = run(t, "", "list")
	if !strings.Contains(out, id) || !strings.Contains(out, "2030-05-01 09:30") {
		t.Errorf("list output = %q", out)
	}

	if _, err := run(t, "", "rm", id); err != nil {
		t.Fatalf("rm: %v", err)
	}
	if _, err := run(t, "", "rm", id); err == nil {
		t.Error("second rm should fail")
	}

	out, _ = run(t, "", "list")
	if strings.TrimSpace(out) != "No items" {
		t.Errorf("list after rm = %q", out)
	}
}

func TestAddValidation(t *testing.T) {
	setupEnv(t)

	if _, err := run(t, "", "add", "--kind", "party", "--time", "09:00"); err == nil {
		t.Error("expected error for bad kind")
	}
	if _, err := run(t, "", "add", "--time", "9am"); err == nil {
		t.Error("expected error for bad time")
	}
	if _, err := run(t, "", "add"); err == nil {
		t.Error("expected error without --time")
	}
}

func TestREPL(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "remind me to stretch at 11:45 pm\n\nshow alarms\n", "repl")
	if err != nil {
		t.Fatalf("repl: %v", err)
	}
	if !strings.Contains(out, `Reminder set: "stretch"`) {
		t.Errorf("output missing reminder status: %q", out)
	}
	if !strings.Contains(out, "No active alarms") {
		t.Errorf("output missing show status: %q", out)
	}
}

func TestVAPIDKeysAndHashToken(t *testing.T) {
	out, err := run(t, "", "vapid-keys")
	if err != nil || !strings.Contains(out, "ROUTINE_VAPID_PUBLIC_KEY=") || !strings.Contains(out, "ROUTINE_VAPID_PRIVATE_KEY=") {
		t.Errorf("vapid-keys: out=%q err=%v", out, err)
	}

	out, err = run(t, "", "hash-token", "s3cret")
	if err != nil || !strings.HasPrefix(out, "ROUTINE_API_TOKEN_HASH=$2a$") {
		t.Errorf("hash-token: out=%q err=%v", out, err)
	}
}
