package mail

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/ghostnote/ghost-note/backend/internal/config"
)

func TestUnconfiguredMailerFails(t *testing.T) {
	m := New(config.MailConfig{Host: "smtp.example.com", Port: 587})
	if m.Configured() {
		t.Fatal("expected mailer without credentials to be unconfigured")
	}

	err := m.SendVerification(context.Background(), "a@example.com", "alice", "123456", time.Hour)
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestTemplatesRenderCode(t *testing.T) {
	var buf bytes.Buffer
	data := templateData{Username: "<bob>", Code: "654321", ValidFor: humanize(10 * time.Minute)}
	if err := templates.ExecuteTemplate(&buf, "reset", data); err != nil {
		t.Fatalf("render reset: %v", err)
	}
	body := buf.String()
	if !strings.Contains(body, "654321") || !strings.Contains(body, "10 minutes") {
		t.Fatalf("reset mail missing code or expiry: %s", body)
	}
	if strings.Contains(body, "<bob>") {
		t.Fatal("expected username to be escaped")
	}
}

func TestDescribe(t *testing.T) {
	if got := describe(&textproto.Error{Code: 535, Msg: "bad auth"}, "x"); !strings.Contains(got, "authentication") {
		t.Fatalf("unexpected auth message %q", got)
	}
	if got := describe(&net.OpError{Op: "dial", Err: errors.New("refused")}, "x"); !strings.Contains(got, "connection") {
		t.Fatalf("unexpected connection message %q", got)
	}
	if got := describe(errors.New("boom"), "fallback"); got != "fallback" {
		t.Fatalf("unexpected fallback %q", got)
	}
}

func TestHumanize(t *testing.T) {
	cases := map[time.Duration]string{
		time.Hour:        "1 hour",
		2 * time.Hour:    "2 hours",
		15 * time.Minute: "15 minutes",
		90 * time.Minute: "1 hour 30 minutes",
	}
	for d, want := range cases {
		if got := humanize(d); got != want {
			t.Fatalf("humanize(%s) = %q, want %q", d, got, want)
		}
	}
}
