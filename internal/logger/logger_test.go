package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRedactsCredentialKeys(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := NewWithCore(core)

	log.Info("login", "email", "admin@example.com", "password", "hunter2", "SESSION_SECRET", "abc")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["email"] != "admin@example.com" {
		t.Fatalf("email should pass through, got %v", fields["email"])
	}
	if fields["password"] != "[REDACTED]" || fields["SESSION_SECRET"] != "[REDACTED]" {
		t.Fatalf("credentials leaked: %v", fields)
	}
}

func TestWithKeepsFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := NewWithCore(core).With("boq_id", "b1")

	log.Warn("slow recompute", "rows", 12)
	log.Zap().Debug("structured")

	if logs.Len() != 2 {
		t.Fatalf("expected two entries, got %d", logs.Len())
	}
	for _, e := range logs.All() {
		if e.ContextMap()["boq_id"] != "b1" {
			t.Fatalf("missing boq_id on %q: %v", e.Message, e.ContextMap())
		}
	}
}

func TestNewModes(t *testing.T) {
	for _, mode := range []string{"dev", "production", ""} {
		l, err := New(mode)
		if err != nil {
			t.Fatalf("New(%q): %v", mode, err)
		}
		l.Debug("ok")
	}
	Nop().Error("dropped")
}
