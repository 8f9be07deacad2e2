package config

import (
	"os"
	"path/filepath"
	"testing"

	"coreledger.dev/engine/internal/jiwol"
)

func TestDefaultSpecValidates(t *testing.T) {
	if err := DefaultSpec().Validate(); err != nil {
		t.Fatalf("DefaultSpec().Validate() = %v, want nil", err)
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	s, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if s.Scd.TriggerBytes != DefaultTriggerBytes {
		t.Fatalf("expected default trigger bytes, got %d", s.Scd.TriggerBytes)
	}
}

func TestLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spec.yaml")
	doc := []byte("ahs:\n  alpha: 0.5\nscd:\n  trigger_bytes: 1024\n")
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		t.Fatalf("os.WriteFile: %v", err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Ahs.Alpha != 0.5 {
		t.Fatalf("Ahs.Alpha = %v, want 0.5", s.Ahs.Alpha)
	}
	if s.Scd.TriggerBytes != 1024 {
		t.Fatalf("Scd.TriggerBytes = %v, want 1024", s.Scd.TriggerBytes)
	}
	if s.Uem.Record.SizeBytes == 0 {
		t.Fatalf("expected record defaults to be filled in")
	}
}

func TestJiwolLayoutFallsBackOnMismatch(t *testing.T) {
	s := DefaultSpec()
	s.Jiwol.Digits = []int{1, 2}
	s.Jiwol.Fields = []string{"t"}
	got := s.JiwolLayout()
	want := jiwol.DefaultLayout()
	if len(got) != len(want) {
		t.Fatalf("expected fallback to default layout on shape mismatch")
	}
}

func TestValidateRejectsMutatedRecordSize(t *testing.T) {
	s := DefaultSpec()
	s.Uem.Record.SizeBytes = 10
	if err := s.Validate(); err == nil {
		t.Fatalf("expected Validate to reject a tampered record size")
	}
}

func TestValidateRejectsNonAppendOnly(t *testing.T) {
	s := DefaultSpec()
	s.Uem.Ledger.AppendOnly = false
	if err := s.Validate(); err == nil {
		t.Fatalf("expected Validate to reject append_only=false")
	}
}
