package ledgererr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOfUnwrapsThroughFmt(t *testing.T) {
	base := New(AhsViolation, "delta too large")
	wrapped := fmt.Errorf("apply_quantum: %w", base)
	k, ok := KindOf(wrapped)
	if !ok || k != AhsViolation {
		t.Fatalf("KindOf(wrapped) = (%v, %v), want (%v, true)", k, ok, AhsViolation)
	}
}

func TestKindOfFalseForForeignError(t *testing.T) {
	if _, ok := KindOf(errors.New("plain")); ok {
		t.Fatalf("expected ok=false for a non-ledgererr error")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(IO, "fsync", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected Wrap to preserve Unwrap chain")
	}
}
