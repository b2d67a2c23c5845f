package ddmerrors

import (
	"strings"
	"testing"
)

func TestNewCarriesKindAndTrace(t *testing.T) {
	err := New(NotFound, "partition %d not found", 7)

	te, ok := err.(TraceableError)
	if !ok {
		t.Fatalf("expected TraceableError, got %T", err)
	}
	if te.Kind != NotFound {
		t.Errorf("Kind = %v, want NotFound", te.Kind)
	}
	if !strings.Contains(te.What, "partition 7 not found") {
		t.Errorf("What = %q, missing formatted message", te.What)
	}
	if !strings.Contains(te.Trace, "Error Trace:") {
		t.Errorf("Trace = %q, missing trace header", te.Trace)
	}
}

func TestIsAndKindOf(t *testing.T) {
	err := New(Busy, "partition is busy")

	if !Is(err, Busy) {
		t.Error("Is(err, Busy) = false, want true")
	}
	if Is(err, NotFound) {
		t.Error("Is(err, NotFound) = true, want false")
	}
	if KindOf(err) != Busy {
		t.Errorf("KindOf(err) = %v, want Busy", KindOf(err))
	}
	if KindOf(nil) != Unknown {
		t.Errorf("KindOf(nil) = %v, want Unknown", KindOf(nil))
	}
}

func TestWrapPreservesKind(t *testing.T) {
	orig := New(BadValue, "bad change counter")
	wrapped := Wrap(orig)

	if KindOf(wrapped) != BadValue {
		t.Errorf("Wrap lost Kind: got %v, want BadValue", KindOf(wrapped))
	}
	if Wrap(nil) != nil {
		t.Error("Wrap(nil) should be nil")
	}
}

func TestWrapKindOverridesPlainError(t *testing.T) {
	plain := errString("disk full")
	wrapped := WrapKind(NoMemory, plain)

	if !Is(wrapped, NoMemory) {
		t.Errorf("WrapKind did not set Kind, got %v", KindOf(wrapped))
	}
}

func TestValidationError(t *testing.T) {
	err := ValidationErrorf("block size %d not supported", 513)

	if !IsValidationError(err) {
		t.Error("IsValidationError = false, want true")
	}
	if IsValidationError(New(NotFound, "x")) {
		t.Error("IsValidationError should be false for TraceableError")
	}
}

type errString string

func (e errString) Error() string { return string(e) }
