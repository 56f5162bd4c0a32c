package katss

import (
	"errors"
	"testing"
)

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("disk on fire")
	e := NewError("stream.Open", IoError, cause)
	if !errors.Is(e, cause) {
		t.Error("errors.Is should see through Unwrap to the cause")
	}
	if e.Kind != IoError {
		t.Errorf("Kind=%v, want IoError", e.Kind)
	}
}

func TestErrorStringWithAndWithoutCause(t *testing.T) {
	withCause := NewError("op1", BadArgs, errors.New("boom"))
	if got := withCause.Error(); got == "" {
		t.Error("expected non-empty error string")
	}
	withoutCause := NewError("op2", BadArgs, nil)
	if got := withoutCause.Error(); got == "" {
		t.Error("expected non-empty error string")
	}
}

func TestErrorKindStringCoversAllKinds(t *testing.T) {
	kinds := []ErrorKind{
		NoError, IoError, CompressionError, BadMode, UnknownFormat,
		BufTooSmall, OutOfMemory, BadArgs, BadChar, WrongLength, OutOfRange,
	}
	seen := map[string]bool{}
	for _, k := range kinds {
		s := k.String()
		if s == "unknown error kind" {
			t.Errorf("kind %d has no String() case", k)
		}
		if seen[s] {
			t.Errorf("duplicate String() text %q", s)
		}
		seen[s] = true
	}
}
