package types

import (
	"errors"
	"io"
	"testing"
)

func TestRequestValidate(t *testing.T) {
	ok := Request{Query: "Artist X", Count: 3, TrimSeconds: 20, Destination: "me@example.com"}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	bad := []Request{
		{Query: " ", Count: 1, TrimSeconds: 1, Destination: "me@example.com"},
		{Query: "a", Count: 0, TrimSeconds: 1, Destination: "me@example.com"},
		{Query: "a", Count: 1, TrimSeconds: 0, Destination: "me@example.com"},
		{Query: "a", Count: 1, TrimSeconds: 1, Destination: "not-an-address"},
	}
	for _, r := range bad {
		if err := r.Validate(); !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("expected ErrInvalidRequest for %#v, got %v", r, err)
		}
	}
}

func TestErrorMatchesKindAndCause(t *testing.T) {
	err := FetchError(2, io.ErrUnexpectedEOF)

	if !errors.Is(err, ErrFetch) {
		t.Fatalf("expected ErrFetch kind")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected cause to be reachable")
	}
	if errors.Is(err, ErrTrim) {
		t.Fatalf("unexpected kind match")
	}
	if got := err.Error(); got != "fetch item 2: unexpected EOF" {
		t.Fatalf("unexpected message %q", got)
	}

	kind, idx, ok := Stage(err)
	if !ok || kind != ErrFetch || idx != 2 {
		t.Fatalf("Stage() = %v %d %v", kind, idx, ok)
	}
}

func TestLocateErrorWrapsInsufficientCandidates(t *testing.T) {
	err := LocateError(ErrInsufficientCandidates)
	if !errors.Is(err, ErrLocate) || !errors.Is(err, ErrInsufficientCandidates) {
		t.Fatalf("expected both kind and cause, got %v", err)
	}
	if got := err.Error(); got != "locate: insufficient candidates" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestItemStateString(t *testing.T) {
	if ItemTrimmed.String() != "trimmed" || ItemFailed.String() != "failed" {
		t.Fatalf("unexpected state names")
	}
}
