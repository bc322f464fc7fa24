package protocol

import (
	"errors"
	"testing"
)

func TestHandshake_MarshalParseRoundTrip(t *testing.T) {
	h := Handshake{Filename: "report.csv", FileSize: 1500, Total: 2, ChunkSize: 1024, WindowSize: 8}
	got, err := ParseHandshake(h.Marshal())
	if err != nil {
		t.Fatal(err)
	}
	if got != h {
		t.Fatalf("got %+v, want %+v", got, h)
	}
}

func TestParseHandshake_RejectsTooFewFields(t *testing.T) {
	_, err := ParseHandshake([]byte("report.csv|1500|2"))
	if !errors.Is(err, ErrMalformedHandshake) {
		t.Fatalf("expected ErrMalformedHandshake, got %v", err)
	}
}

func TestParseHandshake_RejectsEmptyFilename(t *testing.T) {
	_, err := ParseHandshake([]byte("|1500|2|1024|8"))
	if !errors.Is(err, ErrMalformedHandshake) {
		t.Fatalf("expected ErrMalformedHandshake, got %v", err)
	}
}

func TestParseHandshake_RejectsBadTotal(t *testing.T) {
	_, err := ParseHandshake([]byte("report.csv|1500|notanumber|1024|8"))
	if !errors.Is(err, ErrMalformedHandshake) {
		t.Fatalf("expected ErrMalformedHandshake, got %v", err)
	}
}
