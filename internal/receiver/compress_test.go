package receiver

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
)

func TestWrapCompression_GzipRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.gz")
	base, err := newFileSink(path)
	if err != nil {
		t.Fatal(err)
	}
	sink, err := wrapCompression(base, "gzip")
	if err != nil {
		t.Fatal(err)
	}

	want := []byte("the quick brown fox jumps over the lazy dog")
	if _, err := sink.Write(want); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	r, err := pgzip.NewReader(f)
	if err != nil {
		t.Fatalf("opening gzip reader: %v", err)
	}
	defer r.Close()
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("reading decompressed data: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("round trip mismatch: got %q, want %q", got, want)
	}
}

func TestWrapCompression_ZstdRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.zst")
	base, err := newFileSink(path)
	if err != nil {
		t.Fatal(err)
	}
	sink, err := wrapCompression(base, "zstd")
	if err != nil {
		t.Fatal(err)
	}

	want := []byte("the quick brown fox jumps over the lazy dog")
	if _, err := sink.Write(want); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		t.Fatalf("creating zstd reader: %v", err)
	}
	defer dec.Close()
	got, err := dec.DecodeAll(data, nil)
	if err != nil {
		t.Fatalf("decoding zstd data: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("round trip mismatch: got %q, want %q", got, want)
	}
}

func TestWrapCompression_NoneReturnsBaseUnwrapped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.bin")
	base, err := newFileSink(path)
	if err != nil {
		t.Fatal(err)
	}
	sink, err := wrapCompression(base, "none")
	if err != nil {
		t.Fatal(err)
	}
	if sink != Sink(base) {
		t.Fatal("expected wrapCompression(base, \"none\") to return base unwrapped")
	}
	sink.Close()
}
