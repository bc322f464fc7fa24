package receiver

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
)

// compressionSuffix returns the filename suffix associated with a
// compression mode, or "" for "none"/unknown.
func compressionSuffix(compress string) string {
	switch compress {
	case "gzip":
		return ".gz"
	case "zstd":
		return ".zst"
	default:
		return ""
	}
}

// wrapCompression wraps base in the requested compressor. The wire format
// and in-order acceptance are untouched by this — compression only applies
// to already-reconstructed bytes flowing into the local file (§9).
func wrapCompression(base *fileSink, compress string) (Sink, error) {
	switch compress {
	case "", "none":
		return base, nil
	case "gzip":
		return newPgzipSink(base), nil
	case "zstd":
		return newZstdSink(base)
	default:
		return nil, fmt.Errorf("receiver: unknown compression mode %q", compress)
	}
}

// pgzipSink compresses with klauspost/pgzip, which parallelizes gzip
// compression across blocks. Each accepted chunk is written through it as
// it arrives; Close flushes the final block.
type pgzipSink struct {
	base *fileSink
	w    *pgzip.Writer
}

func newPgzipSink(base *fileSink) *pgzipSink {
	return &pgzipSink{base: base, w: pgzip.NewWriter(base.f)}
}

func (s *pgzipSink) Write(p []byte) (int, error) { return s.w.Write(p) }
func (s *pgzipSink) Flush() error                { return s.w.Flush() }
func (s *pgzipSink) Close() error {
	if err := s.w.Close(); err != nil {
		s.base.Close()
		return fmt.Errorf("closing pgzip writer: %w", err)
	}
	return s.base.Close()
}

// zstdSink compresses with klauspost/compress's zstd encoder.
type zstdSink struct {
	base *fileSink
	enc  *zstd.Encoder
}

func newZstdSink(base *fileSink) (*zstdSink, error) {
	enc, err := zstd.NewWriter(base.f)
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	return &zstdSink{base: base, enc: enc}, nil
}

func (s *zstdSink) Write(p []byte) (int, error) { return s.enc.Write(p) }
func (s *zstdSink) Flush() error                { return s.enc.Flush() }
func (s *zstdSink) Close() error {
	if err := s.enc.Close(); err != nil {
		s.base.Close()
		return fmt.Errorf("closing zstd encoder: %w", err)
	}
	return s.base.Close()
}
