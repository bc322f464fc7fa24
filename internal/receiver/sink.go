package receiver

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Sink is the receiver's output chain contract: accept bytes in order,
// flush, and close. A local file satisfies it directly; compress.go and
// s3backend.go add optional links downstream of it (§3.1).
type Sink interface {
	io.Writer
	Flush() error
	Close() error
}

// fileSink is the base of every sink chain: a plain local file.
type fileSink struct {
	f *os.File
}

func newFileSink(path string) (*fileSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating output file: %w", err)
	}
	return &fileSink{f: f}, nil
}

func (s *fileSink) Write(p []byte) (int, error) { return s.f.Write(p) }
func (s *fileSink) Flush() error                { return s.f.Sync() }
func (s *fileSink) Close() error                { return s.f.Close() }

// TargetPath builds the path a session's output is written to:
// "<outdir>/<filename>_<sessionID>_<peerKey>", with peer-key punctuation
// replaced so it can't be mistaken for a path separator (§6). filename has
// already passed validatePathComponent by the time this is called.
func TargetPath(outDir, filename string, sessionID int64, peerKey string) string {
	safeKey := sanitizePeerKeyForFilename(peerKey)
	name := fmt.Sprintf("%s_%d_%s", filename, sessionID, safeKey)
	return filepath.Join(outDir, name)
}

func sanitizePeerKeyForFilename(key string) string {
	out := make([]byte, len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		if c == ':' || c == '.' {
			out[i] = '-'
		} else {
			out[i] = c
		}
	}
	return string(out)
}

// NewSink builds the full output chain for a session: a local file,
// optionally wrapped by a compressor. S3 mirroring is not part of this
// chain — it is a post-close hook invoked by the FIN handler, since it
// must run on the finished file rather than an open stream (§3.1). The
// returned path is the actual on-disk name, including any compression
// suffix.
func NewSink(outDir, filename string, sessionID int64, peerKey, compress string) (Sink, string, error) {
	path := TargetPath(outDir, filename, sessionID, peerKey) + compressionSuffix(compress)
	base, err := newFileSink(path)
	if err != nil {
		return nil, "", err
	}

	sink, err := wrapCompression(base, compress)
	if err != nil {
		base.Close()
		return nil, "", err
	}
	return sink, path, nil
}
