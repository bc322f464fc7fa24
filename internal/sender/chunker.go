package sender

import (
	"fmt"
	"os"
	"path/filepath"
)

// Chunk splits data into pieces of at most size bytes each, in order. Only
// the last chunk may be shorter than size. An empty input yields a nil,
// zero-length slice (total == 0), matching the protocol's empty-file case.
func Chunk(data []byte, size uint32) [][]byte {
	if len(data) == 0 {
		return nil
	}
	n := (len(data) + int(size) - 1) / int(size)
	chunks := make([][]byte, n)
	for i := range chunks {
		start := i * int(size)
		end := start + int(size)
		if end > len(data) {
			end = len(data)
		}
		chunks[i] = data[start:end]
	}
	return chunks
}

// LoadFile reads path fully into memory and returns its chunks, its base
// name (the value to declare as Handshake.Filename), and its size in
// bytes.
func LoadFile(path string, chunkSize uint32) (chunks [][]byte, filename string, size int64, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", 0, fmt.Errorf("reading input file: %w", err)
	}
	return Chunk(data, chunkSize), filepath.Base(path), int64(len(data)), nil
}
