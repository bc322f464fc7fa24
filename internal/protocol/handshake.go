package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Handshake is the metadata a sender declares before transferring a file,
// carried as the UTF-8 payload of a HANDSHAKE packet:
// "filename|file_size_bytes|total_packets|chunk_size|window_size".
type Handshake struct {
	Filename   string
	FileSize   uint64
	Total      uint32
	ChunkSize  uint32
	WindowSize uint16
}

// Marshal renders h in the pipe-delimited wire form.
func (h Handshake) Marshal() []byte {
	s := fmt.Sprintf("%s|%d|%d|%d|%d", h.Filename, h.FileSize, h.Total, h.ChunkSize, h.WindowSize)
	return []byte(s)
}

// ErrMalformedHandshake is returned when a HANDSHAKE payload does not carry
// at least five pipe-delimited fields, when total_packets fails to parse, or
// when the filename is empty.
var ErrMalformedHandshake = fmt.Errorf("protocol: malformed handshake metadata")

// ParseHandshake parses the payload of a HANDSHAKE packet. Only Filename and
// Total are semantically required by the receiver core; FileSize, ChunkSize
// and WindowSize are informational and default to 0 on parse failure of
// that individual field rather than failing the whole parse, since the
// receiver never relies on them for protocol correctness.
func ParseHandshake(payload []byte) (Handshake, error) {
	fields := strings.SplitN(string(payload), "|", 5)
	if len(fields) < 5 {
		return Handshake{}, ErrMalformedHandshake
	}

	total, err := strconv.ParseUint(fields[2], 10, 32)
	if err != nil {
		return Handshake{}, fmt.Errorf("%w: bad total_packets: %v", ErrMalformedHandshake, err)
	}
	if fields[0] == "" {
		return Handshake{}, fmt.Errorf("%w: empty filename", ErrMalformedHandshake)
	}

	fileSize, _ := strconv.ParseUint(fields[1], 10, 64)
	chunkSize, _ := strconv.ParseUint(fields[3], 10, 32)
	windowSize, _ := strconv.ParseUint(fields[4], 10, 16)

	return Handshake{
		Filename:   fields[0],
		FileSize:   fileSize,
		Total:      uint32(total),
		ChunkSize:  uint32(chunkSize),
		WindowSize: uint16(windowSize),
	}, nil
}
