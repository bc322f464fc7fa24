// Package crc32 computes the IEEE-802.3 checksum used to gate acceptance of
// DATA payloads on the wire. It is a thin wrapper over the standard
// library's reflected, 0xEDB88320 table — the same polynomial Ethernet and
// gzip use — so the wire format never needs its own table implementation.
package crc32

import "hash/crc32"

// Checksum returns the IEEE-802.3 CRC-32 of b.
func Checksum(b []byte) uint32 {
	return crc32.ChecksumIEEE(b)
}
