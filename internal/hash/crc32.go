// Package hash provides checksum helpers shared by the binary writers.
package hash

import (
	"hash"
	"hash/crc32"
)

// ieeeTable is pre-computed for the CRC32-IEEE polynomial, the checksum
// the trainer's writers maintain. Computing it once avoids repeated
// MakeTable calls.
var ieeeTable = crc32.MakeTable(crc32.IEEE)

// CRC32 computes the CRC32-IEEE checksum of data.
func CRC32(data []byte) uint32 {
	return crc32.Checksum(data, ieeeTable)
}

// NewCRC32 returns a new CRC32-IEEE hash.Hash32.
// Uses hardware acceleration when available.
func NewCRC32() hash.Hash32 {
	return crc32.New(ieeeTable)
}
