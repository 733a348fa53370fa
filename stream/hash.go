package stream

import (
	"encoding/hex"
	"hash/crc32"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/Neumenon/regular/regular"
)

// basePrefix tags the hash algorithm in base= header values.
const basePrefix = "blake3:"

// crcTable is the IEEE CRC-32 table.
var crcTable = crc32.MakeTable(crc32.IEEE)

// ComputeCRC computes CRC-32 IEEE of the given bytes.
func ComputeCRC(data []byte) uint32 {
	return crc32.Checksum(data, crcTable)
}

// VerifyCRC verifies that the CRC matches.
func VerifyCRC(data []byte, expected uint32) bool {
	return ComputeCRC(data) == expected
}

// StateHash is the fingerprint of a decoded document: blake3 over its
// canonical encoding. Documents that differ only in map key order or
// number spelling share a state hash.
func StateHash(v *regular.Value) regular.Digest {
	return regular.Fingerprint(v)
}

// StateHashBytes computes blake3 of raw bytes.
// Use this when you already have canonical bytes.
func StateHashBytes(data []byte) regular.Digest {
	return blake3.Sum256(data)
}

// VerifyBase checks if the current state hash matches the expected base.
func VerifyBase(current, expected regular.Digest) bool {
	return current == expected
}

// FormatBase renders a digest as a base= header value.
func FormatBase(d regular.Digest) string {
	return basePrefix + d.String()
}

// ParseBase parses "blake3:<64 hex>" or bare hex.
func ParseBase(s string) (regular.Digest, bool) {
	var d regular.Digest
	s = strings.TrimPrefix(s, basePrefix)
	if len(s) != 2*len(d) {
		return d, false
	}
	if _, err := hex.Decode(d[:], []byte(s)); err != nil {
		return d, false
	}
	return d, true
}
