package core

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// DeriveSeed mixes a base seed with a stream name so that every named
// stochastic component gets its own reproducible RNG stream.
func DeriveSeed(base int64, name string) int64 {
	buf := make([]byte, 8, 8+len(name))
	binary.LittleEndian.PutUint64(buf, uint64(base))
	buf = append(buf, name...)
	sum := sha256.Sum256(buf)
	return int64(binary.LittleEndian.Uint64(sum[:8]) &^ (1 << 63))
}
