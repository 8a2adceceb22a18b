package source

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum hashes raw bytes.
func Sum(b []byte) Digest {
	return sha256.Sum256(b)
}

// Short returns the first 12 hex characters, enough for messages and traces.
func (d Digest) Short() string {
	return hex.EncodeToString(d[:6])
}

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}
