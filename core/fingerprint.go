package core

import (
	"encoding/hex"
	"hash"

	"github.com/go-crypt/x/blake2b"
)

// Fingerprint is a running BLAKE2b digest over (curie, label) pairs.
// Two ingestion runs over the same ordered source produce the same fingerprint.
type Fingerprint struct {
	h     hash.Hash
	count int
}

// NewFingerprint creates an empty fingerprint.
func NewFingerprint() *Fingerprint {
	h, _ := blake2b.New(32, nil) // 32 bytes = 256 bits; unkeyed New never fails
	return &Fingerprint{h: h}
}

// Add folds one concept into the digest.
func (f *Fingerprint) Add(curie, label string) {
	// Unit and record separators keep ("ab","c") distinct from ("a","bc").
	f.h.Write([]byte(curie))
	f.h.Write([]byte{0x1f})
	f.h.Write([]byte(label))
	f.h.Write([]byte{0x1e})
	f.count++
}

// Count returns the number of pairs added so far.
func (f *Fingerprint) Count() int {
	return f.count
}

// String returns the hex encoded digest.
func (f *Fingerprint) String() string {
	return hex.EncodeToString(f.h.Sum(nil))
}
