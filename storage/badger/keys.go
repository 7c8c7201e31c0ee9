package badger

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/go-crypt/x/blake2b"
)

// Key prefixes. Every key is scoped by collection name so several
// collections can share one database.
const (
	metaPrefix    = "meta"
	pointPrefix   = "pt"
	payloadPrefix = "pl"
)

// makeMetaKey generates the key holding a collection's CollectionInfo.
// Format: meta:collection
func makeMetaKey(collection string) []byte {
	return []byte(metaPrefix + ":" + collection)
}

// makePointPrefix generates the prefix shared by all points of a collection.
// Format: pt:collection:
func makePointPrefix(collection string) []byte {
	return []byte(pointPrefix + ":" + collection + ":")
}

// makePointKey generates the key for a point by identity.
// Format: pt:collection:identity
func makePointKey(collection string, identity uint64) []byte {
	prefix := makePointPrefix(collection)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort follows identity order
	binary.BigEndian.PutUint64(buf[offset:], identity)
	return buf
}

// identityFromKey recovers the identity from a point key.
func identityFromKey(key []byte) uint64 {
	if len(key) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(key[len(key)-8:])
}

// makePayloadPrefix generates the prefix shared by all payloads of a collection.
// Format: pl:collection:
func makePayloadPrefix(collection string) []byte {
	return []byte(payloadPrefix + ":" + collection + ":")
}

// makePayloadKey generates the key for a stored payload.
// Format: pl:collection:digest
func makePayloadKey(collection, digest string) []byte {
	return append(makePayloadPrefix(collection), digest...)
}

// payloadDigest names an encoded payload by its content. Records sharing a
// CURIE but differing in label, synonyms or types get different digests.
func payloadDigest(encoded []byte) string {
	h, _ := blake2b.New(16, nil) // unkeyed New never fails
	h.Write(encoded)
	return hex.EncodeToString(h.Sum(nil))
}
