package badger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPointKeys(t *testing.T) {
	a := makePointKey("concepts", 1)
	b := makePointKey("concepts", 256)

	assert.True(t, bytes.HasPrefix(a, makePointPrefix("concepts")))
	assert.Equal(t, -1, bytes.Compare(a, b), "keys sort by identity")
	assert.Equal(t, uint64(256), identityFromKey(b))
	assert.Equal(t, uint64(0), identityFromKey([]byte("x")))
}

func TestPayloadKeys(t *testing.T) {
	key := makePayloadKey("concepts", "00ff")
	assert.Equal(t, "pl:concepts:00ff", string(key))
	assert.True(t, bytes.HasPrefix(key, makePayloadPrefix("concepts")))
	assert.Equal(t, "meta:concepts", string(makeMetaKey("concepts")))
}

func TestPayloadDigest(t *testing.T) {
	a := payloadDigest([]byte("flu"))
	assert.Len(t, a, 32)
	assert.Equal(t, a, payloadDigest([]byte("flu")))
	assert.NotEqual(t, a, payloadDigest([]byte("influenza")))
}
