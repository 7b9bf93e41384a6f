package buildcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashBytesFIPSVector(t *testing.T) {
	// SHA-256 of the empty string, per the FIPS 180 test vector.
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		HashBytes(nil))

	assert.Equal(t,
		"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		HashBytes([]byte("abc")))
}
