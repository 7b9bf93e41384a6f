package ident

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseName(t *testing.T) {
	n, err := ParseName("Common-Cells")
	require.NoError(t, err)
	assert.Equal(t, "Common-Cells", n.Raw())
	assert.Equal(t, "common_cells", n.Normalized())

	other, err := ParseName("common_cells")
	require.NoError(t, err)
	assert.True(t, n.Equal(other))

	different, err := ParseName("axi")
	require.NoError(t, err)
	assert.False(t, n.Equal(different))
}

func TestParseNameRejects(t *testing.T) {
	for _, s := range []string{"", "1abc", "_abc", "-abc", "ab.c", "a b"} {
		_, err := ParseName(s)
		assert.Error(t, err, "input %q", s)
	}
}

func TestUUIDV4Bits(t *testing.T) {
	for i := 0; i < 64; i++ {
		u := NewUUID()
		s := u.String()
		require.Len(t, s, 36)
		// Version nibble 4 at string position 14.
		assert.Equal(t, byte('4'), s[14])
		// Variant bits 10 at byte 8.
		b := u.Bytes()
		assert.Equal(t, byte(0x80), b[8]&0xC0)
	}
}

func TestUUIDStringRoundTrip(t *testing.T) {
	u := NewUUID()
	parsed, err := ParseUUID(u.String())
	require.NoError(t, err)
	assert.Equal(t, u, parsed)

	_, err = ParseUUID("not-a-uuid")
	assert.Error(t, err)
	_, err = ParseUUID("00000000000000000000000000000000000x")
	assert.Error(t, err)
}

func TestBase36RoundTrip(t *testing.T) {
	for i := 0; i < 32; i++ {
		u := NewUUID()
		enc := u.Base36()
		require.Len(t, enc, 25)
		dec, err := ParseBase36(enc)
		require.NoError(t, err)
		assert.Equal(t, u, dec)
	}

	// All-zero UUID encodes to 25 zeros.
	var zero UUID
	assert.Equal(t, "0000000000000000000000000", zero.Base36())

	_, err := ParseBase36("short")
	assert.Error(t, err)
	_, err = ParseBase36("!!!!!!!!!!!!!!!!!!!!!!!!!")
	assert.Error(t, err)
}
