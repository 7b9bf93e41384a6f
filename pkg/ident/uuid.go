package ident

import (
	"github.com/google/uuid"

	"github.com/loom-hdl/loom/pkg/errors"
)

// UUID is a 128-bit RFC 4122 identifier. Generation always produces
// version 4 with variant bits 10.
type UUID struct {
	bytes [16]byte
}

// NewUUID generates a random v4 UUID.
func NewUUID() UUID {
	return UUID{bytes: uuid.New()}
}

// ParseUUID parses the canonical 8-4-4-4-12 string form.
func ParseUUID(s string) (UUID, error) {
	if len(s) != 36 {
		return UUID{}, errors.New(errors.Parse, "UUID string must be 36 characters").
			WithHint("expected format: xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return UUID{}, errors.Wrap(errors.Parse, err, "invalid UUID string '%s'", s)
	}
	return UUID{bytes: u}, nil
}

// String renders the canonical lowercase hex form.
func (u UUID) String() string {
	return uuid.UUID(u.bytes).String()
}

// Bytes returns the 16 raw bytes.
func (u UUID) Bytes() [16]byte { return u.bytes }

const base36Chars = "0123456789abcdefghijklmnopqrstuvwxyz"

// Base36 encodes the UUID as a fixed-width 25-character base-36 string,
// treating the 16 bytes as a big-endian 128-bit integer and repeatedly
// dividing by 36. Shorter values are left-padded with '0'.
func (u UUID) Base36() string {
	work := u.bytes

	var buf [25]byte
	for i := 24; i >= 0; i-- {
		buf[i] = base36Chars[divBy36(work[:])]
	}
	return string(buf[:])
}

// divBy36 divides a big-endian byte array in place by 36 and returns the
// remainder.
func divBy36(num []byte) byte {
	carry := uint32(0)
	for i := range num {
		cur := carry*256 + uint32(num[i])
		num[i] = byte(cur / 36)
		carry = cur % 36
	}
	return byte(carry)
}

// ParseBase36 decodes a 25-character base-36 string back into a UUID.
func ParseBase36(s string) (UUID, error) {
	if len(s) != 25 {
		return UUID{}, errors.Newf(errors.Parse,
			"base36 UUID must be 25 characters, got %d", len(s))
	}

	var u UUID
	for i := 0; i < len(s); i++ {
		v := base36Val(s[i])
		if v < 0 {
			return UUID{}, errors.Newf(errors.Parse,
				"base36 UUID contains invalid character '%c' at position %d", s[i], i)
		}
		mulAdd36(u.bytes[:], byte(v))
	}
	return u, nil
}

func base36Val(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	}
	return -1
}

// mulAdd36 multiplies a big-endian byte array in place by 36 and adds val.
func mulAdd36(num []byte, val byte) {
	carry := uint32(val)
	for i := len(num) - 1; i >= 0; i-- {
		cur := uint32(num[i])*36 + carry
		num[i] = byte(cur & 0xFF)
		carry = cur >> 8
	}
}
