package http2

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Vectors from RFC 7541 Appendix C.1.
func TestVarintRoundTripRFCExamples(t *testing.T) {
	cases := []struct {
		name   string
		prefix byte
		value  uint64
	}{
		{"10 fits in a 5-bit prefix", 5, 10},
		{"1337 needs continuation bytes", 5, 1337},
		{"42 fits in an 8-bit prefix", 8, 42},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dst := append([]byte{}, byte(0))
			dst = appendInt(dst, tc.prefix, tc.value)

			got, n, err := readInt(tc.prefix, dst[0], dst[1:])
			assert.NoError(t, err)
			assert.EqualValues(t, tc.value, got)
			assert.Equal(t, len(dst)-1, n)
		})
	}
}

func TestVarintDecodeDetectsOverflow(t *testing.T) {
	// an unterminated run of continuation bytes that would overflow
	// uint32 before ever finding a terminator.
	b := []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	_, _, err := readInt(5, 0x1f, b)
	assert.ErrorIs(t, err, ErrIntegerOverflow)
}

func TestVarintDecodeDetectsTruncation(t *testing.T) {
	b := []byte{0xff} // continuation bit set, never terminated
	_, _, err := readInt(5, 0x1f, b)
	assert.ErrorIs(t, err, ErrMissingBytes)
}
