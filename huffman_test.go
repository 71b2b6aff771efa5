package http2

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHuffmanRoundTrip(t *testing.T) {
	cases := []string{
		"",
		"www.example.com",
		"no-cache",
		"custom-key",
		"custom-value",
		"Mon, 21 Oct 2013 20:13:21 GMT",
		"https://www.example.com",
	}

	for _, s := range cases {
		t.Run(s, func(t *testing.T) {
			enc := huffmanEncodeAppend(nil, []byte(s))
			assert.Equal(t, huffmanEncodedLen([]byte(s)), len(enc))

			dec, err := huffmanDecodeAppend(nil, enc)
			assert.NoError(t, err)
			assert.Equal(t, s, string(dec))
		})
	}
}

// RFC 7541 Appendix C.4.1: "www.example.com" Huffman-encodes to this
// exact byte sequence.
func TestHuffmanEncodeMatchesRFCVector(t *testing.T) {
	want := []byte{
		0xf1, 0xe3, 0xc2, 0xe5, 0xf2, 0x3a, 0x6b, 0xa0, 0xab, 0x90, 0xf4, 0xff,
	}
	got := huffmanEncodeAppend(nil, []byte("www.example.com"))
	assert.Equal(t, want, got)
}

func TestHuffmanDecodeMatchesRFCVector(t *testing.T) {
	enc := []byte{
		0xf1, 0xe3, 0xc2, 0xe5, 0xf2, 0x3a, 0x6b, 0xa0, 0xab, 0x90, 0xf4, 0xff,
	}
	dec, err := huffmanDecodeAppend(nil, enc)
	assert.NoError(t, err)
	assert.Equal(t, "www.example.com", string(dec))
}
