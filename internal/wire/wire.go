// Package wire holds the small big-endian and padding helpers shared by the
// frame codec. It has no knowledge of frame types or HPACK; it only moves
// bytes.
package wire

import (
	"crypto/rand"
	"errors"
	"reflect"
	"unsafe"

	"github.com/valyala/fastrand"
)

// ErrPadding is returned by CutPadding for any malformed padding: a pad
// length that would consume more bytes than the frame carries, or a
// payload shorter than the one-byte pad-length prefix it claims to have.
// Every malformed-padding case collapses to this single sentinel so a
// remote peer cannot distinguish "pad too long" from "payload too short"
// by timing or error text (the padding-oracle class of attack).
var ErrPadding = errors.New("http2: invalid frame padding")

func Uint24ToBytes(b []byte, n uint32) {
	_ = b[2]
	b[0] = byte(n >> 16)
	b[1] = byte(n >> 8)
	b[2] = byte(n)
}

func BytesToUint24(b []byte) uint32 {
	_ = b[2]
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

func AppendUint32Bytes(dst []byte, n uint32) []byte {
	return append(dst, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
}

func Uint32ToBytes(b []byte, n uint32) {
	_ = b[3]
	b[0] = byte(n >> 24)
	b[1] = byte(n >> 16)
	b[2] = byte(n >> 8)
	b[3] = byte(n)
}

func BytesToUint32(b []byte) uint32 {
	_ = b[3]
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func EqualsFold(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i]|0x20 != b[i]|0x20 {
			return false
		}
	}
	return true
}

// Resize grows b (reusing its capacity) to exactly neededLen bytes.
func Resize(b []byte, neededLen int) []byte {
	b = b[:cap(b)]
	if n := neededLen - len(b); n > 0 {
		b = append(b, make([]byte, n)...)
	}
	return b[:neededLen]
}

// CutPadding strips PADDED-flag padding from payload given the frame's
// declared length. It never panics: any inconsistency between the pad
// length byte and the payload size returns ErrPadding.
func CutPadding(payload []byte, length int) ([]byte, error) {
	if len(payload) == 0 {
		return nil, ErrPadding
	}

	pad := int(payload[0])
	if pad+1 > length || length > len(payload) {
		return nil, ErrPadding
	}

	return payload[1 : length-pad], nil
}

// AddPadding appends PADDED-flag padding to b: a one-byte length prefix
// followed by that many random bytes, matching the wire layout CutPadding
// expects to reverse.
func AddPadding(b []byte) []byte {
	n := int(fastrand.Uint32n(256-9)) + 9
	nn := len(b)

	b = Resize(b, nn+n)
	b = append(b[:1], b...)
	b[0] = uint8(n)

	rand.Read(b[nn+1:])

	return b
}

// BytesToString is an allocation-free []byte->string conversion. The
// caller must not mutate b for the lifetime of the returned string.
func BytesToString(b []byte) string {
	return *(*string)(unsafe.Pointer(&b))
}

// StringToBytes is an allocation-free string->[]byte conversion. The
// returned slice must not be mutated.
func StringToBytes(s string) []byte {
	sh := (*reflect.StringHeader)(unsafe.Pointer(&s))
	bh := reflect.SliceHeader{Data: sh.Data, Len: sh.Len, Cap: sh.Len}
	return *(*[]byte)(unsafe.Pointer(&bh))
}
