package http2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeAll(t *testing.T, hp *HPACK, fields [][2]string) []byte {
	t.Helper()
	var dst []byte
	for _, f := range fields {
		hf := AcquireHeaderField()
		hf.Set(f[0], f[1])
		dst = hp.AppendHeader(dst, hf, true)
		ReleaseHeaderField(hf)
	}
	return dst
}

func decodeAll(t *testing.T, hp *HPACK, src []byte) [][2]string {
	t.Helper()
	var got [][2]string
	for len(src) > 0 {
		hf := AcquireHeaderField()
		n, err := hp.Next(hf, src)
		require.NoError(t, err)
		if !hf.Empty() {
			got = append(got, [2]string{hf.Key(), hf.Value()})
		}
		src = src[n:]
		ReleaseHeaderField(hf)
	}
	return got
}

// RFC 7541 Appendix C.3: three requests, reusing the first two fields'
// indexed entries as the dynamic table fills up across the sequence.
func TestHPACKRoundTripRFCRequestSequence(t *testing.T) {
	enc := AcquireHPack()
	dec := AcquireHPack()
	defer ReleaseHPack(enc)
	defer ReleaseHPack(dec)

	requests := [][][2]string{
		{
			{":method", "GET"},
			{":scheme", "http"},
			{":path", "/"},
			{":authority", "www.example.com"},
		},
		{
			{":method", "GET"},
			{":scheme", "http"},
			{":path", "/"},
			{":authority", "www.example.com"},
			{"cache-control", "no-cache"},
		},
		{
			{":method", "GET"},
			{":scheme", "https"},
			{":path", "/index.html"},
			{":authority", "www.example.com"},
			{"custom-key", "custom-value"},
		},
	}

	for _, want := range requests {
		block := encodeAll(t, enc, want)
		got := decodeAll(t, dec, block)
		assert.Equal(t, want, got)
	}
}

func TestHPACKIndexedStaticField(t *testing.T) {
	hp := AcquireHPack()
	defer ReleaseHPack(hp)

	hf := AcquireHeaderField()
	defer ReleaseHeaderField(hf)
	hf.Set(":method", "GET")

	dst := hp.AppendHeader(nil, hf, false)
	// a full static-table match encodes as a single indexed header field.
	assert.Len(t, dst, 1)
	assert.EqualValues(t, 0x80|2, dst[0]) // index 2 is ":method: GET"
}

func TestHPACKSensibleFieldNeverIndexedOrStored(t *testing.T) {
	enc := AcquireHPack()
	defer ReleaseHPack(enc)

	hf := AcquireHeaderField()
	defer ReleaseHeaderField(hf)
	hf.Set("authorization", "secret-token")
	hf.SetSensible(true)

	dst := enc.AppendHeader(nil, hf, true)
	assert.Equal(t, byte(0x10), dst[0]&0xf0, "must use Literal Never Indexed")
	assert.Equal(t, 0, enc.dynamic.len(), "sensible fields are never inserted into the dynamic table")
}

func TestHPACKDynamicTableSizeUpdateEvicts(t *testing.T) {
	hp := AcquireHPack()
	defer ReleaseHPack(hp)

	hf := AcquireHeaderField()
	hf.Set("x-custom-header", "some-fairly-long-value-to-take-up-table-space")
	hp.AppendHeader(nil, hf, true)
	ReleaseHeaderField(hf)
	assert.Equal(t, 1, hp.dynamic.len())

	hp.dynamic.setMaxSize(0)
	assert.Equal(t, 0, hp.dynamic.len())
}

func TestHPACKMaxHeaderListSizeRejectsOversizedBlock(t *testing.T) {
	enc := AcquireHPack()
	dec := AcquireHPack()
	defer ReleaseHPack(enc)
	defer ReleaseHPack(dec)

	dec.MaxHeaderListSize = 40

	hf := AcquireHeaderField()
	hf.Set("x-long-header-name", "a-fairly-long-header-value-that-blows-the-budget")
	block := enc.AppendHeader(nil, hf, false)
	ReleaseHeaderField(hf)

	out := AcquireHeaderField()
	defer ReleaseHeaderField(out)
	_, err := dec.Next(out, block)
	require.Error(t, err)
	var ce *ConnError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, CompressionError, ce.Code)
}

func TestHPACKDynamicTableSizeUpdateAboveLimitIsCompressionError(t *testing.T) {
	hp := AcquireHPack()
	defer ReleaseHPack(hp)

	hp.SetMaxTableSize(100)

	// Dynamic Table Size Update (0x20 prefix) naming 200, above the
	// negotiated 100-byte hard limit.
	block := appendInt([]byte{0x20}, 5, 200)

	out := AcquireHeaderField()
	defer ReleaseHeaderField(out)
	_, err := hp.Next(out, block)
	require.Error(t, err)
	var ce *ConnError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, CompressionError, ce.Code)
}
