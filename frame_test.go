package http2

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeAndRead serializes fr through a bufio.Writer and reads it back
// through a bufio.Reader, returning the parsed FrameHeader.
func writeAndRead(t *testing.T, fr *FrameHeader) *FrameHeader {
	t.Helper()

	buf := &bytes.Buffer{}
	bw := bufio.NewWriter(buf)
	_, err := fr.WriteTo(bw)
	require.NoError(t, err)
	require.NoError(t, bw.Flush())

	br := bufio.NewReader(buf)
	got, err := ReadFrameFrom(br)
	require.NoError(t, err)
	return got
}

func TestDataFrameRoundTrip(t *testing.T) {
	fr := AcquireFrameHeader()
	defer ReleaseFrameHeader(fr)
	fr.SetStream(3)

	d := AcquireFrame(FrameData).(*Data)
	d.SetData([]byte("hello world"))
	d.SetEndStream(true)
	fr.SetBody(d)

	got := writeAndRead(t, fr)
	defer ReleaseFrameHeader(got)

	assert.Equal(t, uint32(3), got.Stream())
	assert.Equal(t, FrameData, got.Type())
	gd := got.Body().(*Data)
	assert.Equal(t, "hello world", string(gd.Data()))
	assert.True(t, gd.EndStream())
}

func TestDataFramePaddingRoundTrip(t *testing.T) {
	fr := AcquireFrameHeader()
	defer ReleaseFrameHeader(fr)
	fr.SetStream(1)

	d := AcquireFrame(FrameData).(*Data)
	d.SetData([]byte("padded payload"))
	d.SetPadding(true)
	fr.SetBody(d)

	got := writeAndRead(t, fr)
	defer ReleaseFrameHeader(got)

	gd := got.Body().(*Data)
	assert.Equal(t, "padded payload", string(gd.Data()))
}

func TestRstStreamRoundTrip(t *testing.T) {
	fr := AcquireFrameHeader()
	defer ReleaseFrameHeader(fr)
	fr.SetStream(5)

	rst := AcquireFrame(FrameResetStream).(*RstStream)
	rst.SetCode(Cancel)
	fr.SetBody(rst)

	got := writeAndRead(t, fr)
	defer ReleaseFrameHeader(got)

	grst := got.Body().(*RstStream)
	assert.Equal(t, Cancel, grst.Code())
}

func TestRstStreamRejectsBadFrameSize(t *testing.T) {
	rst := &RstStream{}
	fr := AcquireFrameHeader()
	defer ReleaseFrameHeader(fr)
	fr.payload = []byte{0, 0, 0}

	err := rst.Deserialize(fr)
	assert.ErrorIs(t, err, ErrFrameSizeError)
}

func TestPriorityRoundTrip(t *testing.T) {
	fr := AcquireFrameHeader()
	defer ReleaseFrameHeader(fr)
	fr.SetStream(7)

	p := AcquireFrame(FramePriority).(*Priority)
	p.SetStream(3)
	p.SetWeight(42)
	p.SetExclusive(true)
	fr.SetBody(p)

	got := writeAndRead(t, fr)
	defer ReleaseFrameHeader(got)

	gp := got.Body().(*Priority)
	assert.EqualValues(t, 3, gp.Stream())
	assert.EqualValues(t, 42, gp.Weight())
	assert.True(t, gp.Exclusive())
}

func TestWindowUpdateRoundTrip(t *testing.T) {
	fr := AcquireFrameHeader()
	defer ReleaseFrameHeader(fr)
	fr.SetStream(9)

	wu := AcquireFrame(FrameWindowUpdate).(*WindowUpdate)
	wu.SetIncrement(1 << 20)
	fr.SetBody(wu)

	got := writeAndRead(t, fr)
	defer ReleaseFrameHeader(got)

	gwu := got.Body().(*WindowUpdate)
	assert.EqualValues(t, 1<<20, gwu.Increment())
}

func TestSettingsRoundTrip(t *testing.T) {
	fr := AcquireFrameHeader()
	defer ReleaseFrameHeader(fr)

	st := AcquireFrame(FrameSettings).(*Settings)
	st.SetMaxConcurrentStreams(128)
	st.SetInitialWindowSize(1 << 18)
	st.SetEnablePush(false)
	fr.SetBody(st)

	got := writeAndRead(t, fr)
	defer ReleaseFrameHeader(got)

	gst := got.Body().(*Settings)
	assert.EqualValues(t, 128, gst.MaxConcurrentStreams())
	assert.EqualValues(t, 1<<18, gst.InitialWindowSize())
	assert.False(t, gst.EnablePush())
}

func TestSettingsAckHasEmptyPayload(t *testing.T) {
	fr := AcquireFrameHeader()
	defer ReleaseFrameHeader(fr)

	st := AcquireFrame(FrameSettings).(*Settings)
	st.SetAck(true)
	fr.SetBody(st)

	got := writeAndRead(t, fr)
	defer ReleaseFrameHeader(got)

	assert.True(t, got.Body().(*Settings).Ack())
	assert.Equal(t, 0, got.Len())
}

func TestHeadersFrameRoundTrip(t *testing.T) {
	enc := AcquireHPack()
	defer ReleaseHPack(enc)

	fr := AcquireFrameHeader()
	defer ReleaseFrameHeader(fr)
	fr.SetStream(1)

	h := AcquireFrame(FrameHeaders).(*Headers)
	h.SetEndHeaders(true)
	h.SetEndStream(true)

	hf := AcquireHeaderField()
	hf.Set(":method", "GET")
	h.AppendHeaderField(enc, hf, false)
	ReleaseHeaderField(hf)

	fr.SetBody(h)

	got := writeAndRead(t, fr)
	defer ReleaseFrameHeader(got)

	gh := got.Body().(*Headers)
	assert.True(t, gh.EndHeaders())
	assert.True(t, gh.EndStream())
	assert.NotEmpty(t, gh.Headers())
}

func TestUnknownFrameTypeIsIgnored(t *testing.T) {
	fr := AcquireFrameHeader()
	fr.SetStream(0)
	unk := AcquireFrame(FrameType(0x42))
	fr.SetBody(unk)
	got := writeAndRead(t, fr)
	defer ReleaseFrameHeader(got)

	assert.Equal(t, FrameType(0x42), got.Type())
}

func TestReadFrameFromWithSizeRejectsOversizedFrame(t *testing.T) {
	fr := AcquireFrameHeader()
	fr.SetStream(1)
	d := AcquireFrame(FrameData).(*Data)
	d.SetData(bytes.Repeat([]byte{'a'}, 100))
	fr.SetBody(d)

	buf := &bytes.Buffer{}
	bw := bufio.NewWriter(buf)
	_, err := fr.WriteTo(bw)
	require.NoError(t, err)
	require.NoError(t, bw.Flush())
	ReleaseFrameHeader(fr)

	br := bufio.NewReader(buf)
	_, err = ReadFrameFromWithSize(br, 10)
	assert.ErrorIs(t, err, ErrPayloadExceeds)
}
