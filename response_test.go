package http2

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSink(connSend, streamSend int32) (*streamSink, *conn) {
	c := &conn{
		flow:   newConnFlowControl(connSend),
		writer: make(chan *FrameHeader, 16),
		closer: make(chan struct{}),
	}
	c.peerSettings.SetMaxFrameSize(DefaultMaxFrameSize)

	return &streamSink{
		c:    c,
		id:   1,
		flow: newStreamFlowControl(streamSend, streamSend),
	}, c
}

func TestStreamSinkSendDataWithinWindow(t *testing.T) {
	s, c := newTestSink(65535, 65535)

	require.NoError(t, s.SendData([]byte("hello"), true))

	select {
	case fr := <-c.writer:
		d := fr.Body().(*Data)
		assert.Equal(t, []byte("hello"), d.Data())
		assert.True(t, d.EndStream())
	default:
		t.Fatal("expected a DATA frame on the writer channel")
	}
}

func TestStreamSinkSendDataSplitsOnFrameSize(t *testing.T) {
	s, c := newTestSink(1<<20, 1<<20)
	c.peerSettings.SetMaxFrameSize(16)

	payload := make([]byte, 40)
	require.NoError(t, s.SendData(payload, true))

	var got int
	var sawEndStream bool
	for i := 0; i < 3; i++ {
		fr := <-c.writer
		d := fr.Body().(*Data)
		got += len(d.Data())
		if d.EndStream() {
			sawEndStream = true
		}
	}
	assert.Equal(t, 40, got)
	assert.True(t, sawEndStream)
}

func TestStreamSinkSendDataBlocksUntilWindowUpdate(t *testing.T) {
	s, c := newTestSink(65535, 4)

	done := make(chan error, 1)
	go func() {
		done <- s.SendData([]byte("longer than four bytes"), false)
	}()

	select {
	case <-done:
		t.Fatal("SendData should block until the stream window grows")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, s.flow.AddSend(1<<20))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("SendData never unblocked after AddSend")
	}
}

func TestStreamSinkSendDataErrorsWhenStreamCloses(t *testing.T) {
	s, _ := newTestSink(65535, 0)

	done := make(chan error, 1)
	go func() {
		done <- s.SendData([]byte("blocked forever without this"), true)
	}()

	select {
	case <-done:
		t.Fatal("SendData should block with a zero stream window")
	case <-time.After(20 * time.Millisecond):
	}

	s.flow.Close()

	select {
	case err := <-done:
		require.Error(t, err)
		var se *StreamError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, StreamClosed, se.Code)
	case <-time.After(time.Second):
		t.Fatal("SendData never returned after the stream closed")
	}
}

func TestStreamSinkSendDataErrorsWhenConnCloses(t *testing.T) {
	s, c := newTestSink(0, 65535)

	done := make(chan error, 1)
	go func() {
		done <- s.SendData([]byte("blocked forever without this"), true)
	}()

	select {
	case <-done:
		t.Fatal("SendData should block with a zero connection window")
	case <-time.After(20 * time.Millisecond):
	}

	close(c.closer)

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("SendData never returned after the connection closed")
	}
}
