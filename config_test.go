package http2

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOptionsDefaults(t *testing.T) {
	o := NewOptions()

	assert.EqualValues(t, DefaultMaxConcurrentStreams, o.MaxConcurrentStreams)
	assert.EqualValues(t, DefaultWindowSize, o.InitialWindowSize)
	assert.Equal(t, 5*time.Minute, o.IdleTimeout)
	assert.Equal(t, 100, o.MaxContinuationFrames)
	assert.Equal(t, FlowControlModerate, o.FlowControlStrategy)
	assert.EqualValues(t, defaultOptionsMaxHeaderListSize, o.MaxHeaderListSize)
	assert.False(t, o.EnablePush)
	assert.Equal(t, 100*time.Millisecond, o.RapidResetThreshold)
	require.NoError(t, o.Validate())
}

func TestParseOptionsAcceptsSpecRecognizedKeys(t *testing.T) {
	yamlDoc := []byte(`
enable_push: true
worker_pool_size: 8
rapid_reset_threshold_ms: 250ms
`)

	o, err := ParseOptions(yamlDoc)
	require.NoError(t, err)

	assert.True(t, o.EnablePush)
	assert.Equal(t, 8, o.WorkerPoolSize)
	assert.Equal(t, 250*time.Millisecond, o.RapidResetThreshold)
}

func TestValidateRejectsNegativeWorkerPoolSize(t *testing.T) {
	o := NewOptions()
	o.WorkerPoolSize = -1
	assert.Error(t, o.Validate())
}

func TestValidateRejectsNegativeRapidResetThreshold(t *testing.T) {
	o := NewOptions()
	o.RapidResetThreshold = -1
	assert.Error(t, o.Validate())
}

func TestParseOptionsOverridesDefaults(t *testing.T) {
	yamlDoc := []byte(`
max_concurrent_streams: 64
idle_timeout: 30s
max_continuation_frames: 10
`)

	o, err := ParseOptions(yamlDoc)
	require.NoError(t, err)

	assert.EqualValues(t, 64, o.MaxConcurrentStreams)
	assert.Equal(t, 30*time.Second, o.IdleTimeout)
	assert.Equal(t, 10, o.MaxContinuationFrames)

	// untouched fields keep NewOptions' defaults.
	assert.EqualValues(t, DefaultWindowSize, o.InitialWindowSize)
}

func TestParseOptionsRejectsUnknownKeys(t *testing.T) {
	_, err := ParseOptions([]byte("not_a_real_option: 1\n"))
	assert.Error(t, err)
}

func TestValidateRejectsOutOfRangeFrameSize(t *testing.T) {
	o := NewOptions()
	o.MaxFrameSize = 1 << 25
	assert.Error(t, o.Validate())

	o.MaxFrameSize = DefaultMaxFrameSize - 1
	assert.Error(t, o.Validate())
}

func TestValidateRejectsZeroContinuationFrames(t *testing.T) {
	o := NewOptions()
	o.MaxContinuationFrames = 0
	assert.Error(t, o.Validate())
}
