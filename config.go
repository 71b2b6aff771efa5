package http2

import (
	"bytes"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Options is the engine's configuration surface. Zero value fields are
// filled from the Default* constants by ParseOptions and by NewOptions;
// callers constructing Options by hand (not via YAML) should start from
// NewOptions.
type Options struct {
	MaxConcurrentStreams uint32 `yaml:"max_concurrent_streams"`
	InitialWindowSize    uint32 `yaml:"initial_window_size"`
	MaxFrameSize         uint32 `yaml:"max_frame_size"`
	MaxHeaderListSize    uint32 `yaml:"max_header_list_size"`
	HeaderTableSize      uint32 `yaml:"header_table_size"`

	// EnablePush governs this server's SETTINGS_ENABLE_PUSH. Defaults to
	// false: no handler in this codebase initiates server push.
	EnablePush bool `yaml:"enable_push"`

	// WorkerPoolSize sizes the Handler dispatch pool. It is not consumed
	// by anything in this package directly; a caller wiring in its own
	// worker-pool collaborator (goroutine-pool-backed Handler execution)
	// reads it back off the parsed Options.
	WorkerPoolSize int `yaml:"worker_pool_size"`

	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	MaxRequestTime time.Duration `yaml:"max_request_time"`
	PingInterval   time.Duration `yaml:"ping_interval"`

	// MaxContinuationFrames/MaxContinuationBytes/MaxContinuationTime
	// bound a single HEADERS+CONTINUATION assembly.
	MaxContinuationFrames int           `yaml:"max_continuation_frames"`
	MaxContinuationBytes  int           `yaml:"max_continuation_bytes"`
	MaxContinuationTime   time.Duration `yaml:"max_continuation_time"`

	// Rapid-reset guard (CVE-2023-44487).
	RapidResetWindow    time.Duration `yaml:"rapid_reset_window"`
	RapidResetMaxResets int           `yaml:"rapid_reset_max_resets"`

	// RapidResetThreshold is how soon after a stream is opened a client
	// RST_STREAM on it counts toward the rapid-reset guard at all. A
	// reset arriving later than this looks like an ordinary client
	// cancellation, not a CVE-2023-44487 flood, and is let through
	// without incrementing the guard's counter.
	RapidResetThreshold time.Duration `yaml:"rapid_reset_threshold_ms"`

	// Token-bucket rate limits for SETTINGS/PING/RST_STREAM/PRIORITY
	// floods.
	MaxSettingsBurst      int `yaml:"max_settings_burst"`
	MaxSettingsPerSecond  int `yaml:"max_settings_per_second"`
	MaxPingBurst          int `yaml:"max_ping_burst"`
	MaxPingPerSecond      int `yaml:"max_ping_per_second"`
	MaxRstStreamBurst     int `yaml:"max_rst_stream_burst"`
	MaxRstStreamPerSecond int `yaml:"max_rst_stream_per_second"`
	MaxPriorityBurst      int `yaml:"max_priority_burst"`
	MaxPriorityPerSecond  int `yaml:"max_priority_per_second"`

	FlowControlStrategy FlowControlStrategy `yaml:"-"`

	Logger Logger `yaml:"-"`
}

// defaultOptionsMaxHeaderListSize is the decompressed-header-list cap this
// server enforces out of the box. Unlike settings.go's
// DefaultMaxHeaderListSize (the RFC 7540 wire default of 0/unlimited,
// assumed about a peer until its SETTINGS says otherwise), this is the
// value this server itself operates under unless a caller raises or
// disables it explicitly.
const defaultOptionsMaxHeaderListSize = 8192

// NewOptions returns an Options populated with this module's protocol
// defaults plus its DoS-hardening budgets.
func NewOptions() *Options {
	return &Options{
		MaxConcurrentStreams: DefaultMaxConcurrentStreams,
		InitialWindowSize:    DefaultWindowSize,
		MaxFrameSize:         DefaultMaxFrameSize,
		MaxHeaderListSize:    defaultOptionsMaxHeaderListSize,
		HeaderTableSize:      DefaultHeaderTableSize,

		EnablePush:     DefaultEnablePush,
		WorkerPoolSize: 0,

		IdleTimeout:    5 * time.Minute,
		MaxRequestTime: 0,
		PingInterval:   0,

		MaxContinuationFrames: 100,
		MaxContinuationBytes:  32 * 1024,
		MaxContinuationTime:   5 * time.Second,

		RapidResetWindow:     10 * time.Second,
		RapidResetMaxResets:  20,
		RapidResetThreshold:  100 * time.Millisecond,

		MaxSettingsBurst:      10,
		MaxSettingsPerSecond:  5,
		MaxPingBurst:          10,
		MaxPingPerSecond:      5,
		MaxRstStreamBurst:     50,
		MaxRstStreamPerSecond: 20,
		MaxPriorityBurst:      50,
		MaxPriorityPerSecond:  20,

		FlowControlStrategy: FlowControlModerate,
		Logger:              &ColorLogger{},
	}
}

// ParseOptions decodes YAML bytes into a validated Options, starting
// from NewOptions' defaults. Unknown keys are rejected (yaml.v3's
// KnownFields(true) decoder mode).
func ParseOptions(b []byte) (*Options, error) {
	opts := NewOptions()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(opts); err != nil {
		return nil, fmt.Errorf("http2: parsing options: %w", err)
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	return opts, nil
}

// Validate rejects option combinations the engine cannot operate under.
func (o *Options) Validate() error {
	if o.MaxFrameSize < DefaultMaxFrameSize || o.MaxFrameSize > 1<<24-1 {
		return fmt.Errorf("http2: max_frame_size must be between %d and %d", DefaultMaxFrameSize, 1<<24-1)
	}
	if o.InitialWindowSize > maxWindowSize {
		return fmt.Errorf("http2: initial_window_size exceeds 2^31-1")
	}
	if o.MaxContinuationFrames <= 0 {
		return fmt.Errorf("http2: max_continuation_frames must be positive")
	}
	if o.RapidResetThreshold < 0 {
		return fmt.Errorf("http2: rapid_reset_threshold_ms must not be negative")
	}
	if o.WorkerPoolSize < 0 {
		return fmt.Errorf("http2: worker_pool_size must not be negative")
	}
	return nil
}
