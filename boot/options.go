package boot

import "time"

// Config holds the protocol engine configuration.
type Config struct {
	// ResponseTimeout is the deadline for enter, exit, write and verify
	// responses.
	ResponseTimeout time.Duration

	// EraseTimeout is the deadline for sector erase completion. Erasing
	// a large sector takes the flash controller over a second.
	EraseTimeout time.Duration

	// EnterAttempts bounds bootloader entry retries. The board may still
	// be rebooting when the first requests go out.
	EnterAttempts int

	// AckWindow is the maximum number of sent-but-unacknowledged write
	// commands.
	AckWindow int

	// FirstSector and SectorCount select the flash sectors erased before
	// programming. The defaults cover the drquad32 application region.
	FirstSector uint32
	SectorCount uint32

	// Progress receives percent/status updates (optional).
	Progress ProgressFunc

	// OnFrame receives non-boot frames seen while waiting for responses
	// (optional).
	OnFrame FrameFunc

	// Logger receives step timing and diagnostics (optional).
	Logger Logger
}

func defaultConfig() Config {
	return Config{
		ResponseTimeout: 500 * time.Millisecond,
		EraseTimeout:    2 * time.Second,
		EnterAttempts:   100,
		AckWindow:       10,
		FirstSector:     4,
		SectorCount:     8,
	}
}

// Option is a functional option for configuring the protocol engine.
type Option func(*Config)

// WithResponseTimeout sets the per-command response deadline.
func WithResponseTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.ResponseTimeout = d
	}
}

// WithEraseTimeout sets the sector erase completion deadline.
func WithEraseTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.EraseTimeout = d
	}
}

// WithEnterAttempts sets the bootloader entry retry bound.
func WithEnterAttempts(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.EnterAttempts = n
		}
	}
}

// WithAckWindow sets the write pipelining window.
func WithAckWindow(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.AckWindow = n
		}
	}
}

// WithSectors selects the flash sectors to erase before programming.
func WithSectors(first, count uint32) Option {
	return func(c *Config) {
		c.FirstSector = first
		c.SectorCount = count
	}
}

// WithProgress sets the progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(c *Config) {
		c.Progress = fn
	}
}

// WithFrameHandler sets the handler for interleaved non-boot frames.
func WithFrameHandler(fn FrameFunc) Option {
	return func(c *Config) {
		c.OnFrame = fn
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(l Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}
