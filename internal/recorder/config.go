package recorder

import (
	"time"

	"github.com/yanun0323/errors"
)

const (
	defaultBufferSize    = 1 << 20
	defaultFilePrefix    = "market_data"
	defaultRotatePeriod  = 60 * time.Minute
	defaultFlushInterval = time.Second
)

// Config controls the binary recorder.
type Config struct {
	// Dir is the directory recording files are created in.
	Dir string
	// FilePrefix names files <prefix>_<YYYYMMDD_HHMMSS>.bin.
	FilePrefix string
	// RotatePeriod closes the current file and opens a new one this
	// often. The first event opens the first file.
	RotatePeriod time.Duration
	// FlushInterval forces buffered frames to disk this often to bound
	// data loss on crash. Buffer overflow flushes regardless.
	FlushInterval time.Duration
	// BufferSize is the in-memory write buffer in bytes.
	BufferSize int
	// Clock supplies wall time for rotation and file naming. Test hook;
	// nil means time.Now.
	Clock func() time.Time
}

// DefaultConfig returns the baseline recorder configuration.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:           dir,
		FilePrefix:    defaultFilePrefix,
		RotatePeriod:  defaultRotatePeriod,
		FlushInterval: defaultFlushInterval,
		BufferSize:    defaultBufferSize,
	}
}

func (c Config) withDefaults() Config {
	if c.FilePrefix == "" {
		c.FilePrefix = defaultFilePrefix
	}
	if c.RotatePeriod <= 0 {
		c.RotatePeriod = defaultRotatePeriod
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = defaultFlushInterval
	}
	if c.BufferSize <= 0 {
		c.BufferSize = defaultBufferSize
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	return c
}

// Validate checks if the configuration is usable.
func (c Config) Validate() error {
	if c.Dir == "" {
		return errors.New("invalid recorder config: Dir is empty")
	}
	return nil
}
