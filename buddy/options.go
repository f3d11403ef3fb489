package buddy

import (
	"fmt"
	"log/slog"

	"github.com/joshuapare/buddykit/internal/pow2"
)

// Defaults match the classic demo arena: 1KB split down to 16-byte blocks.
const (
	DefaultTotalSize    = 1024
	DefaultMinBlockSize = 16
)

// Option configures an Allocator at construction time.
type Option func(*options)

type options struct {
	backing    Backing
	log        *slog.Logger
	zeroOnFree bool
}

// WithBacking selects the arena's backing store. Default: BackingHeap.
func WithBacking(b Backing) Option {
	return func(o *options) { o.backing = b }
}

// WithLogger routes split/merge/exhaustion events to l at debug level.
// Default: the package-wide logger.L.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithZeroOnFree scrubs a block's bytes when it is freed.
func WithZeroOnFree(on bool) Option {
	return func(o *options) { o.zeroOnFree = on }
}

// Config is the flat form of New's parameters, convenient for flags and files.
type Config struct {
	TotalSize    int     `json:"total_size"`
	MinBlockSize int     `json:"min_block_size"`
	Backing      Backing `json:"backing"`
	ZeroOnFree   bool    `json:"zero_on_free"`
}

// DefaultConfig returns a 1024-byte heap arena with 16-byte minimum blocks.
func DefaultConfig() Config {
	return Config{
		TotalSize:    DefaultTotalSize,
		MinBlockSize: DefaultMinBlockSize,
		Backing:      BackingHeap,
	}
}

// Validate checks the size preconditions of New.
func (c Config) Validate() error {
	switch {
	case !pow2.IsPow2(c.MinBlockSize):
		return fmt.Errorf("%w: min block size %d is not a power of two", ErrInvalidConfig, c.MinBlockSize)
	case c.MinBlockSize < HeaderSize:
		return fmt.Errorf("%w: min block size %d smaller than header (%d)", ErrInvalidConfig, c.MinBlockSize, HeaderSize)
	case !pow2.IsPow2(c.TotalSize):
		return fmt.Errorf("%w: total size %d is not a power of two", ErrInvalidConfig, c.TotalSize)
	case c.TotalSize < c.MinBlockSize:
		return fmt.Errorf("%w: total size %d < min block size %d", ErrInvalidConfig, c.TotalSize, c.MinBlockSize)
	case pow2.Log2(c.TotalSize)-pow2.Log2(c.MinBlockSize) > MaxOrder:
		return fmt.Errorf("%w: total/min ratio exceeds 2^%d", ErrInvalidConfig, MaxOrder)
	}
	return nil
}

// Options converts the non-size fields of c to Options.
func (c Config) Options() []Option {
	return []Option{WithBacking(c.Backing), WithZeroOnFree(c.ZeroOnFree)}
}

// NewFromConfig is New(c.TotalSize, c.MinBlockSize, c.Options()..., extra...).
func NewFromConfig(c Config, extra ...Option) (*Allocator, error) {
	return New(c.TotalSize, c.MinBlockSize, append(c.Options(), extra...)...)
}
