package process

import (
	"fmt"
	"unsafe"

	"github.com/samber/lo"
)

const (
	DefaultEnumInitialCapacity = 1024
	DefaultEnumMaxGrowths      = 8

	// MaxEnumInitialCapacity bounds the first buffer to 64 MiB of PIDs
	MaxEnumInitialCapacity = 1 << 24
)

type enumConfig struct {
	initialCapacity int
	maxGrowths      int
}

// EnumOption configures EnumerateProcesses.
type EnumOption func(*enumConfig)

// WithInitialCapacity sets the number of PIDs the first attempt has room for.
func WithInitialCapacity(n int) EnumOption {
	return func(c *enumConfig) {
		if n > 0 {
			c.initialCapacity = n
		}
	}
}

// WithMaxGrowths bounds how many times the buffer is doubled after a
// possibly truncated result.
func WithMaxGrowths(n int) EnumOption {
	return func(c *enumConfig) {
		if n >= 0 {
			c.maxGrowths = n
		}
	}
}

// EnumerateProcesses returns the identifiers of all running processes.
//
// The OS reports how many bytes it wrote but not whether more would have
// fit, so a result that exactly fills the buffer is treated as truncated and
// retried with twice the capacity. Identifiers of zero and duplicates are
// dropped.
func EnumerateProcesses(b Backend, opts ...EnumOption) ([]ProcessID, error) {
	cfg := enumConfig{
		initialCapacity: DefaultEnumInitialCapacity,
		maxGrowths:      DefaultEnumMaxGrowths,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	capacity := cfg.initialCapacity
	for attempt := 0; ; attempt++ {
		pids := make([]uint32, capacity)
		written, err := b.EnumProcesses(pids)
		if err != nil {
			return nil, newOSError("EnumProcesses", 0, err)
		}

		n, truncated, err := filledPIDs(written, len(pids))
		if err != nil {
			return nil, err
		}
		if !truncated {
			return normalizePIDs(pids[:n]), nil
		}

		if attempt >= cfg.maxGrowths {
			return nil, fmt.Errorf("%w (%d pids after %d growths)", ErrEnumerationTruncated, capacity, attempt)
		}
		capacity *= 2
	}
}

// filledPIDs converts the byte count reported for a buffer of capacity PIDs
// into a PID count. truncated is set when the buffer came back full.
func filledPIDs(written uint32, capacity int) (n int, truncated bool, err error) {
	const pidSize = uint64(unsafe.Sizeof(uint32(0)))

	capBytes := uint64(capacity) * pidSize
	switch {
	case uint64(written) > capBytes:
		return 0, false, fmt.Errorf("EnumProcesses reported %d bytes for a %d byte buffer", written, capBytes)
	case uint64(written) == capBytes:
		return capacity, true, nil
	}
	return int(uint64(written) / pidSize), false, nil
}

func normalizePIDs(raw []uint32) []ProcessID {
	pids := lo.FilterMap(raw, func(pid uint32, _ int) (ProcessID, bool) {
		return ProcessID(pid), pid != 0
	})
	return lo.Uniq(pids)
}
