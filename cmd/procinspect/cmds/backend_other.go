//go:build !linux && !windows

package cmds

import (
	"fmt"
	"runtime"

	"procinspect/process"
)

func platformBackend() (process.Backend, error) {
	return nil, fmt.Errorf("%s: %w", runtime.GOOS, process.ErrUnsupportedPlatform)
}
