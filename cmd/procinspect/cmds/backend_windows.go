//go:build windows

package cmds

import (
	"procinspect/process"
	"procinspect/process_windows"
)

func platformBackend() (process.Backend, error) {
	return process_windows.New(), nil
}
