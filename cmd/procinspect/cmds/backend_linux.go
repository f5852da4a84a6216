//go:build linux

package cmds

import (
	"procinspect/process"
	"procinspect/process_linux"
)

func platformBackend() (process.Backend, error) {
	return process_linux.New(), nil
}
