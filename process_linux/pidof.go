//go:build linux

package process_linux

import (
	"os"
	"strconv"
	"unsafe"
)

// EnumProcesses lists the numeric entries of /proc into pids. Like the
// Windows call, it stops when pids is full and reports the bytes written, so
// a completely filled buffer is indistinguishable from a truncated one.
func (b *LinuxBackend) EnumProcesses(pids []uint32) (uint32, error) {
	entries, err := os.ReadDir(b.procRoot)
	if err != nil {
		return 0, unwrapErrno(err)
	}

	n := 0
	for _, e := range entries {
		if n == len(pids) {
			break
		}
		if !e.IsDir() {
			continue
		}
		pid, err := strconv.ParseUint(e.Name(), 10, 32)
		if err != nil || pid == 0 {
			continue // not a PID dir
		}
		pids[n] = uint32(pid)
		n++
	}

	return uint32(n) * uint32(unsafe.Sizeof(pids[0])), nil
}
