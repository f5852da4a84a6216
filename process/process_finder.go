package process

import "errors"

// ErrParentUnsupported is returned when the backend cannot report process
// parents or command lines.
var ErrParentUnsupported = errors.New("backend does not report process parents")

// ProcessInfo is what the OS reports about a process without a handle to it.
type ProcessInfo struct {
	PID       ProcessID
	ParentPID ProcessID
	// CommandLine is nil where the platform does not expose it, and empty for
	// kernel threads.
	CommandLine []string
}

// ProcessInfoBackend is implemented by backends that can look up the parent
// and command line of a process by PID.
type ProcessInfoBackend interface {
	ProcessInfo(pid ProcessID) (ProcessInfo, error)
}

// QueryInfo looks up pid through b. It fails with ErrParentUnsupported when
// b does not implement ProcessInfoBackend.
func QueryInfo(b Backend, pid ProcessID) (ProcessInfo, error) {
	ib, ok := b.(ProcessInfoBackend)
	if !ok {
		return ProcessInfo{}, ErrParentUnsupported
	}
	info, err := ib.ProcessInfo(pid)
	if err != nil {
		return ProcessInfo{}, newOSError("ProcessInfo", pid, err)
	}
	return info, nil
}
