//go:build linux

package process_linux

import (
	"bytes"
	"os"
	"strconv"
	"strings"

	"procinspect/process"

	"golang.org/x/sys/unix"
)

var _ process.ProcessInfoBackend = (*LinuxBackend)(nil)

// ProcessInfo reads the parent from /proc/<pid>/stat and the arguments from
// /proc/<pid>/cmdline. Neither file needs ptrace access.
func (b *LinuxBackend) ProcessInfo(pid process.ProcessID) (process.ProcessInfo, error) {
	stat, err := os.ReadFile(b.procPath(pid, "stat"))
	if err != nil {
		return process.ProcessInfo{}, unwrapErrno(err)
	}
	ppid, err := parseStatPPID(string(stat))
	if err != nil {
		return process.ProcessInfo{}, err
	}

	cmdline, err := os.ReadFile(b.procPath(pid, "cmdline"))
	if err != nil {
		return process.ProcessInfo{}, unwrapErrno(err)
	}

	return process.ProcessInfo{
		PID:         pid,
		ParentPID:   ppid,
		CommandLine: splitCmdline(cmdline),
	}, nil
}

// parseStatPPID extracts the parent PID from a stat line. The command name is
// wrapped in parentheses and may itself contain spaces and parentheses, so
// fields are counted from the last ')'.
func parseStatPPID(stat string) (process.ProcessID, error) {
	end := strings.LastIndexByte(stat, ')')
	if end < 0 {
		return 0, unix.EINVAL
	}
	// state ppid pgrp ...
	fields := strings.Fields(stat[end+1:])
	if len(fields) < 2 {
		return 0, unix.EINVAL
	}
	ppid, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return 0, unix.EINVAL
	}
	return process.ProcessID(ppid), nil
}

func splitCmdline(raw []byte) []string {
	raw = bytes.TrimRight(raw, "\x00")
	if len(raw) == 0 {
		return []string{}
	}
	parts := bytes.Split(raw, []byte{0})
	args := make([]string, len(parts))
	for i, p := range parts {
		args[i] = string(p)
	}
	return args
}
