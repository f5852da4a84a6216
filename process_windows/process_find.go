//go:build windows

package process_windows

import (
	"unsafe"

	"procinspect/process"

	"golang.org/x/sys/windows"
)

var _ process.ProcessInfoBackend = WindowsBackend{}

// ProcessInfo finds pid in a toolhelp process snapshot. The command line
// lives in the target's PEB and is not reported.
func (WindowsBackend) ProcessInfo(pid process.ProcessID) (process.ProcessInfo, error) {
	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return process.ProcessInfo{}, err
	}
	defer windows.CloseHandle(snapshot)

	var entry windows.ProcessEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))
	for err = windows.Process32First(snapshot, &entry); err == nil; err = windows.Process32Next(snapshot, &entry) {
		if entry.ProcessID == uint32(pid) {
			return process.ProcessInfo{
				PID:       pid,
				ParentPID: process.ProcessID(entry.ParentProcessID),
			}, nil
		}
	}
	if err == windows.ERROR_NO_MORE_FILES {
		return process.ProcessInfo{}, windows.ERROR_FILE_NOT_FOUND
	}
	return process.ProcessInfo{}, err
}
