//go:build windows

package process_windows

import (
	"syscall"
	"unsafe"

	"procinspect/process"

	"golang.org/x/sys/windows"
)

var (
	modkernel32 = windows.NewLazySystemDLL("kernel32.dll")
	modpsapi    = windows.NewLazySystemDLL("psapi.dll")

	// x/sys/windows wraps both of these but drops the returned count
	procVirtualQueryEx     = modkernel32.NewProc("VirtualQueryEx")
	procGetModuleBaseNameA = modpsapi.NewProc("GetModuleBaseNameA")
)

// WindowsBackend implements process.Backend with the psapi and kernel32
// process APIs.
type WindowsBackend struct{}

var _ process.Backend = WindowsBackend{}

// New creates a new WindowsBackend instance
func New() WindowsBackend {
	return WindowsBackend{}
}

func (WindowsBackend) EnumProcesses(pids []uint32) (uint32, error) {
	if len(pids) == 0 {
		return 0, nil
	}
	var bytesReturned uint32
	if err := windows.EnumProcesses(pids, &bytesReturned); err != nil {
		return 0, err
	}
	return bytesReturned, nil
}

func (WindowsBackend) OpenProcess(access process.Access, pid process.ProcessID) (process.RawHandle, error) {
	handle, err := windows.OpenProcess(uint32(access), false, uint32(pid))
	if err != nil {
		return 0, err
	}
	return process.RawHandle(handle), nil
}

func (WindowsBackend) CloseHandle(h process.RawHandle) error {
	return windows.CloseHandle(windows.Handle(h))
}

// EnumProcessModules asks for a single module; the first entry is always the
// process executable.
func (WindowsBackend) EnumProcessModules(h process.RawHandle) (process.Module, error) {
	var module windows.Handle
	var needed uint32
	err := windows.EnumProcessModules(windows.Handle(h), &module, uint32(unsafe.Sizeof(module)), &needed)
	if err != nil {
		return 0, err
	}
	return process.Module(module), nil
}

func (WindowsBackend) ModuleBaseName(h process.RawHandle, m process.Module, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, windows.ERROR_INSUFFICIENT_BUFFER
	}
	r1, _, e1 := procGetModuleBaseNameA.Call(
		uintptr(h),
		uintptr(m),
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(len(buf)),
	)
	if r1 == 0 {
		return 0, errno(e1)
	}
	return int(r1), nil
}

func (WindowsBackend) ReadProcessMemory(h process.RawHandle, addr process.ProcessMemoryAddress, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	var bytesRead uintptr
	err := windows.ReadProcessMemory(windows.Handle(h), uintptr(addr), &buf[0], uintptr(len(buf)), &bytesRead)
	if err != nil {
		return 0, err
	}
	return int(bytesRead), nil
}

func (WindowsBackend) VirtualQueryEx(h process.RawHandle, addr process.ProcessMemoryAddress, out *process.MemoryRegion) (uintptr, error) {
	var mbi windows.MemoryBasicInformation
	written, _, e1 := procVirtualQueryEx.Call(
		uintptr(h),
		uintptr(addr),
		uintptr(unsafe.Pointer(&mbi)),
		unsafe.Sizeof(mbi),
	)
	if written == 0 {
		// ERROR_INVALID_PARAMETER past the highest user address
		return 0, errno(e1)
	}

	*out = process.MemoryRegion{
		Base:              process.ProcessMemoryAddress(mbi.BaseAddress),
		Size:              process.ProcessMemorySize(mbi.RegionSize),
		AllocationBase:    process.ProcessMemoryAddress(mbi.AllocationBase),
		AllocationProtect: process.Protection(mbi.AllocationProtect),
		Protect:           process.Protection(mbi.Protect),
		State:             process.RegionState(mbi.State),
		Type:              process.RegionType(mbi.Type),
	}
	return written, nil
}

func errno(e1 error) error {
	if e, ok := e1.(syscall.Errno); ok && e == 0 {
		return syscall.EINVAL
	}
	return e1
}
