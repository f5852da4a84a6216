package process

// Backend is the host OS boundary. Each method maps onto one OS call and
// follows that call's conventions: buffers are supplied by the caller and the
// OS-reported counts are returned untouched.
type Backend interface {
	// EnumProcesses fills pids with active process identifiers and returns the
	// number of bytes written. A return equal to the buffer size in bytes may
	// mean the list was truncated.
	EnumProcesses(pids []uint32) (bytesReturned uint32, err error)

	// OpenProcess opens pid with the requested access rights.
	OpenProcess(access Access, pid ProcessID) (RawHandle, error)

	// EnumProcessModules returns the primary module of the process.
	EnumProcessModules(h RawHandle) (Module, error)

	// ModuleBaseName copies the base file name of module m into buf and
	// returns the number of bytes copied. The name may be truncated to fit.
	ModuleBaseName(h RawHandle, m Module, buf []byte) (int, error)

	// ReadProcessMemory copies up to len(buf) bytes from addr into buf and
	// returns the number of bytes the OS copied.
	ReadProcessMemory(h RawHandle, addr ProcessMemoryAddress, buf []byte) (int, error)

	// VirtualQueryEx describes the region containing addr. A zero written
	// count means addr is past the end of the address space.
	VirtualQueryEx(h RawHandle, addr ProcessMemoryAddress, out *MemoryRegion) (written uintptr, err error)

	// CloseHandle releases h.
	CloseHandle(h RawHandle) error
}
