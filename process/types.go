package process

// ProcessID represents an OS-assigned process identifier. A ProcessID may be
// reused by the OS after the process exits, so it names a process only for
// the lifetime of a Handle opened on it.
type ProcessID uint32

// RawHandle is the opaque OS resource reference returned by a Backend.
type RawHandle uintptr

// Module is the opaque reference to a module loaded in a target process.
type Module uintptr

// Access is a set of process access rights requested at open time.
type Access uint32

const (
	// AccessVMRead allows reading the target's address space (PROCESS_VM_READ).
	AccessVMRead Access = 0x0010

	// AccessQueryInformation allows querying process and module information
	// (PROCESS_QUERY_INFORMATION).
	AccessQueryInformation Access = 0x0400

	// AccessInspect is the only access mask this package ever requests.
	AccessInspect = AccessQueryInformation | AccessVMRead
)
