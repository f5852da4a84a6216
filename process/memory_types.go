package process

import (
	"fmt"
)

// ProcessMemoryAddress represents a memory address within a process
type ProcessMemoryAddress uint64

func (pma ProcessMemoryAddress) ToString() string {
	return fmt.Sprintf("0x%X", uint64(pma))
}

// ProcessMemorySize represents a size of memory region
type ProcessMemorySize uint64

func (pms ProcessMemorySize) ToString() string {
	return fmt.Sprintf("%d bytes", uint64(pms))
}

// RegionState is the allocation state of a memory region.
type RegionState uint32

const (
	RegionStateCommitted RegionState = 0x1000  // MEM_COMMIT
	RegionStateReserved  RegionState = 0x2000  // MEM_RESERVE
	RegionStateFree      RegionState = 0x10000 // MEM_FREE
)

func (s RegionState) String() string {
	switch s {
	case RegionStateCommitted:
		return "commit"
	case RegionStateReserved:
		return "reserve"
	case RegionStateFree:
		return "free"
	}
	return fmt.Sprintf("state(0x%x)", uint32(s))
}

// RegionType describes what backs a memory region.
type RegionType uint32

const (
	RegionTypePrivate RegionType = 0x20000   // MEM_PRIVATE
	RegionTypeMapped  RegionType = 0x40000   // MEM_MAPPED
	RegionTypeImage   RegionType = 0x1000000 // MEM_IMAGE
)

func (t RegionType) String() string {
	switch t {
	case 0:
		return "-"
	case RegionTypePrivate:
		return "private"
	case RegionTypeMapped:
		return "mapped"
	case RegionTypeImage:
		return "image"
	}
	return fmt.Sprintf("type(0x%x)", uint32(t))
}

// Protection holds page protection flags using the PAGE_* encoding.
type Protection uint32

const (
	ProtectNoAccess         Protection = 0x01
	ProtectReadOnly         Protection = 0x02
	ProtectReadWrite        Protection = 0x04
	ProtectWriteCopy        Protection = 0x08
	ProtectExecute          Protection = 0x10
	ProtectExecuteRead      Protection = 0x20
	ProtectExecuteReadWrite Protection = 0x40
	ProtectExecuteWriteCopy Protection = 0x80
	ProtectGuard            Protection = 0x100
	ProtectNoCache          Protection = 0x200
	ProtectWriteCombine     Protection = 0x400
)

const (
	protectReadable   = ProtectReadOnly | ProtectReadWrite | ProtectWriteCopy | ProtectExecuteRead | ProtectExecuteReadWrite | ProtectExecuteWriteCopy
	protectWritable   = ProtectReadWrite | ProtectWriteCopy | ProtectExecuteReadWrite | ProtectExecuteWriteCopy
	protectExecutable = ProtectExecute | ProtectExecuteRead | ProtectExecuteReadWrite | ProtectExecuteWriteCopy
)

// IsReadable reports whether pages with this protection can be read.
// Guard pages are never considered readable.
func (p Protection) IsReadable() bool {
	return p&protectReadable != 0 && p&ProtectGuard == 0
}

func (p Protection) IsWritable() bool {
	return p&protectWritable != 0
}

func (p Protection) IsExecutable() bool {
	return p&protectExecutable != 0
}

// String renders the protection in the familiar "rwx" form, followed by
// modifiers such as "+guard".
func (p Protection) String() string {
	perms := []byte("---")
	if p&protectReadable != 0 {
		perms[0] = 'r'
	}
	if p.IsWritable() {
		perms[1] = 'w'
	}
	if p.IsExecutable() {
		perms[2] = 'x'
	}
	s := string(perms)
	if p&ProtectGuard != 0 {
		s += "+guard"
	}
	if p&ProtectNoCache != 0 {
		s += "+nocache"
	}
	if p&ProtectWriteCombine != 0 {
		s += "+wc"
	}
	return s
}

// MemoryRegion describes one contiguous range of a target's virtual address
// space as reported by the OS. It holds no reference to the Handle that
// produced it.
type MemoryRegion struct {
	Base              ProcessMemoryAddress
	Size              ProcessMemorySize
	AllocationBase    ProcessMemoryAddress
	AllocationProtect Protection
	Protect           Protection
	State             RegionState
	Type              RegionType
}

// End returns the first address past the region. It wraps to zero for a
// region that reaches the top of a 64-bit address space.
func (r MemoryRegion) End() ProcessMemoryAddress {
	return r.Base + ProcessMemoryAddress(r.Size)
}

// Contains reports whether addr falls inside the region.
func (r MemoryRegion) Contains(addr ProcessMemoryAddress) bool {
	return addr >= r.Base && uint64(addr-r.Base) < uint64(r.Size)
}

func (r MemoryRegion) IsCommitted() bool {
	return r.State == RegionStateCommitted
}

// IsReadable reports whether the region is committed and its pages can be
// read.
func (r MemoryRegion) IsReadable() bool {
	return r.IsCommitted() && r.Protect.IsReadable()
}

// String returns a string representation of the memory region
func (r MemoryRegion) String() string {
	return fmt.Sprintf("Address: %x, Size: %d, Perms: %s, State: %s, Type: %s",
		uint64(r.Base), uint64(r.Size), r.Protect, r.State, r.Type)
}
