package process

import (
	"errors"
	"sync"
)

var errFault = errors.New("bad address")

// fakeBackend is an in-memory host with a handful of processes.
type fakeBackend struct {
	mu sync.Mutex

	// EnumProcesses
	pids          []uint32
	alwaysFull    bool
	enumErr       error
	enumCapacites []int

	// OpenProcess
	openErr    error
	lastAccess Access
	nextRaw    RawHandle
	live       map[RawHandle]ProcessID
	closeCalls map[RawHandle]int

	// EnumProcessModules / ModuleBaseName
	moduleErr error
	name      []byte
	nameErr   error
	nameSizes []int

	// VirtualQueryEx
	regions    []MemoryRegion
	queryErr   error
	queryCalls int

	// ReadProcessMemory
	memBase ProcessMemoryAddress
	mem     []byte
	readErr error

	osCallsAfterOpen int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		nextRaw:    100,
		live:       make(map[RawHandle]ProcessID),
		closeCalls: make(map[RawHandle]int),
		name:       []byte("target.exe"),
	}
}

func (f *fakeBackend) EnumProcesses(pids []uint32) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.enumCapacites = append(f.enumCapacites, len(pids))
	if f.enumErr != nil {
		return 0, f.enumErr
	}
	if f.alwaysFull {
		for i := range pids {
			pids[i] = uint32(i + 1)
		}
		return uint32(len(pids) * 4), nil
	}
	n := copy(pids, f.pids)
	return uint32(n * 4), nil
}

func (f *fakeBackend) OpenProcess(access Access, pid ProcessID) (RawHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastAccess = access
	if f.openErr != nil {
		return 0, f.openErr
	}
	f.nextRaw++
	f.live[f.nextRaw] = pid
	return f.nextRaw, nil
}

func (f *fakeBackend) checkLive(h RawHandle) {
	f.osCallsAfterOpen++
	if _, ok := f.live[h]; !ok {
		panic("OS call on a released handle")
	}
}

func (f *fakeBackend) EnumProcessModules(h RawHandle) (Module, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.checkLive(h)
	if f.moduleErr != nil {
		return 0, f.moduleErr
	}
	return Module(0x400000), nil
}

func (f *fakeBackend) ModuleBaseName(h RawHandle, m Module, buf []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.checkLive(h)
	f.nameSizes = append(f.nameSizes, len(buf))
	if f.nameErr != nil {
		return 0, f.nameErr
	}
	return copy(buf, f.name), nil
}

func (f *fakeBackend) ReadProcessMemory(h RawHandle, addr ProcessMemoryAddress, buf []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.checkLive(h)
	if f.readErr != nil {
		return 0, f.readErr
	}
	if addr < f.memBase || addr >= f.memBase+ProcessMemoryAddress(len(f.mem)) {
		return 0, errFault
	}
	return copy(buf, f.mem[addr-f.memBase:]), nil
}

func (f *fakeBackend) VirtualQueryEx(h RawHandle, addr ProcessMemoryAddress, out *MemoryRegion) (uintptr, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.checkLive(h)
	f.queryCalls++
	if f.queryCalls > 10000 {
		panic("region walk did not terminate")
	}
	for _, r := range f.regions {
		if r.Size == 0 && r.Base == addr {
			*out = r
			return 48, nil
		}
		if r.Contains(addr) {
			*out = r
			return 48, nil
		}
	}
	if f.queryErr != nil {
		return 0, f.queryErr
	}
	return 0, nil
}

func (f *fakeBackend) CloseHandle(h RawHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closeCalls[h]++
	if _, ok := f.live[h]; !ok {
		return errors.New("invalid handle")
	}
	delete(f.live, h)
	return nil
}

func (f *fakeBackend) callsAfterOpen() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.osCallsAfterOpen
}
