//go:build linux

package process_linux

import (
	"os"
	"strings"
	"unsafe"

	"procinspect/process"
	"procinspect/process/memory_map"
)

var pageSize = uint64(os.Getpagesize())

// VirtualQueryEx answers region queries from /proc/<pid>/maps. Gaps between
// mappings are reported as free regions, and addresses past the last mapping
// get a zero written count.
func (b *LinuxBackend) VirtualQueryEx(h process.RawHandle, addr process.ProcessMemoryAddress, out *process.MemoryRegion) (uintptr, error) {
	p, err := b.lookup(h)
	if err != nil {
		return 0, err
	}

	maps, exe, err := b.memoryMap(p, addr)
	if err != nil {
		return 0, err
	}

	a := uint64(addr) &^ (pageSize - 1)
	i := memory_map.FindFrom(a, maps)
	if i == len(maps) {
		return 0, nil
	}

	item := maps[i]
	if item.Address > a {
		*out = process.MemoryRegion{
			Base:    process.ProcessMemoryAddress(a),
			Size:    process.ProcessMemorySize(item.Address - a),
			Protect: process.ProtectNoAccess,
			State:   process.RegionStateFree,
		}
	} else {
		prot := protection(item)
		*out = process.MemoryRegion{
			Base:              process.ProcessMemoryAddress(a),
			Size:              process.ProcessMemorySize(item.End() - a),
			AllocationBase:    process.ProcessMemoryAddress(item.Address),
			AllocationProtect: prot,
			Protect:           prot,
			State:             process.RegionStateCommitted,
			Type:              regionType(item, exe),
		}
	}

	return unsafe.Sizeof(*out), nil
}

// memoryMap returns the maps snapshot for p, re-reading it at the start of a
// walk or whenever the queried address moves backwards.
func (b *LinuxBackend) memoryMap(p *openProcess, addr process.ProcessMemoryAddress) ([]memory_map.MemoryMapItem, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if p.maps == nil || addr == 0 || addr < p.lastAddr {
		maps, err := memory_map.ReadMemoryMap(b.procPath(p.pid, "maps"))
		if err != nil {
			return nil, "", unwrapErrno(err)
		}
		if maps == nil {
			// zombies and kernel threads have an empty map
			maps = []memory_map.MemoryMapItem{}
		}
		p.maps = maps
		if p.exe == "" {
			p.exe, _ = os.Readlink(b.procPath(p.pid, "exe"))
		}
		b.log.Debugln("Read", len(maps), "mappings for pid", p.pid)
	}
	p.lastAddr = addr
	return p.maps, p.exe, nil
}

func protection(item memory_map.MemoryMapItem) process.Protection {
	r, w, x := item.IsReadable(), item.IsWritable(), item.IsExecutable()
	switch {
	case x && w:
		return process.ProtectExecuteReadWrite
	case x && r:
		return process.ProtectExecuteRead
	case x:
		return process.ProtectExecute
	case w:
		return process.ProtectReadWrite
	case r:
		return process.ProtectReadOnly
	}
	return process.ProtectNoAccess
}

func regionType(item memory_map.MemoryMapItem, exe string) process.RegionType {
	switch {
	case item.Path == "" || strings.HasPrefix(item.Path, "["):
		return process.RegionTypePrivate
	case item.Path == exe || strings.Contains(item.Path, ".so"):
		return process.RegionTypeImage
	}
	return process.RegionTypeMapped
}
