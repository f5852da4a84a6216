//go:build linux

package process_linux

import (
	"math"
	"unsafe"

	"procinspect/process"

	"golang.org/x/sys/unix"
)

// process_vm_readv uses the process_vm_readv syscall to read memory from
// another process into localBuf. It returns the number of bytes the kernel
// copied, which is short when the range runs into unmapped memory.
func process_vm_readv(
	pid process.ProcessID,
	localBuf []byte,
	remoteAddr process.ProcessMemoryAddress,
) (int, error) {
	if len(localBuf) == 0 {
		return 0, nil
	}

	// Create iovec for local buffer
	localIov := unix.Iovec{Base: &localBuf[0]}
	localIov.SetLen(len(localBuf))

	// Create iovec for remote buffer
	remoteIov := unix.RemoteIovec{
		Base: uintptr(remoteAddr),
		Len:  len(localBuf),
	}

	n, _, errno := unix.Syscall6(
		unix.SYS_PROCESS_VM_READV,
		uintptr(pid),                        // Remote process PID
		uintptr(unsafe.Pointer(&localIov)),  // Local iovec
		uintptr(1),                          // Number of local iovecs
		uintptr(unsafe.Pointer(&remoteIov)), // Remote iovec
		uintptr(1),                          // Number of remote iovecs
		uintptr(0),                          // Flags (reserved for future use)
	)
	if errno != 0 {
		return 0, errno
	}

	return int(n), nil
}

// ReadProcessMemory reads through the /proc/<pid>/mem descriptor behind h,
// so it always reaches the address space that was opened even once the PID
// has been reused. pread cannot take offsets above the signed 64-bit range,
// those addresses go through process_vm_readv.
func (b *LinuxBackend) ReadProcessMemory(h process.RawHandle, addr process.ProcessMemoryAddress, buf []byte) (int, error) {
	p, err := b.lookup(h)
	if err != nil {
		return 0, err
	}

	if uint64(addr) > math.MaxInt64 {
		return process_vm_readv(p.pid, buf, addr)
	}

	n, err := unix.Pread(int(h), buf, int64(addr))
	if err != nil {
		return 0, err
	}
	return n, nil
}
