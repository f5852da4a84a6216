//go:build linux

package process_linux

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"procinspect/process"
	"procinspect/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"golang.org/x/sys/unix"
)

// primaryModule is the only module reference this backend hands out: the
// process executable.
const primaryModule = process.Module(1)

type openProcess struct {
	pid process.ProcessID

	// maps is the snapshot of /proc/<pid>/maps used to answer region
	// queries; it is refreshed when a query moves backwards.
	maps     []memory_map.MemoryMapItem
	lastAddr process.ProcessMemoryAddress
	exe      string
}

// LinuxBackend implements process.Backend on top of procfs. The OS resource
// behind each RawHandle is a read-only file descriptor on /proc/<pid>/mem,
// which the kernel only grants to callers allowed to read the target's
// memory. Memory reads go through that descriptor.
type LinuxBackend struct {
	procRoot string
	log      *logger.Logger

	mu   sync.Mutex
	open map[process.RawHandle]*openProcess
}

var _ process.Backend = (*LinuxBackend)(nil)

// New creates a LinuxBackend reading from /proc
func New() *LinuxBackend {
	return newWithRoot("/proc")
}

func newWithRoot(procRoot string) *LinuxBackend {
	return &LinuxBackend{
		procRoot: procRoot,
		log:      logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "process-linux")),
		open:     make(map[process.RawHandle]*openProcess),
	}
}

func (b *LinuxBackend) procPath(pid process.ProcessID, elem ...string) string {
	return filepath.Join(append([]string{b.procRoot, fmt.Sprint(uint32(pid))}, elem...)...)
}

func (b *LinuxBackend) lookup(h process.RawHandle) (*openProcess, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.open[h]
	if !ok {
		return nil, unix.EBADF
	}
	return p, nil
}

// OpenProcess opens /proc/<pid>/mem read-only. access must include
// AccessVMRead; nothing beyond query and read is ever granted.
func (b *LinuxBackend) OpenProcess(access process.Access, pid process.ProcessID) (process.RawHandle, error) {
	if access&^process.AccessInspect != 0 || access&process.AccessVMRead == 0 {
		return 0, unix.EINVAL
	}

	if _, err := os.Stat(b.procPath(pid)); err != nil {
		return 0, unwrapErrno(err)
	}

	fd, err := unix.Open(b.procPath(pid, "mem"), unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return 0, err
	}

	h := process.RawHandle(fd)
	b.mu.Lock()
	b.open[h] = &openProcess{pid: pid}
	b.mu.Unlock()

	return h, nil
}

// CloseHandle closes the descriptor behind h
func (b *LinuxBackend) CloseHandle(h process.RawHandle) error {
	b.mu.Lock()
	_, ok := b.open[h]
	delete(b.open, h)
	b.mu.Unlock()

	if !ok {
		return unix.EBADF
	}
	return unix.Close(int(h))
}

// EnumProcessModules resolves the executable of the process. Kernel threads
// have no executable and fail with ENOENT.
func (b *LinuxBackend) EnumProcessModules(h process.RawHandle) (process.Module, error) {
	p, err := b.lookup(h)
	if err != nil {
		return 0, err
	}

	exe, err := os.Readlink(b.procPath(p.pid, "exe"))
	if err != nil {
		return 0, unwrapErrno(err)
	}

	b.mu.Lock()
	p.exe = exe
	b.mu.Unlock()

	return primaryModule, nil
}

// ModuleBaseName copies the base name of the executable into buf, truncating
// it to fit like GetModuleBaseName does.
func (b *LinuxBackend) ModuleBaseName(h process.RawHandle, m process.Module, buf []byte) (int, error) {
	p, err := b.lookup(h)
	if err != nil {
		return 0, err
	}
	if m != primaryModule {
		return 0, unix.EINVAL
	}

	b.mu.Lock()
	exe := p.exe
	b.mu.Unlock()
	if exe == "" {
		return 0, unix.ENOENT
	}

	return copy(buf, filepath.Base(exe)), nil
}

// unwrapErrno returns the errno inside a *PathError so callers see the OS
// code verbatim.
func unwrapErrno(err error) error {
	if pe, ok := err.(*os.PathError); ok {
		return pe.Err
	}
	if le, ok := err.(*os.LinkError); ok {
		return le.Err
	}
	return err
}
