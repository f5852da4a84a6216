package process

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// Handle is an open, read-only reference to one target process. It owns the
// underlying OS resource and releases it exactly once, on Close or, if the
// caller never closes it, when the Handle is garbage collected. A Handle must
// not be copied after Open returns it.
//
// Every operation holds a read lock for the duration of its OS call, so Close
// waits for in-flight queries and nothing can reach the OS after release.
type Handle struct {
	pid     ProcessID
	backend Backend
	log     *logger.Logger

	mu     sync.RWMutex
	raw    RawHandle
	closed bool
}

// Open opens pid for querying information and reading memory. No other
// rights are requested.
func Open(b Backend, pid ProcessID) (*Handle, error) {
	raw, err := b.OpenProcess(AccessInspect, pid)
	if err != nil {
		return nil, newOSError("OpenProcess", pid, err)
	}

	h := &Handle{
		pid:     pid,
		backend: b,
		raw:     raw,
		log:     logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid))),
	}
	runtime.SetFinalizer(h, (*Handle).finalize)

	h.log.Debugln("Process opened")
	return h, nil
}

// PID returns the identifier the handle was opened with. It remains valid
// after Close.
func (h *Handle) PID() ProcessID {
	return h.pid
}

// Close releases the OS resource. Calling Close more than once returns
// ErrProcessNotOpen.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrProcessNotOpen
	}
	runtime.SetFinalizer(h, nil)
	return h.releaseLocked()
}

func (h *Handle) releaseLocked() error {
	h.closed = true
	raw := h.raw
	h.raw = 0

	if err := h.backend.CloseHandle(raw); err != nil {
		return newOSError("CloseHandle", h.pid, err)
	}

	h.log.Debugln("Process closed")
	return nil
}

func (h *Handle) finalize() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.log.Warn("handle for pid ", h.pid, " was never closed, releasing")
	_ = h.releaseLocked()
}

// acquire locks the handle for one OS call. The returned release func must be
// called once the call returns.
func (h *Handle) acquire() (RawHandle, func(), error) {
	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return 0, nil, ErrProcessNotOpen
	}
	return h.raw, h.mu.RUnlock, nil
}
