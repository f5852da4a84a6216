package process

import (
	"fmt"
)

// ReadMemory copies up to size bytes starting at addr out of the target
// process. The returned slice holds exactly the bytes the OS reported as
// copied, which may be fewer than size.
func (h *Handle) ReadMemory(addr ProcessMemoryAddress, size ProcessMemorySize) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}

	raw, release, err := h.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	buf := make([]byte, size)
	n, err := h.backend.ReadProcessMemory(raw, addr, buf)
	if err != nil {
		return nil, newOSError("ReadProcessMemory", h.pid, err)
	}
	if n < 0 || n > len(buf) {
		return nil, fmt.Errorf("ReadProcessMemory reported %d bytes for a %d byte buffer", n, len(buf))
	}
	if n == 0 {
		return nil, fmt.Errorf("read at %s: %w", addr.ToString(), ErrAddressNotMapped)
	}

	return buf[:n], nil
}
