package process

const (
	nameBufferInitial = 260 // MAX_PATH
	nameBufferMax     = 32 * 1024
)

// Name returns the base file name of the process's primary module, as the OS
// reports it. Bytes that are not valid UTF-8 produce a DecodeError.
func (h *Handle) Name() (string, error) {
	raw, release, err := h.acquire()
	if err != nil {
		return "", err
	}
	defer release()

	module, err := h.backend.EnumProcessModules(raw)
	if err != nil {
		return "", newOSError("EnumProcessModules", h.pid, err)
	}

	for size := nameBufferInitial; size <= nameBufferMax; size *= 2 {
		buf := make([]byte, size)
		n, err := h.backend.ModuleBaseName(raw, module, buf)
		if err != nil {
			return "", newOSError("GetModuleBaseName", h.pid, err)
		}
		if n == 0 {
			return "", newOSError("GetModuleBaseName", h.pid, ErrEmptyName)
		}

		// a name that fills the buffer (less the terminator) may be cut short
		if n < size-1 {
			return decodeName(h.pid, buf[:n])
		}
	}

	return "", ErrNameTruncated
}
