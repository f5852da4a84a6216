package process

// RegionWalker lazily enumerates the memory regions of a process in
// ascending address order, starting at address 0. Use it like bufio.Scanner:
//
//	w := h.Regions()
//	for w.Next() {
//		r := w.Region()
//	}
//	if err := w.Err(); err != nil { ... }
//
// The walk always terminates. It ends when the OS reports no information for
// the next address, reports a zero sized region, fails the query, or when a
// region would not move the cursor forward.
type RegionWalker struct {
	h *Handle

	next    ProcessMemoryAddress
	current MemoryRegion
	done    bool
	err     error
	end     error
}

// Regions returns a walker over the memory regions of the process.
func (h *Handle) Regions() *RegionWalker {
	return &RegionWalker{h: h}
}

// Next advances to the next region and reports whether there is one.
func (w *RegionWalker) Next() bool {
	if w.done {
		return false
	}

	addr := w.next
	var region MemoryRegion
	written, err := w.h.queryRegion(addr, &region)
	if err != nil {
		w.done = true
		if err == ErrProcessNotOpen {
			w.err = err
		} else {
			// a failed query past the last region is how most hosts signal
			// the end of the address space
			w.end = err
		}
		return false
	}

	if written == 0 || region.Size == 0 {
		w.done = true
		return false
	}

	end := region.End()
	switch {
	case end < region.Base:
		// region runs to the top of the address space
		w.current = region
		w.done = true
		return true
	case end <= addr:
		w.done = true
		return false
	}

	w.current = region
	w.next = end
	return true
}

// Region returns the region produced by the last successful call to Next.
func (w *RegionWalker) Region() MemoryRegion {
	return w.current
}

// Err returns ErrProcessNotOpen if the handle was closed during the walk.
// Reaching the end of the address space is not an error.
func (w *RegionWalker) Err() error {
	return w.err
}

// EndReason returns the OS error that ended the walk, if the walk ended on a
// failed query rather than an explicit end-of-range answer.
func (w *RegionWalker) EndReason() error {
	return w.end
}

// Reset rewinds the walker to address 0 so the regions can be walked again.
func (w *RegionWalker) Reset() {
	*w = RegionWalker{h: w.h}
}

// MemoryRegions walks the whole address space and returns every region.
func (h *Handle) MemoryRegions() ([]MemoryRegion, error) {
	var regions []MemoryRegion
	w := h.Regions()
	for w.Next() {
		regions = append(regions, w.Region())
	}
	if err := w.Err(); err != nil {
		return nil, err
	}
	return regions, nil
}

// QueryRegion describes the region containing addr. It returns
// ErrAddressNotMapped if the OS has no information for addr.
func (h *Handle) QueryRegion(addr ProcessMemoryAddress) (MemoryRegion, error) {
	var region MemoryRegion
	written, err := h.queryRegion(addr, &region)
	if err != nil {
		if err == ErrProcessNotOpen {
			return MemoryRegion{}, err
		}
		return MemoryRegion{}, newOSError("VirtualQueryEx", h.pid, err)
	}
	if written == 0 {
		return MemoryRegion{}, ErrAddressNotMapped
	}
	return region, nil
}

func (h *Handle) queryRegion(addr ProcessMemoryAddress, out *MemoryRegion) (uintptr, error) {
	raw, release, err := h.acquire()
	if err != nil {
		return 0, err
	}
	defer release()

	return h.backend.VirtualQueryEx(raw, addr, out)
}
