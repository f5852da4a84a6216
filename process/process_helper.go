package process

import (
	"fmt"
	"io"
	"unsafe"
)

// MemoryReader is anything that can read a target's memory. *Handle
// implements it.
type MemoryReader interface {
	ReadMemory(addr ProcessMemoryAddress, size ProcessMemorySize) ([]byte, error)
}

var _ MemoryReader = (*Handle)(nil)

// Read reads a single value of type T at addr. T must be plain data with no
// pointers, slices, maps or strings. The read must return all of T's bytes,
// otherwise ErrShortRead is returned.
func Read[T any](r MemoryReader, addr ProcessMemoryAddress) (T, error) {
	var t T
	size := ProcessMemorySize(unsafe.Sizeof(t))
	if size == 0 {
		return t, nil
	}

	data, err := r.ReadMemory(addr, size)
	if err != nil {
		return t, err
	}
	if ProcessMemorySize(len(data)) != size {
		return t, fmt.Errorf("read %d of %d bytes at %s: %w", len(data), size, addr.ToString(), ErrShortRead)
	}

	copy(unsafe.Slice((*byte)(unsafe.Pointer(&t)), size), data)
	return t, nil
}

// ReadPath reads a value of type T at the end of a pointer path.
// It starts at base, adds the first offset, reads a pointer, adds the next offset, reads a pointer, etc.
// The last offset is added to the final pointer, and then T is read from that address.
// If offsets is empty, it reads T from base. Pointers are 8 bytes.
func ReadPath[T any](r MemoryReader, base ProcessMemoryAddress, offsets ...ProcessMemorySize) (T, error) {
	var zero T
	currentAddr := base

	for i := 0; i < len(offsets)-1; i++ {
		ptrAddr := currentAddr + ProcessMemoryAddress(offsets[i])

		ptrVal, err := Read[uint64](r, ptrAddr)
		if err != nil {
			return zero, fmt.Errorf("failed to read pointer at offset %d (addr 0x%x): %w", i, ptrAddr, err)
		}
		if ptrVal == 0 {
			return zero, fmt.Errorf("pointer at offset %d (addr 0x%x) is null", i, ptrAddr)
		}

		currentAddr = ProcessMemoryAddress(ptrVal)
	}

	if len(offsets) > 0 {
		currentAddr += ProcessMemoryAddress(offsets[len(offsets)-1])
	}

	val, err := Read[T](r, currentAddr)
	if err != nil {
		return zero, fmt.Errorf("failed to read final value at 0x%x: %w", currentAddr, err)
	}
	return val, nil
}

type readerAt struct {
	r MemoryReader
}

// ReaderAt adapts r to io.ReaderAt, with offsets taken as addresses in the
// target. A short read reports io.ErrUnexpectedEOF.
func ReaderAt(r MemoryReader) io.ReaderAt {
	return readerAt{r: r}
}

func (ra readerAt) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("negative offset %d", off)
	}
	data, err := ra.r.ReadMemory(ProcessMemoryAddress(off), ProcessMemorySize(len(p)))
	if err != nil {
		return 0, err
	}
	n := copy(p, data)
	if n < len(p) {
		return n, io.ErrUnexpectedEOF
	}
	return n, nil
}
