// Package process provides read-only introspection of running processes:
// enumeration, handles, name resolution, memory region walking and memory
// reads. All OS access goes through a Backend.
package process

import (
	"errors"
	"fmt"
	"io/fs"
	"unicode/utf8"
)

var (
	// ErrAddressNotMapped is returned when a read reaches no mapped memory.
	ErrAddressNotMapped = errors.New("address not mapped")

	// ErrProcessNotOpen is returned when an operation is attempted on a
	// handle that has already been closed.
	ErrProcessNotOpen = errors.New("process not open")

	// ErrAccessDenied matches OS errors caused by insufficient privilege.
	ErrAccessDenied = errors.New("access denied")

	// ErrProcessNotFound matches OS errors caused by a PID naming no process.
	ErrProcessNotFound = errors.New("process not found")

	// ErrInvalidName matches a DecodeError.
	ErrInvalidName = errors.New("process name is not valid text")

	ErrEnumerationTruncated = errors.New("process enumeration still truncated after maximum growth")
	ErrNameTruncated        = errors.New("module name exceeds maximum buffer size")
	ErrEmptyName            = errors.New("OS returned an empty module name")
	ErrShortRead            = errors.New("short read")
	ErrUnsupportedPlatform  = errors.New("process introspection not supported on this platform")
)

// OSError records an OS call that reported failure. Err is the error code
// exactly as the OS returned it.
type OSError struct {
	Op  string
	PID ProcessID
	Err error
}

func (e *OSError) Error() string {
	if e.PID == 0 {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s(pid %d) failed: %v", e.Op, e.PID, e.Err)
}

func (e *OSError) Unwrap() error {
	return e.Err
}

// Is lets callers classify OS errors without depending on platform errno
// values.
func (e *OSError) Is(target error) bool {
	switch target {
	case ErrAccessDenied:
		return errors.Is(e.Err, fs.ErrPermission)
	case ErrProcessNotFound:
		return errors.Is(e.Err, fs.ErrNotExist)
	}
	return false
}

func newOSError(op string, pid ProcessID, err error) error {
	if err == nil {
		return nil
	}
	return &OSError{Op: op, PID: pid, Err: err}
}

// DecodeError is returned when the OS answered with bytes that are not valid
// UTF-8 text.
type DecodeError struct {
	PID ProcessID
	Raw []byte
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("pid %d: %v: %q", e.PID, ErrInvalidName, e.Raw)
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrInvalidName
}

func decodeName(pid ProcessID, raw []byte) (string, error) {
	if !utf8.Valid(raw) {
		return "", &DecodeError{PID: pid, Raw: append([]byte(nil), raw...)}
	}
	return string(raw), nil
}
