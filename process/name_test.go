package process

import (
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestName(t *testing.T) {
	b := newFakeBackend()
	b.name = []byte("notepad.exe")
	h := openFake(t, b, 42)
	defer h.Close()

	name, err := h.Name()

	require.NoError(t, err)
	assert.Equal(t, "notepad.exe", name)
	assert.Equal(t, []int{nameBufferInitial}, b.nameSizes)
}

func TestName_LongNameIsNotTruncated(t *testing.T) {
	b := newFakeBackend()
	long := strings.Repeat("a", 700) + ".exe"
	b.name = []byte(long)
	h := openFake(t, b, 42)
	defer h.Close()

	name, err := h.Name()

	require.NoError(t, err)
	assert.Equal(t, long, name)
	assert.Equal(t, []int{260, 520, 1040}, b.nameSizes)
}

func TestName_TooLong(t *testing.T) {
	b := newFakeBackend()
	b.name = []byte(strings.Repeat("x", nameBufferMax))
	h := openFake(t, b, 42)
	defer h.Close()

	_, err := h.Name()

	assert.ErrorIs(t, err, ErrNameTruncated)
}

func TestName_InvalidUTF8IsDecodeError(t *testing.T) {
	b := newFakeBackend()
	b.name = []byte{'a', 0xff, 0xfe, 'b'}
	h := openFake(t, b, 42)
	defer h.Close()

	name, err := h.Name()

	assert.Empty(t, name)
	assert.ErrorIs(t, err, ErrInvalidName)

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, []byte{'a', 0xff, 0xfe, 'b'}, decodeErr.Raw)

	var osErr *OSError
	assert.False(t, errors.As(err, &osErr), "decode failure reported as OS failure")
}

func TestName_ModuleQueryDenied(t *testing.T) {
	b := newFakeBackend()
	b.moduleErr = fs.ErrPermission
	h := openFake(t, b, 42)
	defer h.Close()

	_, err := h.Name()

	var osErr *OSError
	require.ErrorAs(t, err, &osErr)
	assert.Equal(t, "EnumProcessModules", osErr.Op)
	assert.ErrorIs(t, err, ErrAccessDenied)
	assert.Empty(t, b.nameSizes)
}

func TestName_BaseNameFails(t *testing.T) {
	b := newFakeBackend()
	b.nameErr = fs.ErrPermission
	h := openFake(t, b, 42)
	defer h.Close()

	_, err := h.Name()

	var osErr *OSError
	require.ErrorAs(t, err, &osErr)
	assert.Equal(t, "GetModuleBaseName", osErr.Op)
}

func TestName_EmptyAnswer(t *testing.T) {
	b := newFakeBackend()
	b.name = nil
	h := openFake(t, b, 42)
	defer h.Close()

	_, err := h.Name()

	assert.ErrorIs(t, err, ErrEmptyName)
	assert.NotErrorIs(t, err, ErrInvalidName)

	var osErr *OSError
	require.ErrorAs(t, err, &osErr)
	assert.Equal(t, "GetModuleBaseName", osErr.Op)
	assert.Equal(t, ProcessID(42), osErr.PID)

	var decodeErr *DecodeError
	assert.False(t, errors.As(err, &decodeErr), "empty answer reported as decode failure")
}
