package process

import (
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeWithMemory(t *testing.T) (*fakeBackend, *Handle) {
	t.Helper()
	b := newFakeBackend()
	b.memBase = 0x1000
	b.mem = make([]byte, 64)
	for i := range b.mem {
		b.mem[i] = byte(i + 1)
	}
	return b, openFake(t, b, 42)
}

func TestReadMemory(t *testing.T) {
	_, h := fakeWithMemory(t)
	defer h.Close()

	data, err := h.ReadMemory(0x1004, 4)

	require.NoError(t, err)
	assert.Equal(t, []byte{5, 6, 7, 8}, data)
}

func TestReadMemory_ZeroLength(t *testing.T) {
	b, h := fakeWithMemory(t)
	defer h.Close()
	before := b.callsAfterOpen()

	data, err := h.ReadMemory(0xdead0000, 0)

	require.NoError(t, err)
	assert.NotNil(t, data)
	assert.Empty(t, data)
	assert.Equal(t, before, b.callsAfterOpen())
}

func TestReadMemory_PartialReadIsTruncated(t *testing.T) {
	_, h := fakeWithMemory(t)
	defer h.Close()

	data, err := h.ReadMemory(0x1000+60, 16)

	require.NoError(t, err)
	assert.Len(t, data, 4)
	assert.Equal(t, []byte{61, 62, 63, 64}, data)
}

func TestReadMemory_UnmappedIsError(t *testing.T) {
	_, h := fakeWithMemory(t)
	defer h.Close()

	data, err := h.ReadMemory(0x10, 16)

	assert.Nil(t, data)
	var osErr *OSError
	require.ErrorAs(t, err, &osErr)
	assert.Equal(t, "ReadProcessMemory", osErr.Op)
	assert.ErrorIs(t, err, errFault)
}

type zeroReadBackend struct {
	*fakeBackend
}

func (zeroReadBackend) ReadProcessMemory(RawHandle, ProcessMemoryAddress, []byte) (int, error) {
	return 0, nil
}

func TestReadMemory_NothingCopied(t *testing.T) {
	h, err := Open(zeroReadBackend{newFakeBackend()}, 42)
	require.NoError(t, err)
	defer h.Close()

	_, err = h.ReadMemory(0x1000, 8)

	assert.ErrorIs(t, err, ErrAddressNotMapped)
}

func TestRead_Typed(t *testing.T) {
	b, h := fakeWithMemory(t)
	defer h.Close()
	binary.LittleEndian.PutUint32(b.mem[8:], 0xcafebabe)

	v, err := Read[uint32](h, 0x1008)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xcafebabe), v)

	type pair struct {
		A uint16
		B uint16
	}
	p, err := Read[pair](h, 0x1000)
	require.NoError(t, err)
	assert.Equal(t, pair{A: 0x0201, B: 0x0403}, p)
}

func TestRead_ShortReadIsError(t *testing.T) {
	_, h := fakeWithMemory(t)
	defer h.Close()

	_, err := Read[uint64](h, 0x1000+60)

	assert.ErrorIs(t, err, ErrShortRead)
}

func TestReadPath(t *testing.T) {
	b, h := fakeWithMemory(t)
	defer h.Close()
	// 0x1000: pointer to 0x1010; 0x1010+8: value
	binary.LittleEndian.PutUint64(b.mem[0:], 0x1010)
	binary.LittleEndian.PutUint32(b.mem[0x18:], 77)

	v, err := ReadPath[uint32](h, 0x1000, 0, 8)
	require.NoError(t, err)
	assert.Equal(t, uint32(77), v)

	binary.LittleEndian.PutUint64(b.mem[0:], 0)
	_, err = ReadPath[uint32](h, 0x1000, 0, 8)
	assert.ErrorContains(t, err, "is null")
}

func TestReaderAt(t *testing.T) {
	_, h := fakeWithMemory(t)
	defer h.Close()
	ra := ReaderAt(h)

	buf := make([]byte, 3)
	n, err := ra.ReadAt(buf, 0x1001)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte{2, 3, 4}, buf)

	buf = make([]byte, 8)
	n, err = ra.ReadAt(buf, 0x1000+62)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, 2, n)
}
