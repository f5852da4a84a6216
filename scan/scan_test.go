package scan

import (
	"errors"
	"testing"

	"procinspect/process"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTarget struct {
	regions  []process.MemoryRegion
	memory   map[process.ProcessMemoryAddress][]byte // region base -> contents
	readable map[process.ProcessMemoryAddress]int    // region base -> readable prefix length
	reads    []process.ProcessMemorySize
}

func (f *fakeTarget) MemoryRegions() ([]process.MemoryRegion, error) {
	return f.regions, nil
}

func (f *fakeTarget) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	f.reads = append(f.reads, size)
	for base, data := range f.memory {
		if addr < base || addr >= base+process.ProcessMemoryAddress(len(data)) {
			continue
		}
		limit := len(data)
		if n, ok := f.readable[base]; ok {
			limit = n
		}
		off := int(addr - base)
		if off >= limit {
			return nil, errors.New("fault")
		}
		end := off + int(size)
		if end > limit {
			end = limit
		}
		return data[off:end], nil
	}
	return nil, errors.New("fault")
}

func committed(base process.ProcessMemoryAddress, size int) process.MemoryRegion {
	return process.MemoryRegion{
		Base:    base,
		Size:    process.ProcessMemorySize(size),
		State:   process.RegionStateCommitted,
		Protect: process.ProtectReadWrite,
	}
}

func TestParseAOB(t *testing.T) {
	aob, err := ParseAOB("48 8b ?? 05,?")
	require.NoError(t, err)

	assert.Equal(t, []byte{0x48, 0x8b, 0, 0x05, 0}, aob.Pattern)
	assert.Equal(t, []byte{0xff, 0xff, 0, 0xff, 0}, aob.Mask)
	assert.Equal(t, "48 8b ?? 05 ??", aob.String())

	_, err = ParseAOB("48 zz")
	assert.Error(t, err)

	_, err = ParseAOB("")
	assert.Error(t, err)
}

func TestNewAOB(t *testing.T) {
	aob, err := NewAOB([]byte{1, 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xff}, aob.Mask)

	_, err = NewAOB([]byte{1, 2}, []byte{0xff})
	assert.Error(t, err)
}

func TestScan_FindsMatchesAcrossChunks(t *testing.T) {
	data := make([]byte, 64)
	copy(data[3:], []byte{0xde, 0xad, 0xbe, 0xef})
	copy(data[14:], []byte{0xde, 0xad, 0x00, 0xef}) // straddles the 16 byte chunk boundary
	copy(data[40:], []byte{0xde, 0xad, 0x99, 0xef})

	target := &fakeTarget{
		regions: []process.MemoryRegion{
			{Base: 0, Size: 0x1000, State: process.RegionStateFree},
			committed(0x1000, len(data)),
		},
		memory: map[process.ProcessMemoryAddress][]byte{0x1000: data},
	}
	aob, err := ParseAOB("de ad ?? ef")
	require.NoError(t, err)

	matches, err := Scan(target, aob, WithChunkSize(16))

	require.NoError(t, err)
	assert.Equal(t, []process.ProcessMemoryAddress{0x1003, 0x100e, 0x1028}, matches)
	for _, n := range target.reads {
		assert.LessOrEqual(t, n, process.ProcessMemorySize(16+3))
	}
}

func TestScan_SkipsUnreadableRegions(t *testing.T) {
	guarded := committed(0x3000, 16)
	guarded.Protect = process.ProtectReadWrite | process.ProtectGuard
	reserved := committed(0x4000, 16)
	reserved.State = process.RegionStateReserved

	target := &fakeTarget{
		regions: []process.MemoryRegion{committed(0x2000, 16), guarded, reserved, committed(0x5000, 16)},
		memory: map[process.ProcessMemoryAddress][]byte{
			0x3000: {0xaa, 0xbb},
			0x4000: {0xaa, 0xbb},
			0x5000: {0, 0xaa, 0xbb},
		},
	}
	aob, err := ParseAOB("aa bb")
	require.NoError(t, err)

	matches, err := Scan(target, aob)

	require.NoError(t, err)
	assert.Equal(t, []process.ProcessMemoryAddress{0x5001}, matches)
}

func TestScan_PartiallyReadableRegion(t *testing.T) {
	data := []byte{0xaa, 0xbb, 0, 0, 0xaa, 0xbb, 0, 0}
	target := &fakeTarget{
		regions:  []process.MemoryRegion{committed(0x1000, len(data))},
		memory:   map[process.ProcessMemoryAddress][]byte{0x1000: data},
		readable: map[process.ProcessMemoryAddress]int{0x1000: 3},
	}
	aob, err := ParseAOB("aa bb")
	require.NoError(t, err)

	matches, err := Scan(target, aob, WithChunkSize(4))

	require.NoError(t, err)
	assert.Equal(t, []process.ProcessMemoryAddress{0x1000}, matches)
}

func TestScan_MaxResults(t *testing.T) {
	data := []byte{7, 7, 7, 7, 7}
	target := &fakeTarget{
		regions: []process.MemoryRegion{committed(0x1000, len(data))},
		memory:  map[process.ProcessMemoryAddress][]byte{0x1000: data},
	}

	matches, err := Scan(target, AOB{Pattern: []byte{7}, Mask: []byte{0xff}}, WithMaxResults(2))

	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestScan_InvalidInput(t *testing.T) {
	target := &fakeTarget{}

	_, err := Scan(target, AOB{Pattern: []byte{1, 2}, Mask: []byte{1}})
	assert.Error(t, err)

	_, err = Scan(target, AOB{Pattern: []byte{1, 2, 3}, Mask: []byte{1, 1, 1}}, WithChunkSize(2))
	assert.Error(t, err)
}
