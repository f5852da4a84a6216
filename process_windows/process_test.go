//go:build windows

package process_windows

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"procinspect/process"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelf_RoundTrip(t *testing.T) {
	h, err := process.Open(New(), process.ProcessID(os.Getpid()))
	require.NoError(t, err)
	defer h.Close()

	name, err := h.Name()
	require.NoError(t, err)
	exe, err := os.Executable()
	require.NoError(t, err)
	assert.True(t, strings.EqualFold(filepath.Base(exe), name), "name %q", name)

	regions, err := h.MemoryRegions()
	require.NoError(t, err)
	require.NotEmpty(t, regions)

	var first *process.MemoryRegion
	for i := range regions {
		assert.NotZero(t, regions[i].Size)
		if first == nil && regions[i].IsReadable() {
			first = &regions[i]
		}
	}
	require.NotNil(t, first)

	data, err := h.ReadMemory(first.Base, 32)
	require.NoError(t, err)
	assert.Len(t, data, 32)

	_, err = h.ReadMemory(0, 16)
	assert.Error(t, err)
}

func TestEnumerate_ContainsSelf(t *testing.T) {
	pids, err := process.EnumerateProcesses(New(), process.WithInitialCapacity(4))

	require.NoError(t, err)
	assert.Contains(t, pids, process.ProcessID(os.Getpid()))
	assert.NotContains(t, pids, process.ProcessID(0))
}

func TestOpen_SystemProcessDenied(t *testing.T) {
	// pid 4 is the System process; it cannot be opened for VM read
	_, err := process.Open(New(), 4)

	assert.ErrorIs(t, err, process.ErrAccessDenied)
}

func TestSelf_ProcessInfo(t *testing.T) {
	info, err := process.QueryInfo(New(), process.ProcessID(os.Getpid()))

	require.NoError(t, err)
	assert.Equal(t, process.ProcessID(os.Getpid()), info.PID)
	assert.Equal(t, process.ProcessID(os.Getppid()), info.ParentPID)
	assert.Nil(t, info.CommandLine)
}
