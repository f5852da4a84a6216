// Package scan searches the readable memory of a process for byte patterns.
package scan

import (
	"fmt"

	"procinspect/process"

	"github.com/Moonlight-Companies/gologger/logger"
)

var log = logger.NewLogger("scan")

// Target is the part of *process.Handle a scan needs.
type Target interface {
	process.MemoryReader
	MemoryRegions() ([]process.MemoryRegion, error)
}

// Scanner holds configuration for a scan
type Scanner struct {
	ChunkSize  process.ProcessMemorySize
	MaxResults int
}

// Option is a function that configures a Scanner
type Option func(*Scanner)

// WithChunkSize bounds the size of a single memory read.
func WithChunkSize(size process.ProcessMemorySize) Option {
	return func(s *Scanner) {
		s.ChunkSize = size
	}
}

// WithMaxResults stops the scan after n matches. Zero means no limit.
func WithMaxResults(n int) Option {
	return func(s *Scanner) {
		s.MaxResults = n
	}
}

// Scan searches every committed, readable region of t for aob and returns
// the matching addresses in ascending order. Regions that cannot be read are
// skipped.
func Scan(t Target, aob AOB, options ...Option) ([]process.ProcessMemoryAddress, error) {
	s := &Scanner{
		ChunkSize: 4 << 20,
	}
	for _, opt := range options {
		opt(s)
	}

	if !aob.IsValid() {
		return nil, fmt.Errorf("invalid pattern: %d pattern bytes, %d mask bytes", len(aob.Pattern), len(aob.Mask))
	}
	if s.ChunkSize < process.ProcessMemorySize(len(aob.Pattern)) {
		return nil, fmt.Errorf("chunk size %d is smaller than the pattern", s.ChunkSize)
	}

	regions, err := t.MemoryRegions()
	if err != nil {
		return nil, fmt.Errorf("failed to walk memory regions: %w", err)
	}

	log.Infoln("Starting memory scan for pattern of length", len(aob.Pattern))

	var results []process.ProcessMemoryAddress
	for _, region := range regions {
		if !region.IsReadable() {
			continue
		}

		results = s.scanRegion(t, region, aob, results)
		if s.MaxResults > 0 && len(results) >= s.MaxResults {
			results = results[:s.MaxResults]
			break
		}
	}

	log.Infoln("Scan complete, found", len(results), "matches")
	return results, nil
}

func (s *Scanner) scanRegion(t Target, region process.MemoryRegion, aob AOB, results []process.ProcessMemoryAddress) []process.ProcessMemoryAddress {
	overlap := process.ProcessMemorySize(len(aob.Pattern) - 1)

	for off := process.ProcessMemorySize(0); off < region.Size; off += s.ChunkSize {
		readLen := s.ChunkSize + overlap
		if remaining := region.Size - off; readLen > remaining {
			readLen = remaining
		}

		addr := region.Base + process.ProcessMemoryAddress(off)
		data, err := t.ReadMemory(addr, readLen)
		if err != nil {
			// Some regions might fail to read due to permissions or other reasons
			log.Debugln("Failed to read memory region at", addr.ToString(), err)
			return results
		}

		for _, i := range findPatternMatches(data, aob, int(s.ChunkSize)) {
			results = append(results, addr+process.ProcessMemoryAddress(i))
		}

		if process.ProcessMemorySize(len(data)) < readLen {
			// the rest of the region is unreadable
			return results
		}
	}
	return results
}
