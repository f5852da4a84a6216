package scan

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// AOB (Array of Bytes) represents a pattern to search for in memory
type AOB struct {
	Pattern []byte // The byte pattern to search for
	Mask    []byte // 0xFF means exact match and 0x00 means wildcard
}

// IsValid checks if the AOB pattern is valid
func (aob AOB) IsValid() bool {
	return len(aob.Pattern) > 0 && len(aob.Pattern) == len(aob.Mask)
}

func NewAOB(pattern, mask []byte) (AOB, error) {
	if len(pattern) == 0 {
		return AOB{}, fmt.Errorf("empty pattern")
	}
	if mask == nil {
		mask = make([]byte, len(pattern))
		for i := range mask {
			mask[i] = 0xFF
		}
	}
	if len(pattern) != len(mask) {
		return AOB{}, fmt.Errorf("mask length (%d) doesn't match pattern length (%d)", len(mask), len(pattern))
	}
	return AOB{Pattern: pattern, Mask: mask}, nil
}

// ParseAOB parses a pattern such as "48 8b ?? 05" or "48,8b,?,05". "?" and
// "??" are wildcards.
func ParseAOB(s string) (AOB, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' '
	})

	var pattern, mask []byte
	for _, part := range parts {
		if part == "??" || part == "?" {
			pattern = append(pattern, 0)
			mask = append(mask, 0)
			continue
		}

		val, err := strconv.ParseUint(part, 16, 8)
		if err != nil {
			return AOB{}, fmt.Errorf("invalid hex byte: %s", part)
		}
		pattern = append(pattern, byte(val))
		mask = append(mask, 0xFF)
	}

	return NewAOB(pattern, mask)
}

func (aob AOB) String() string {
	var sb strings.Builder
	for i, p := range aob.Pattern {
		if i > 0 {
			sb.WriteString(" ")
		}
		if aob.Mask[i] == 0 {
			sb.WriteString("??")
		} else {
			sb.WriteString(hex.EncodeToString([]byte{p}))
		}
	}
	return sb.String()
}

// matchAt reports whether the pattern matches data at offset i
func (aob AOB) matchAt(data []byte, i int) bool {
	for j := 0; j < len(aob.Pattern); j++ {
		// Only compare the masked bits
		if data[i+j]&aob.Mask[j] != aob.Pattern[j]&aob.Mask[j] {
			return false
		}
	}
	return true
}

// findPatternMatches returns the offsets in data where the pattern starts,
// considering only starts below limit
func findPatternMatches(data []byte, aob AOB, limit int) []int {
	var matches []int
	for i := 0; i <= len(data)-len(aob.Pattern) && i < limit; i++ {
		if aob.matchAt(data, i) {
			matches = append(matches, i)
		}
	}
	return matches
}
