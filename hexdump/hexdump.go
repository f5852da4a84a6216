package hexdump

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"procinspect/coloransi"
	"procinspect/process"
)

// HexDumpOptions defines options for customizing the hexdump output
type HexDumpOptions struct {
	// BytesPerLine defines the number of bytes to display per line
	BytesPerLine int

	// GroupSize defines the grouping of bytes (usually 1, 2, 4, or 8)
	GroupSize int

	ShowASCII  bool
	ShowOffset bool

	// StartOffset is added to every offset printed, usually the remote
	// address the data was read from
	StartOffset uint64

	// OffsetWidth is the width of the offset column in hex digits
	OffsetWidth int

	// Colorize enables ANSI colours; when false the output is plain text
	Colorize bool

	OffsetColor              coloransi.ColorCode
	HexColor                 coloransi.ColorCode
	ASCIIColor               coloransi.ColorCode
	NonPrintableColor        coloransi.ColorCode
	ZeroColor                coloransi.ColorCode
	HighlightColor           coloransi.ColorCode
	HighlightBackgroundColor coloransi.ColorCode

	// HighlightPattern is a pattern to highlight in the dump
	HighlightPattern []byte

	// MaxLines is the maximum number of lines to show (0 for no limit)
	MaxLines int

	// ShowPointers appends the little-endian qwords of each line that land
	// inside one of Regions
	ShowPointers bool
	Regions      []process.MemoryRegion
}

// DefaultOptions returns the default hexdump options
func DefaultOptions() HexDumpOptions {
	return HexDumpOptions{
		BytesPerLine:             16,
		GroupSize:                1,
		ShowASCII:                true,
		ShowOffset:               true,
		OffsetWidth:              8,
		Colorize:                 true,
		OffsetColor:              coloransi.Cyan,
		HexColor:                 coloransi.Green,
		ASCIIColor:               coloransi.White,
		NonPrintableColor:        coloransi.BrightBlack,
		ZeroColor:                coloransi.BrightBlack,
		HighlightColor:           coloransi.Yellow,
		HighlightBackgroundColor: coloransi.Black,
	}
}

// Dump creates a hex dump of the given data with specified options
func Dump(data []byte, options HexDumpOptions) string {
	var buffer bytes.Buffer
	DumpToWriter(&buffer, data, options)
	return buffer.String()
}

// DumpToWriter writes a hex dump of the given data to the specified writer
func DumpToWriter(writer io.Writer, data []byte, options HexDumpOptions) {
	if options.BytesPerLine <= 0 {
		options.BytesPerLine = 16
	}
	if options.GroupSize <= 0 {
		options.GroupSize = 1
	}
	if options.OffsetWidth <= 0 {
		options.OffsetWidth = 8
	}

	d := dumper{w: writer, opts: options, highlight: highlightMask(data, options.HighlightPattern)}

	lines := 0
	for offset := 0; offset < len(data); offset += options.BytesPerLine {
		if options.MaxLines > 0 && lines >= options.MaxLines {
			fmt.Fprintf(writer, "... %d more bytes\n", len(data)-offset)
			return
		}

		end := offset + options.BytesPerLine
		if end > len(data) {
			end = len(data)
		}
		d.line(data[offset:end], offset)
		lines++
	}
}

// highlightMask marks every byte covered by an occurrence of pattern,
// including occurrences that straddle a line break.
func highlightMask(data, pattern []byte) []bool {
	if len(pattern) == 0 {
		return nil
	}
	mask := make([]bool, len(data))
	for i := 0; i+len(pattern) <= len(data); i++ {
		if bytes.Equal(data[i:i+len(pattern)], pattern) {
			for j := i; j < i+len(pattern); j++ {
				mask[j] = true
			}
		}
	}
	return mask
}

type dumper struct {
	w         io.Writer
	opts      HexDumpOptions
	highlight []bool
}

func (d *dumper) fg(c coloransi.ColorCode, s string) string {
	if !d.opts.Colorize {
		return s
	}
	return coloransi.Foreground(c, s)
}

func (d *dumper) hl(s string) string {
	if !d.opts.Colorize {
		return s
	}
	return coloransi.Color(d.opts.HighlightColor, d.opts.HighlightBackgroundColor, s)
}

func (d *dumper) highlighted(pos int) bool {
	return d.highlight != nil && d.highlight[pos]
}

// line formats a single line of the hex dump; base is the index of data[0]
// within the whole dump
func (d *dumper) line(data []byte, base int) {
	opts := d.opts

	if opts.ShowOffset {
		offsetStr := fmt.Sprintf("%0"+strconv.Itoa(opts.OffsetWidth)+"x", uint64(base)+opts.StartOffset)
		fmt.Fprint(d.w, d.fg(opts.OffsetColor, offsetStr), "  ")
	}

	groups := d.hexGroups(data, base)

	// mid-line divider only once the line reaches past half of BytesPerLine
	split := opts.BytesPerLine >= 8 && len(data) > opts.BytesPerLine/2
	left := (opts.BytesPerLine / opts.GroupSize) / 2
	if split && left > 0 && left < len(groups) {
		fmt.Fprint(d.w, strings.Join(groups[:left], " "), " | ", strings.Join(groups[left:], " "))
	} else {
		split = false
		fmt.Fprint(d.w, strings.Join(groups, " "))
	}

	if pad := d.padding(len(data), split); pad > 0 && (opts.ShowASCII || opts.ShowPointers) {
		fmt.Fprint(d.w, strings.Repeat(" ", pad))
	}

	if opts.ShowASCII {
		fmt.Fprint(d.w, " | ")
		mid := opts.BytesPerLine / 2
		if opts.BytesPerLine >= 8 && len(data) > mid {
			d.ascii(data[:mid], base)
			fmt.Fprint(d.w, " ")
			d.ascii(data[mid:], base+mid)
		} else {
			d.ascii(data, base)
		}
	}

	if opts.ShowPointers && len(data) >= 8 {
		fmt.Fprint(d.w, " |")
		for i := 0; i+8 <= len(data); i += 8 {
			ptr := binary.LittleEndian.Uint64(data[i : i+8])
			if isValidPointer(ptr, opts.Regions) {
				fmt.Fprint(d.w, " ", d.fg(coloransi.Yellow, fmt.Sprintf("0x%x", ptr)))
			}
		}
	}

	fmt.Fprintln(d.w)
}

// padding keeps the ASCII column aligned on a short final line
func (d *dumper) padding(n int, split bool) int {
	opts := d.opts
	if n >= opts.BytesPerLine {
		return 0
	}

	fullGroups := (opts.BytesPerLine + opts.GroupSize - 1) / opts.GroupSize
	curGroups := (n + opts.GroupSize - 1) / opts.GroupSize

	// two hex digits per missing byte plus one space per missing group. The
	// " | " divider takes the place of one separating space.
	pad := (opts.BytesPerLine-n)*2 + (fullGroups - 1) - max(0, curGroups-1)
	if left := fullGroups / 2; opts.BytesPerLine >= 8 && left > 0 && left < fullGroups {
		pad += 2
	}
	if split {
		pad -= 2
	}
	return pad
}

func (d *dumper) ascii(data []byte, base int) {
	for i, b := range data {
		c := rune(b)
		switch {
		case d.highlighted(base + i):
			if unicode.IsPrint(c) && b < 0x80 {
				fmt.Fprint(d.w, d.hl(string(c)))
			} else {
				fmt.Fprint(d.w, d.hl("."))
			}
		case b == 0:
			fmt.Fprint(d.w, d.fg(d.opts.ZeroColor, "."))
		case b >= 0x80 || !unicode.IsPrint(c):
			fmt.Fprint(d.w, d.fg(d.opts.NonPrintableColor, "."))
		default:
			fmt.Fprint(d.w, d.fg(d.opts.ASCIIColor, string(c)))
		}
	}
}

func (d *dumper) hexGroups(data []byte, base int) []string {
	var result []string
	var group strings.Builder

	for i, b := range data {
		hexValue := fmt.Sprintf("%02x", b)
		switch {
		case d.highlighted(base + i):
			group.WriteString(d.hl(hexValue))
		case b == 0:
			group.WriteString(d.fg(d.opts.ZeroColor, hexValue))
		default:
			group.WriteString(d.fg(d.opts.HexColor, hexValue))
		}

		if (i+1)%d.opts.GroupSize == 0 || i == len(data)-1 {
			result = append(result, group.String())
			group.Reset()
		}
	}

	return result
}

// isValidPointer reports whether ptr lands in a committed region. regions
// must be sorted by base, as a region walk returns them.
func isValidPointer(ptr uint64, regions []process.MemoryRegion) bool {
	addr := process.ProcessMemoryAddress(ptr)
	i := sort.Search(len(regions), func(i int) bool {
		end := regions[i].End()
		return end > addr || end < regions[i].Base
	})
	return i < len(regions) && regions[i].Contains(addr) && regions[i].IsCommitted()
}
