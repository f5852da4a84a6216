package cmds

import (
	"fmt"
	"io"
	"os"

	"procinspect/config"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"
)

// colorValue is the --color flag; it rejects unknown modes at parse time.
type colorValue string

var _ pflag.Value = (*colorValue)(nil)

func (c *colorValue) String() string { return string(*c) }

func (c *colorValue) Set(s string) error {
	switch s {
	case config.ColorAuto, config.ColorAlways, config.ColorNever:
		*c = colorValue(s)
		return nil
	}
	return fmt.Errorf("color must be auto, always or never, got %q", s)
}

func (c *colorValue) Type() string { return "mode" }

// useColor decides whether output written to out gets ANSI colours.
func useColor(out io.Writer) bool {
	switch conf.Color {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// colorWriter wraps a terminal so ANSI sequences render on consoles that
// do not interpret them natively.
func colorWriter(out io.Writer) io.Writer {
	if f, ok := out.(*os.File); ok && useColor(out) {
		return colorable.NewColorable(f)
	}
	return out
}
