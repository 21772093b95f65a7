package core

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/josephlewis42/pipesh/core/config"
	"golang.org/x/term"
)

var (
	ColorBoldGreen = color.New(color.FgGreen, color.Bold)
	ColorBoldRed   = color.New(color.FgRed, color.Bold)
)

// ColorPrinter decides whether to colorize output.
type ColorPrinter struct {
	mode string
	w    io.Writer
}

// NewColorPrinter creates a printer for one of the config color modes. Auto
// colors only when w is a terminal.
func NewColorPrinter(mode string, w io.Writer) *ColorPrinter {
	return &ColorPrinter{mode: mode, w: w}
}

func (c *ColorPrinter) ShouldColor() bool {
	switch c.mode {
	case config.ColorNever:
		return false
	case config.ColorAlways:
		return true
	default:
		f, ok := c.w.(*os.File)
		return ok && term.IsTerminal(int(f.Fd()))
	}
}

func (c *ColorPrinter) Sprintf(clr *color.Color, format string, a ...interface{}) string {
	if !c.ShouldColor() {
		return fmt.Sprintf(format, a...)
	}

	// Copy so the package level NoColor detection doesn't win over the mode.
	forced := *clr
	forced.EnableColor()
	return forced.Sprintf(format, a...)
}
