package render

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/gatten-sekisho/sekisho/internal/domain/gate"
)

// ColorMode selects when ANSI colors are emitted.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// Palette applies ANSI styles when enabled.
type Palette struct {
	enabled bool
}

// NewPalette resolves mode for w. In auto mode colors are used only when w
// is a terminal, NO_COLOR is unset and TERM is not "dumb".
func NewPalette(mode ColorMode, w io.Writer) Palette {
	switch mode {
	case ColorAlways:
		return Palette{enabled: true}
	case ColorNever:
		return Palette{}
	}
	return Palette{enabled: useColor(w)}
}

func useColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Enabled reports whether styles are applied.
func (p Palette) Enabled() bool {
	return p.enabled
}

func (p Palette) colorize(code, text string) string {
	if !p.enabled {
		return text
	}
	return "\x1b[" + code + "m" + text + "\x1b[0m"
}

// Headerf formats a section header.
func (p Palette) Headerf(format string, args ...any) string {
	return p.colorize("1;36", fmt.Sprintf(format, args...))
}

// Success styles a positive outcome.
func (p Palette) Success(text string) string {
	return p.colorize("32", text)
}

// Warn styles an outcome that needs attention.
func (p Palette) Warn(text string) string {
	return p.colorize("33", text)
}

// Fail styles a negative outcome.
func (p Palette) Fail(text string) string {
	return p.colorize("31", text)
}

// Dim styles secondary text.
func (p Palette) Dim(text string) string {
	return p.colorize("2", text)
}

// Key styles a label.
func (p Palette) Key(text string) string {
	return p.colorize("1;33", text)
}

// Seal styles text by seal: OPEN green, HOLD yellow, SEALED red.
func (p Palette) Seal(seal gate.Seal, text string) string {
	switch seal {
	case gate.SealOpen:
		return p.Success(text)
	case gate.SealHold:
		return p.Warn(text)
	default:
		return p.Fail(text)
	}
}
