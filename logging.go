package http2

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
)

// Logger is the one-method logging surface the engine writes
// diagnostics through, compatible with fasthttp.Logger so a caller
// already embedding fasthttp can pass its existing logger straight in.
type Logger interface {
	Printf(format string, args ...interface{})
}

// ColorLogger is the default Logger. Printf writes each line untinted
// to Out, or to a colorable stderr when Out is nil. Only errorf tints
// its output, and no engine code path calls it; warnColor is unused.
type ColorLogger struct {
	Out io.Writer

	errColor  *color.Color
	warnColor *color.Color
}

func (l *ColorLogger) out() io.Writer {
	if l.Out != nil {
		return l.Out
	}
	return colorable.NewColorableStderr()
}

func (l *ColorLogger) Printf(format string, args ...interface{}) {
	fmt.Fprintf(l.out(), format+"\n", args...)
}

// errorf writes one line tinted with errColor, or red when errColor is
// nil. Nothing in the engine calls it.
func (l *ColorLogger) errorf(format string, args ...interface{}) {
	c := l.errColor
	if c == nil {
		c = color.New(color.FgRed)
	}
	fmt.Fprintf(l.out(), c.Sprintf(format, args...)+"\n")
}

// nopLogger discards everything; used as a safe zero value when
// Options.Logger is left unset by a caller building Options by hand
// (NewOptions always sets a ColorLogger, so this mainly guards direct
// struct literals).
type nopLogger struct{}

func (nopLogger) Printf(string, ...interface{}) {}

var _ Logger = (*ColorLogger)(nil)
var _ Logger = nopLogger{}

func init() {
	// Respect NO_COLOR rather than force-coloring piped output.
	if os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}
}
