// Package output renders command results for terminals, pipes and scripts.
//
// Output adapts to the environment: a terminal gets styled text, anything
// else gets markdown, and json is always available on request.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Mode selects the output format.
type Mode string

// Output modes.
const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
)

// Modes lists the accepted values of --output.
var Modes = []string{string(ModeAuto), string(ModeText), string(ModeMarkdown), string(ModeJSON)}

// Valid reports whether m is a known mode. The empty mode means auto.
func (m Mode) Valid() bool {
	switch m {
	case "", ModeAuto, ModeText, ModeMarkdown, ModeJSON:
		return true
	}
	return false
}

// Renderer writes command output in the selected mode.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	mode   Mode
	isTTY  bool
	styles *Styles
}

// NewRenderer creates a renderer, detecting whether out is a terminal.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	return NewRendererWithTTY(out, errOut, isTerminal(out), mode)
}

// NewRendererWithTTY creates a renderer with an explicit terminal state.
func NewRendererWithTTY(out, errOut io.Writer, isTTY bool, mode Mode) *Renderer {
	if mode == "" {
		mode = ModeAuto
	}
	lr := lipgloss.NewRenderer(out)
	if isTTY {
		lr.SetColorProfile(termenv.NewOutput(out).EnvColorProfile())
	} else {
		lr.SetColorProfile(termenv.Ascii)
	}
	return &Renderer{
		out:    out,
		errOut: errOut,
		mode:   mode,
		isTTY:  isTTY,
		styles: newStyles(lr),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// EffectiveMode resolves auto to text on a terminal and markdown otherwise.
func (r *Renderer) EffectiveMode() Mode {
	if r.mode != ModeAuto {
		return r.mode
	}
	if r.isTTY {
		return ModeText
	}
	return ModeMarkdown
}

// IsTTY reports whether output goes to a terminal.
func (r *Renderer) IsTTY() bool { return r.isTTY }

// Writer returns the standard output writer.
func (r *Renderer) Writer() io.Writer { return r.out }

// ErrWriter returns the error output writer.
func (r *Renderer) ErrWriter() io.Writer { return r.errOut }

// Styles returns the styles bound to this renderer's colour profile.
func (r *Renderer) Styles() *Styles { return r.styles }

// Println writes a line.
func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.out, a...)
}

// Printf writes formatted output.
func (r *Renderer) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.out, format, a...)
}

// Header writes a level 1 or 2 heading.
func (r *Renderer) Header(level int, title string) {
	if r.EffectiveMode() == ModeMarkdown {
		r.Println(FormatHeader(level, title))
		r.Println("")
		return
	}
	style := r.styles.Header2
	if level <= 1 {
		style = r.styles.Header1
	}
	r.Println(style.Render(title))
}

// Success writes a success message.
func (r *Renderer) Success(msg string) {
	r.Println(r.styles.Success.Render(SymbolSuccess + " " + msg))
}

// Warning writes a warning to the error output.
func (r *Renderer) Warning(msg string) {
	_, _ = fmt.Fprintln(r.errOut, r.styles.Warning.Render(SymbolWarning+" "+msg))
}

// Error writes an error to the error output.
func (r *Renderer) Error(msg string) {
	_, _ = fmt.Fprintln(r.errOut, r.styles.Error.Render(SymbolError+" "+msg))
}

// Muted writes a de-emphasised line.
func (r *Renderer) Muted(msg string) {
	r.Println(r.styles.Muted.Render(msg))
}

// StatusLine writes "symbol name detail" for a status of success, warning,
// error or skipped.
func (r *Renderer) StatusLine(name, status, detail string) {
	var line string
	switch status {
	case "success":
		line = r.styles.Success.Render(SymbolSuccess) + " " + name
	case "warning":
		line = r.styles.Warning.Render(SymbolWarning) + " " + name
	case "error":
		line = r.styles.Error.Render(SymbolError) + " " + name
	default:
		line = r.styles.Muted.Render(SymbolSkipped) + " " + name
	}
	if detail != "" {
		line += " " + r.styles.Muted.Render(detail)
	}
	r.Println(line)
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
