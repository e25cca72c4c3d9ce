// Package diagfmt renders diagnostics for humans: one header line per
// diagnostic, the source line it points at, and a caret underline.
package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"cminor/internal/diag"
	"cminor/internal/source"
)

// PrettyOpts configures Pretty.
type PrettyOpts struct {
	Color     bool
	ShowNotes bool
}

// Pretty writes every diagnostic in bag to w. Callers sort the bag first
// when they want deterministic order. Each diagnostic prints as
//
//	<path>:<line>:<col>: <SEVERITY> <CODE>: <message>
//	        <source line>
//	        ^~~~
//
// followed by its notes in the same shape when ShowNotes is set.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	p := printer{w: w, fs: fs, opts: opts}
	for _, d := range bag.Items() {
		p.diagnostic(&d)
	}
}

type printer struct {
	w    io.Writer
	fs   *source.FileSet
	opts PrettyOpts
}

func (p *printer) diagnostic(d *diag.Diagnostic) {
	p.header(d.Primary, d.Severity, d.Code, d.Message)
	p.context(d.Primary)
	if !p.opts.ShowNotes {
		return
	}
	for _, n := range d.Notes {
		p.header(n.Span, diag.SevInfo, diag.UnknownCode, n.Msg)
		p.context(n.Span)
	}
}

func (p *printer) header(span source.Span, sev diag.Severity, code diag.Code, msg string) {
	loc := "<none>"
	if span.IsValid() && p.fs != nil {
		pos := p.fs.Position(span.File, span.Start)
		loc = fmt.Sprintf("%s:%d:%d", p.fs.Path(span.File), pos.Line, pos.Col)
	}
	label := sev.String()
	if code != diag.UnknownCode {
		label += " " + code.String()
	}
	if p.opts.Color {
		label = p.severityColor(sev).Sprint(label)
	}
	fmt.Fprintf(p.w, "%s: %s: %s\n", loc, label, msg)
}

// context prints the source line under the header with a caret run
// covering the span. Widths are measured per rune so tabs and wide
// characters keep the carets under the right columns.
func (p *printer) context(span source.Span) {
	if !span.IsValid() || p.fs == nil {
		return
	}
	line := p.fs.Line(span.File, span.Start)
	if line == "" {
		return
	}
	pos := p.fs.Position(span.File, span.Start)
	col := int(pos.Col) - 1
	if col > len(line) {
		col = len(line)
	}
	pad := displayWidth(line[:col])
	width := displayWidth(clipSpan(line, col, int(span.Len())))
	if width < 1 {
		width = 1
	}
	marker := "^" + strings.Repeat("~", width-1)
	if p.opts.Color {
		marker = color.New(color.FgHiGreen, color.Bold).Sprint(marker)
	}
	fmt.Fprintf(p.w, "        %s\n", line)
	fmt.Fprintf(p.w, "        %s%s\n", strings.Repeat(" ", pad), marker)
}

func (p *printer) severityColor(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return color.New(color.FgHiRed, color.Bold)
	case diag.SevWarning:
		return color.New(color.FgHiYellow, color.Bold)
	default:
		return color.New(color.FgHiBlue)
	}
}

// clipSpan returns the slice of line the span covers, stopping at the end
// of the line for multi-line spans.
func clipSpan(line string, col, n int) string {
	end := col + n
	if end > len(line) {
		end = len(line)
	}
	if end < col {
		end = col
	}
	return line[col:end]
}

// displayWidth measures terminal columns, counting a tab as four.
func displayWidth(s string) int {
	w := 0
	for _, r := range s {
		if r == '\t' {
			w += 4
			continue
		}
		w += runewidth.RuneWidth(r)
	}
	return w
}
