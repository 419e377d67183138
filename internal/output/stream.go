package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// StreamPrinter writes streamed answer fragments as they arrive. With a
// markdown renderer it replaces the raw text with the rendered answer once
// the stream finishes, so it should only be given one when w is a terminal.
type StreamPrinter struct {
	w     io.Writer
	md    *MarkdownRenderer
	width int

	streamed strings.Builder
}

// NewStreamPrinter creates a printer. md may be nil for plain output; width
// is the terminal width used to count wrapped rows (0 disables wrapping).
func NewStreamPrinter(w io.Writer, md *MarkdownRenderer, width int) *StreamPrinter {
	return &StreamPrinter{w: w, md: md, width: width}
}

// OnIncrement has the signature of llm.IncrementFunc.
func (p *StreamPrinter) OnIncrement(fragment, accumulated string) {
	// A fresh stream after output means the session failed over.
	if accumulated == fragment && p.streamed.Len() > 0 {
		fmt.Fprintln(p.w)
		p.streamed.Reset()
	}
	p.streamed.WriteString(fragment)
	io.WriteString(p.w, fragment)
}

// Finish prints the final answer. If nothing was streamed the answer is
// printed in full; otherwise streamed markdown is redrawn rendered.
func (p *StreamPrinter) Finish(answer string) {
	defer p.streamed.Reset()

	if p.streamed.Len() == 0 {
		if p.md != nil && ContainsMarkdown(answer) {
			io.WriteString(p.w, p.md.Render(answer))
			return
		}
		io.WriteString(p.w, answer)
		fmt.Fprintln(p.w)
		return
	}

	if p.md == nil || !ContainsMarkdown(answer) {
		fmt.Fprintln(p.w)
		return
	}

	p.erase()
	io.WriteString(p.w, p.md.Render(answer))
}

// Abort ends a stream that failed; the partial text stays visible.
func (p *StreamPrinter) Abort() {
	if p.streamed.Len() > 0 {
		fmt.Fprintln(p.w)
	}
	p.streamed.Reset()
}

// erase moves the cursor to the first streamed row and clears to the end of
// the screen.
func (p *StreamPrinter) erase() {
	rows := p.rows()
	io.WriteString(p.w, "\r")
	if rows > 1 {
		fmt.Fprintf(p.w, "\x1b[%dA", rows-1)
	}
	io.WriteString(p.w, "\x1b[J")
}

// rows counts terminal rows taken by the streamed text, including soft wraps.
func (p *StreamPrinter) rows() int {
	rows := 0
	for _, line := range strings.Split(p.streamed.String(), "\n") {
		w := lipgloss.Width(line)
		if p.width > 0 && w > p.width {
			rows += (w + p.width - 1) / p.width
		} else {
			rows++
		}
	}
	return rows
}
