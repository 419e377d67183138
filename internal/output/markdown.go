package output

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/glamour"
)

// markdownPatterns match the constructs advisors typically answer with.
var markdownPatterns = []*regexp.Regexp{
	regexp.MustCompile(`#{1,6}\s`),         // heading
	regexp.MustCompile(`\*\*.*?\*\*`),      // bold
	regexp.MustCompile(`\*.*?\*`),          // italic
	regexp.MustCompile("`.*?`"),            // inline code
	regexp.MustCompile("```[\\s\\S]*?```"), // fenced code
	regexp.MustCompile(`(?m)^\s*[-*+]\s`),  // unordered list
	regexp.MustCompile(`(?m)^\s*\d+\.\s`),  // ordered list
	regexp.MustCompile(`(?m)^\s*>`),        // quote
	regexp.MustCompile(`\[.*?\]\(.*?\)`),   // link
	regexp.MustCompile(`\|.*?\|`),          // table
}

// inlineMarkers are the highlight and status markers answers may use, with
// the markdown each one becomes. Marker text stays on one line.
var inlineMarkers = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`==([^=\n]+?)==`), "**$1**"},
	{regexp.MustCompile(`::([^:\n]+?)::`), "✅ $1"},
	{regexp.MustCompile(`!!([^!\n]+?)!!`), "⚠️ $1"},
	{regexp.MustCompile(`\?\?([^?\n]+?)\?\?`), "❌ $1"},
	{regexp.MustCompile(`@@([^@\n]+?)@@`), "ℹ️ $1"},
}

// codeSpans matches fenced blocks and inline code, which markers never touch.
var codeSpans = regexp.MustCompile("```[\\s\\S]*?```|`[^`\n]*`")

// ExpandMarkers rewrites inline markers outside code into markdown:
// ==text== becomes bold, and ::text::, !!text!!, ??text?? and @@text@@
// gain a success, warning, error or info symbol.
func ExpandMarkers(text string) string {
	var b strings.Builder
	last := 0
	for _, loc := range codeSpans.FindAllStringIndex(text, -1) {
		b.WriteString(expandMarkers(text[last:loc[0]]))
		b.WriteString(text[loc[0]:loc[1]])
		last = loc[1]
	}
	b.WriteString(expandMarkers(text[last:]))
	return b.String()
}

func expandMarkers(s string) string {
	for _, m := range inlineMarkers {
		s = m.re.ReplaceAllString(s, m.repl)
	}
	return s
}

func containsMarkers(text string) bool {
	for _, m := range inlineMarkers {
		if m.re.MatchString(text) {
			return true
		}
	}
	return false
}

// ContainsMarkdown reports whether text looks like markdown worth rendering.
// Inline markers count.
func ContainsMarkdown(text string) bool {
	if containsMarkers(text) {
		return true
	}
	for _, p := range markdownPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// MarkdownRenderer renders markdown for terminal display.
type MarkdownRenderer struct {
	r *glamour.TermRenderer
}

// NewMarkdownRenderer creates a renderer wrapping at width columns. An empty
// style picks dark or light from the terminal background; otherwise it
// names a glamour standard style such as "dark", "light" or "ascii".
func NewMarkdownRenderer(width int, style string) (*MarkdownRenderer, error) {
	if width <= 0 {
		width = 80
	}

	styleOpt := glamour.WithAutoStyle()
	if style != "" {
		styleOpt = glamour.WithStandardStyle(style)
	}

	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return nil, err
	}
	return &MarkdownRenderer{r: r}, nil
}

// Render expands inline markers and returns the rendered markdown, or
// content unchanged if rendering fails.
func (m *MarkdownRenderer) Render(content string) string {
	if m == nil || m.r == nil {
		return content
	}
	rendered, err := m.r.Render(ExpandMarkers(content))
	if err != nil {
		return content
	}
	return rendered
}
