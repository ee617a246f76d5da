package session

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Renderer turns untrusted Markdown from the model into something safe to show.
type Renderer interface {
	Render(markdown string) (string, error)
}

var headingID = regexp.MustCompile(`^[\p{L}\p{N}_-]+$`)

// HTMLRenderer converts Markdown to HTML and then sanitizes it. Both steps
// run on every call, in that order.
type HTMLRenderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func NewHTMLRenderer() *HTMLRenderer {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
	)

	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("id").Matching(headingID).OnElements("h1", "h2", "h3", "h4", "h5", "h6")

	return &HTMLRenderer{md: md, policy: policy}
}

func (r *HTMLRenderer) Render(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return r.policy.Sanitize(buf.String()), nil
}

// TerminalRenderer renders Markdown as ANSI text for a terminal.
type TerminalRenderer struct {
	// glamour.TermRenderer is not safe for concurrent Render calls.
	mu sync.Mutex
	tr *glamour.TermRenderer
}

// NewTerminalRenderer builds a renderer for a glamour style name ("dark",
// "light", "notty", ...) or a style JSON path.
func NewTerminalRenderer(style string, width int) (*TerminalRenderer, error) {
	tr, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(width),
		glamour.WithPreservedNewLines(),
	)
	if err != nil {
		return nil, fmt.Errorf("create terminal renderer: %w", err)
	}
	return &TerminalRenderer{tr: tr}, nil
}

func (r *TerminalRenderer) Render(markdown string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out, err := r.tr.Render(stripEscapes(markdown))
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}

// stripEscapes drops ESC bytes so remote text cannot emit terminal control
// sequences of its own.
func stripEscapes(s string) string {
	return strings.ReplaceAll(s, "\x1b", "")
}
