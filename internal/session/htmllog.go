package session

import (
	"html"
	"html/template"
	"io"
	"strings"
	"sync"
)

// Entry is one message element of an HTMLLog.
type Entry struct {
	Kind    string // "user" or "bot"
	Error   bool
	Pending bool
	HTML    string
}

// Class returns the element's CSS classes, matching public/style.css.
func (e Entry) Class() string {
	classes := []string{"message", e.Kind + "-message"}
	if e.Error {
		classes = append(classes, "error-message")
	}
	if e.Pending {
		classes = append(classes, "thinking")
	}
	return strings.Join(classes, " ")
}

// HTMLLog keeps the chat as a list of HTML message elements, the same markup
// the browser page builds.
type HTMLLog struct {
	mu      sync.Mutex
	entries []*Entry
}

func NewHTMLLog() *HTMLLog {
	return &HTMLLog{}
}

func (l *HTMLLog) AppendUser(text string) {
	l.append(&Entry{Kind: "user", HTML: html.EscapeString(text)})
}

func (l *HTMLLog) AppendPending(text string) Pending {
	e := &Entry{Kind: "bot", Pending: true, HTML: html.EscapeString(text)}
	l.append(e)
	return &htmlPending{log: l, entry: e}
}

func (l *HTMLLog) append(e *Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
}

// Entries returns a copy of the log's entries.
func (l *HTMLLog) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	for i, e := range l.entries {
		out[i] = *e
	}
	return out
}

var transcriptTmpl = template.Must(template.New("transcript").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<link rel="stylesheet" href="style.css">
</head>
<body>
<div id="chat-box">
{{range .Entries}}<div class="{{.Class}}">{{.Body}}</div>
{{end}}</div>
</body>
</html>
`))

// WriteTranscript writes the log as a standalone HTML page. Entry bodies are
// already escaped or sanitized, so they are emitted as-is.
func (l *HTMLLog) WriteTranscript(w io.Writer, title string) error {
	type row struct {
		Class string
		Body  template.HTML
	}
	entries := l.Entries()
	rows := make([]row, len(entries))
	for i, e := range entries {
		rows[i] = row{Class: e.Class(), Body: template.HTML(e.HTML)}
	}
	return transcriptTmpl.Execute(w, struct {
		Title   string
		Entries []row
	}{Title: title, Entries: rows})
}

type htmlPending struct {
	log   *HTMLLog
	entry *Entry
}

func (p *htmlPending) Resolve(rendered string) {
	p.log.mu.Lock()
	defer p.log.mu.Unlock()
	p.entry.HTML = rendered
	p.entry.Pending = false
}

func (p *htmlPending) Fail(message string) {
	p.log.mu.Lock()
	defer p.log.mu.Unlock()
	p.entry.HTML = html.EscapeString(message)
	p.entry.Pending = false
	p.entry.Error = true
}
