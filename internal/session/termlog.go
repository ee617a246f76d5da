package session

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	userLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	pendingStyle   = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("8"))
	errorStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

// TerminalLog prints the conversation to a terminal as it happens. A terminal
// cannot rewrite the placeholder line, so the reply is printed below it.
type TerminalLog struct {
	mu  sync.Mutex
	out io.Writer
}

func NewTerminalLog(out io.Writer) *TerminalLog {
	return &TerminalLog{out: out}
}

func (l *TerminalLog) AppendUser(text string) {
	l.printf("%s %s\n", userLabelStyle.Render("you ›"), stripEscapes(text))
}

func (l *TerminalLog) AppendPending(text string) Pending {
	l.printf("%s\n", pendingStyle.Render(stripEscapes(text)))
	return &termPending{log: l}
}

func (l *TerminalLog) printf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, format, args...)
}

type termPending struct {
	log *TerminalLog
}

func (p *termPending) Resolve(rendered string) {
	if !strings.HasSuffix(rendered, "\n") {
		rendered += "\n"
	}
	p.log.printf("%s", rendered)
}

func (p *termPending) Fail(message string) {
	p.log.printf("%s\n", errorStyle.Render(stripEscapes(message)))
}
