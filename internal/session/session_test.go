package session

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr"

	"gemini-chat/internal/handlers"
	"gemini-chat/internal/models"
	"gemini-chat/internal/router"
)

type stubRelay struct {
	reply string
	err   error
	calls int
	turns []models.ChatTurn
}

func (s *stubRelay) Chat(ctx context.Context, turns []models.ChatTurn) (string, error) {
	s.calls++
	s.turns = turns
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

type failingRenderer struct{}

func (failingRenderer) Render(string) (string, error) {
	return "", errors.New("renderer broke")
}

func newHTMLSession(relay Relay) (*Session, *HTMLLog) {
	chatLog := NewHTMLLog()
	return New(relay, logr.Discard(), View{Log: chatLog, Renderer: NewHTMLRenderer()}), chatLog
}

func TestSubmit_BlankTextIsNoop(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t "} {
		relay := &stubRelay{reply: "unused"}
		s, chatLog := newHTMLSession(relay)

		if err := s.Submit(context.Background(), text); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if relay.calls != 0 {
			t.Fatalf("expected no network call for %q", text)
		}
		if len(s.History()) != 0 {
			t.Fatalf("expected empty history for %q", text)
		}
		if len(chatLog.Entries()) != 0 {
			t.Fatalf("expected empty chat log for %q", text)
		}
	}
}

func TestSubmit_Success(t *testing.T) {
	relay := &stubRelay{reply: "Hi **there**"}
	s, chatLog := newHTMLSession(relay)

	if err := s.Submit(context.Background(), "  Hello  "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if relay.calls != 1 {
		t.Fatalf("expected 1 call, got %d", relay.calls)
	}
	if len(relay.turns) != 1 || relay.turns[0] != (models.ChatTurn{Role: models.RoleUser, Content: "Hello"}) {
		t.Fatalf("unexpected turns sent: %+v", relay.turns)
	}

	history := s.History()
	expected := []models.ChatTurn{
		{Role: models.RoleUser, Content: "Hello"},
		{Role: models.RoleModel, Content: "Hi **there**"},
	}
	if len(history) != len(expected) {
		t.Fatalf("expected %d turns, got %d", len(expected), len(history))
	}
	for i := range expected {
		if history[i] != expected[i] {
			t.Errorf("turn %d: expected %+v, got %+v", i, expected[i], history[i])
		}
	}

	entries := chatLog.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	bot := entries[1]
	if bot.Pending {
		t.Errorf("expected pending styling to be removed")
	}
	if bot.Error {
		t.Errorf("expected no error styling")
	}
	if !strings.Contains(bot.HTML, "<strong>there</strong>") {
		t.Errorf("expected rendered markdown, got %q", bot.HTML)
	}
}

func TestSubmit_SendsEntireHistory(t *testing.T) {
	relay := &stubRelay{reply: "ok"}
	s, _ := newHTMLSession(relay)

	s.Submit(context.Background(), "first")
	s.Submit(context.Background(), "second")

	if len(relay.turns) != 3 {
		t.Fatalf("expected 3 turns on the second call, got %d", len(relay.turns))
	}
	if relay.turns[0].Content != "first" || relay.turns[1].Role != models.RoleModel || relay.turns[2].Content != "second" {
		t.Fatalf("unexpected turns: %+v", relay.turns)
	}
}

func TestSubmit_UserTextIsPlain(t *testing.T) {
	relay := &stubRelay{reply: "ok"}
	s, chatLog := newHTMLSession(relay)

	s.Submit(context.Background(), "<img src=x onerror=alert(1)> **not bold**")

	user := chatLog.Entries()[0]
	if user.Kind != "user" {
		t.Fatalf("expected user entry, got %q", user.Kind)
	}
	if strings.Contains(user.HTML, "<img") || strings.Contains(user.HTML, "<strong>") {
		t.Fatalf("expected user text to be escaped verbatim, got %q", user.HTML)
	}
	if !strings.Contains(user.HTML, "&lt;img") || !strings.Contains(user.HTML, "**not bold**") {
		t.Fatalf("expected escaped literal text, got %q", user.HTML)
	}
}

func TestSubmit_Failures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{"server error", &ServerError{StatusCode: 500, Message: "boom"}, FailedText},
		{"network error", ErrNetwork, FailedText},
		{"empty result", ErrEmptyResult, EmptyResultText},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			relay := &stubRelay{err: tc.err}
			s, chatLog := newHTMLSession(relay)

			err := s.Submit(context.Background(), "Hello")
			if !errors.Is(err, tc.err) {
				t.Fatalf("expected %v, got %v", tc.err, err)
			}

			history := s.History()
			if len(history) != 1 || history[0].Role != models.RoleUser {
				t.Fatalf("expected only the user turn, got %+v", history)
			}

			entries := chatLog.Entries()
			bot := entries[len(entries)-1]
			if !bot.Error || bot.Pending {
				t.Fatalf("expected error styling without pending, got %+v", bot)
			}
			if bot.HTML != tc.message {
				t.Fatalf("expected %q, got %q", tc.message, bot.HTML)
			}
		})
	}
}

func TestSubmit_RenderFailure(t *testing.T) {
	relay := &stubRelay{reply: "hi"}
	chatLog := NewHTMLLog()
	s := New(relay, logr.Discard(), View{Log: chatLog, Renderer: failingRenderer{}})

	if err := s.Submit(context.Background(), "Hello"); err == nil {
		t.Fatalf("expected render error")
	}
	if len(s.History()) != 1 {
		t.Fatalf("expected no model turn after a render failure")
	}
	if bot := chatLog.Entries()[1]; !bot.Error {
		t.Fatalf("expected error entry, got %+v", bot)
	}
}

type blockingRelay struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingRelay) Chat(ctx context.Context, turns []models.ChatTurn) (string, error) {
	close(b.started)
	<-b.release
	return "done", nil
}

func TestSubmit_RejectsOverlap(t *testing.T) {
	relay := &blockingRelay{started: make(chan struct{}), release: make(chan struct{})}
	s, chatLog := newHTMLSession(relay)

	done := make(chan error, 1)
	go func() { done <- s.Submit(context.Background(), "first") }()

	select {
	case <-relay.started:
	case <-time.After(5 * time.Second):
		t.Fatal("relay was never called")
	}

	if err := s.Submit(context.Background(), "second"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if n := len(s.History()); n != 1 {
		t.Fatalf("expected rejected submission to leave history alone, got %d turns", n)
	}

	close(relay.release)
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := len(chatLog.Entries()); n != 2 {
		t.Fatalf("expected 2 log entries, got %d", n)
	}
}

func TestSubmit_MultipleViews(t *testing.T) {
	relay := &stubRelay{reply: "**hi**"}
	htmlLog := NewHTMLLog()
	var out strings.Builder
	termRenderer, err := NewTerminalRenderer("notty", 80)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := New(relay, logr.Discard(),
		View{Log: NewTerminalLog(&out), Renderer: termRenderer},
		View{Log: htmlLog, Renderer: NewHTMLRenderer()},
	)

	if err := s.Submit(context.Background(), "Hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "Hello") || !strings.Contains(out.String(), "hi") {
		t.Errorf("expected terminal transcript, got %q", out.String())
	}
	if bot := htmlLog.Entries()[1]; bot.HTML != "<p><strong>hi</strong></p>\n" {
		t.Errorf("unexpected html %q", bot.HTML)
	}
}

type stubGenerator struct {
	reply string
	err   error
	calls int
}

func (g *stubGenerator) Chat(ctx context.Context, turns []models.ChatTurn) (string, error) {
	g.calls++
	return g.reply, g.err
}

func TestEndToEnd_HelloHiThere(t *testing.T) {
	gen := &stubGenerator{reply: "Hi there"}
	srv := httptest.NewServer(router.New(handlers.NewChatHandler(gen, logr.Discard()), "", "*"))
	defer srv.Close()

	s, chatLog := newHTMLSession(NewClient(srv.URL, nil))

	if err := s.Submit(context.Background(), "Hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gen.calls != 1 {
		t.Fatalf("expected 1 upstream call, got %d", gen.calls)
	}

	history := s.History()
	if len(history) != 2 ||
		history[0] != (models.ChatTurn{Role: models.RoleUser, Content: "Hello"}) ||
		history[1] != (models.ChatTurn{Role: models.RoleModel, Content: "Hi there"}) {
		t.Fatalf("unexpected history %+v", history)
	}

	if bot := chatLog.Entries()[1]; bot.HTML != "<p>Hi there</p>\n" || bot.Pending {
		t.Fatalf("unexpected bot entry %+v", bot)
	}
}

func TestEndToEnd_UpstreamFailure(t *testing.T) {
	gen := &stubGenerator{err: errors.New("Gemini API error: unavailable")}
	srv := httptest.NewServer(router.New(handlers.NewChatHandler(gen, logr.Discard()), "", "*"))
	defer srv.Close()

	s, chatLog := newHTMLSession(NewClient(srv.URL, nil))

	err := s.Submit(context.Background(), "Hello")

	var srvErr *ServerError
	if !errors.As(err, &srvErr) {
		t.Fatalf("expected ServerError, got %v", err)
	}
	if srvErr.StatusCode != 500 || srvErr.Message != "Gemini API error: unavailable" {
		t.Fatalf("unexpected server error %+v", srvErr)
	}
	if len(s.History()) != 1 {
		t.Fatalf("expected only the user turn")
	}
	if bot := chatLog.Entries()[1]; !bot.Error || bot.HTML != FailedText {
		t.Fatalf("unexpected bot entry %+v", bot)
	}
}
