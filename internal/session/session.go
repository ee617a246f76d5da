// Package session implements the client side of the chat: it owns the
// conversation history, submits it to the relay on every user turn and keeps
// one or more chat logs in sync with the outcome.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/go-logr/logr"

	"gemini-chat/internal/models"
)

const (
	PendingText     = "Thinking..."
	FailedText      = "Failed to get response from server."
	EmptyResultText = "Sorry, no response received."
)

// ErrBusy is returned when a message is submitted while the previous one is
// still waiting for its reply.
var ErrBusy = errors.New("a reply is still pending")

// Relay forwards a conversation and returns the generated reply.
type Relay interface {
	Chat(ctx context.Context, turns []models.ChatTurn) (string, error)
}

type Session struct {
	relay    Relay
	views    []View
	history  History
	inFlight atomic.Bool
	log      logr.Logger
}

func New(relay Relay, log logr.Logger, views ...View) *Session {
	return &Session{
		relay: relay,
		views: views,
		log:   log.WithName("session"),
	}
}

// History returns a snapshot of the conversation so far.
func (s *Session) History() []models.ChatTurn {
	return s.history.Turns()
}

// Len returns the number of turns recorded so far.
func (s *Session) Len() int {
	return s.history.Len()
}

// Submit sends one user message. Blank text is ignored. The user's turn is
// recorded before the relay is called; the model's turn only after a reply
// was received and rendered for every view.
func (s *Session) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if !s.inFlight.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.inFlight.Store(false)

	s.history.Append(models.RoleUser, text)

	pending := make([]Pending, len(s.views))
	for i, v := range s.views {
		v.Log.AppendUser(text)
		pending[i] = v.Log.AppendPending(PendingText)
	}

	turns := s.history.Turns()
	s.log.V(1).Info("submitting conversation", "turns", len(turns))

	reply, err := s.relay.Chat(ctx, turns)
	if err != nil {
		s.log.Error(err, "chat request failed")
		failAll(pending, failureText(err))
		return err
	}

	rendered := make([]string, len(s.views))
	for i, v := range s.views {
		out, err := v.Renderer.Render(reply)
		if err != nil {
			s.log.Error(err, "rendering reply failed")
			failAll(pending, FailedText)
			return fmt.Errorf("render reply: %w", err)
		}
		rendered[i] = out
	}

	for i, p := range pending {
		p.Resolve(rendered[i])
	}
	s.history.Append(models.RoleModel, reply)

	return nil
}

func failAll(pending []Pending, message string) {
	for _, p := range pending {
		p.Fail(message)
	}
}

func failureText(err error) string {
	if errors.Is(err, ErrEmptyResult) {
		return EmptyResultText
	}
	return FailedText
}
