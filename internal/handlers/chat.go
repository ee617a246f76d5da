package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-logr/logr"

	"gemini-chat/internal/middleware"
	"gemini-chat/internal/models"
)

const maxChatBodyBytes = 1 << 20

// chatService generates one reply for a full conversation.
type chatService interface {
	Chat(ctx context.Context, turns []models.ChatTurn) (string, error)
}

type ChatHandler struct {
	chat chatService
	log  logr.Logger
}

func NewChatHandler(chat chatService, log logr.Logger) *ChatHandler {
	return &ChatHandler{
		chat: chat,
		log:  log.WithName("chat"),
	}
}

// InvalidInputError marks a request body the relay refuses to forward.
type InvalidInputError struct {
	Message string
}

func (e *InvalidInputError) Error() string {
	return e.Message
}

// HandleChat relays the posted conversation to the generation service and
// answers with the single generated reply. Nothing is kept between requests.
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	log := h.log.WithValues("requestID", middleware.GetRequestID(r.Context()))

	turns, err := decodeChatRequest(http.MaxBytesReader(w, r.Body, maxChatBodyBytes))
	if err != nil {
		log.V(1).Info("rejected chat request", "reason", err.Error())
		writeJSON(w, http.StatusBadRequest, errorResp(err))
		return
	}

	reply, err := h.chat.Chat(r.Context(), turns)
	if err != nil {
		log.Error(err, "chat generation failed", "turns", len(turns))
		writeJSON(w, http.StatusInternalServerError, errorResp(err))
		return
	}

	log.V(1).Info("chat reply generated", "turns", len(turns), "replyBytes", len(reply))
	writeJSON(w, http.StatusOK, models.ChatResponse{Result: reply})
}

func decodeChatRequest(body io.Reader) ([]models.ChatTurn, error) {
	var req models.ChatRequest
	dec := json.NewDecoder(body)
	if err := dec.Decode(&req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && strings.HasPrefix(typeErr.Field, "messages") {
			return nil, &InvalidInputError{Message: "messages must be an array of {role, content} objects"}
		}
		return nil, &InvalidInputError{Message: "Invalid request body"}
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, &InvalidInputError{Message: "Request body must contain a single JSON object"}
	}

	if req.Messages == nil {
		return nil, &InvalidInputError{Message: "messages must be an array"}
	}

	turns := *req.Messages
	if err := validateTurns(turns); err != nil {
		return nil, err
	}
	return turns, nil
}

// validateTurns enforces what the generation API accepts: at least one turn,
// known roles, non-blank content, and a user turn last.
func validateTurns(turns []models.ChatTurn) error {
	if len(turns) == 0 {
		return &InvalidInputError{Message: "messages must not be empty"}
	}

	for i, t := range turns {
		if !t.Role.Valid() {
			return &InvalidInputError{Message: fmt.Sprintf("messages[%d]: unknown role %q", i, t.Role)}
		}
		if strings.TrimSpace(t.Content) == "" {
			return &InvalidInputError{Message: fmt.Sprintf("messages[%d]: content is required", i)}
		}
	}

	if turns[len(turns)-1].Role != models.RoleUser {
		return &InvalidInputError{Message: "last message must come from the user"}
	}

	return nil
}
