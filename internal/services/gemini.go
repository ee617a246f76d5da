package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"gemini-chat/internal/models"
)

// GeminiModel names the model variant every conversation is sent to.
const GeminiModel = "gemini-1.5-flash-latest"

var (
	// ErrEmptyResponse is returned when Gemini answers without any text.
	ErrEmptyResponse = errors.New("Gemini returned empty text")
	// ErrNoTurns is returned for a conversation with nothing to send.
	ErrNoTurns = errors.New("conversation has no turns")
)

type GeminiService struct {
	client *genai.Client
	model  *genai.GenerativeModel
	log    logr.Logger
}

func NewGeminiService(apiKey string, log logr.Logger) (*GeminiService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiService{
		client: client,
		model:  client.GenerativeModel(GeminiModel),
		log:    log.WithName("gemini"),
	}, nil
}

func (s *GeminiService) Close() {
	s.client.Close()
}

// Chat sends the whole conversation to Gemini in a single request and returns
// the generated reply. The chat session is built per call and discarded, so
// nothing survives between requests.
func (s *GeminiService) Chat(ctx context.Context, turns []models.ChatTurn) (string, error) {
	history, last, err := splitConversation(turns)
	if err != nil {
		return "", err
	}

	cs := s.model.StartChat()
	cs.History = history

	resp, err := cs.SendMessage(ctx, last.Parts...)
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	for i, cand := range resp.Candidates {
		s.log.V(1).Info("candidate", "index", i, "finishReason", cand.FinishReason.String(), "tokenCount", cand.TokenCount)
		if cand.FinishReason != genai.FinishReasonStop {
			s.log.Info("Gemini stopped early", "index", i, "finishReason", cand.FinishReason.String())
		}
	}

	return replyText(resp)
}

// Helper functions

// toContents maps chat turns onto Gemini contents, one text part per turn,
// keeping their order.
func toContents(turns []models.ChatTurn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		contents = append(contents, &genai.Content{
			Role:  string(t.Role),
			Parts: []genai.Part{genai.Text(t.Content)},
		})
	}
	return contents
}

// splitConversation separates the turns Gemini gets as chat history from the
// final turn that is sent as the new message.
func splitConversation(turns []models.ChatTurn) ([]*genai.Content, *genai.Content, error) {
	contents := toContents(turns)
	if len(contents) == 0 {
		return nil, nil, ErrNoTurns
	}
	return contents[:len(contents)-1], contents[len(contents)-1], nil
}

func replyText(resp *genai.GenerateContentResponse) (string, error) {
	text := extractText(resp)
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
