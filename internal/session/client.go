package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gemini-chat/internal/models"
)

var (
	// ErrNetwork covers every way the relay round trip can fail before a
	// usable answer arrives: transport errors, non-2xx statuses, bad JSON.
	ErrNetwork = errors.New("failed to reach chat server")
	// ErrEmptyResult is returned when the relay answers 2xx without a result.
	ErrEmptyResult = errors.New("no response received")
)

// ServerError is a non-2xx answer from the relay. It matches ErrNetwork.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return e.Message
}

func (e *ServerError) Is(target error) bool {
	return target == ErrNetwork
}

// Client posts conversations to the relay's /api/chat endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a relay client. A nil httpClient uses http.DefaultClient,
// so only the transport's default timeouts apply.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Chat sends the full conversation and returns the generated reply.
func (c *Client) Chat(ctx context.Context, turns []models.ChatTurn) (string, error) {
	body, err := json.Marshal(models.ChatRequest{Messages: &turns})
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	var data models.ChatResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&data)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := data.Error
		if decodeErr != nil || msg == "" {
			msg = fmt.Sprintf("Server error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		}
		return "", &ServerError{StatusCode: resp.StatusCode, Message: msg}
	}

	if decodeErr != nil {
		return "", fmt.Errorf("%w: malformed response: %w", ErrNetwork, decodeErr)
	}
	if data.Result == "" {
		return "", ErrEmptyResult
	}

	return data.Result, nil
}
