package models

// Role identifies who produced a chat turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Valid reports whether the generation API recognizes the role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleModel
}

// ChatTurn represents a single message in a conversation.
type ChatTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the payload sent to the chat endpoint.
// Messages is a pointer so a missing field can be told apart from an empty array.
type ChatRequest struct {
	Messages *[]ChatTurn `json:"messages"`
}

// ChatResponse is the reply from the chat endpoint.
type ChatResponse struct {
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}
