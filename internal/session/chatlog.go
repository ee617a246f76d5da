package session

// ChatLog is where a session shows the conversation.
type ChatLog interface {
	// AppendUser shows the user's text verbatim, never as markup.
	AppendUser(text string)
	// AppendPending shows a placeholder in the bot slot until the reply lands.
	AppendPending(text string) Pending
}

// Pending is a placeholder entry awaiting its reply.
type Pending interface {
	// Resolve replaces the placeholder with already rendered bot content.
	Resolve(rendered string)
	// Fail replaces the placeholder with a plain-text error message.
	Fail(message string)
}

// View pairs a chat log with the renderer that produces its bot content.
type View struct {
	Log      ChatLog
	Renderer Renderer
}
