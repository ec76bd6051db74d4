package model

// ChatMessage is one turn of a client-held conversation. The server is
// stateless per request; history travels with every chat call.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`

	// Timestamp is set by some clients for display purposes. It is never
	// forwarded upstream.
	Timestamp string `json:"timestamp,omitempty"`
}

// ChatRequest represents a chat turn from the client.
type ChatRequest struct {
	Message string        `json:"message"`
	History []ChatMessage `json:"history"`
}

// ChatResponse carries the generated reply and the vendor that produced it.
type ChatResponse struct {
	Response string `json:"response"`
	Provider string `json:"provider"`
}
