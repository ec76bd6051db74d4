package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nimbuschat/nimbus-go/internal/model"
	"github.com/nimbuschat/nimbus-go/internal/provider"
)

const (
	// MaxMessageLength is the longest accepted chat message.
	MaxMessageLength = 5000

	// HistoryLimit is how many prior turns are forwarded upstream. Older
	// turns are dropped; history lives only in the client.
	HistoryLimit = 10
)

// Chat error sentinels. The text of each is the fixed user-safe message for
// that failure class; raw vendor errors are logged server-side only.
var (
	ErrInvalidMessage  = errors.New("Invalid message")
	ErrMessageTooLong  = errors.New("Message too long (max 5000 characters)")
	ErrNotConfigured   = errors.New("Server configuration error. Please contact administrator.")
	ErrUpstreamBusy    = errors.New("Service is currently busy. Please try again in a moment.")
	ErrUpstreamTimeout = errors.New("Request timed out. Please try again.")
	ErrUpstream        = errors.New("Sorry, I encountered an error. Please try again.")
)

// ChatService validates chat turns, bounds the forwarded history and
// dispatches to the single configured provider adapter. One attempt per
// turn; no retries, no vendor failover.
type ChatService struct {
	adapter    provider.Adapter
	configured bool
}

// NewChatService creates a ChatService. configured reports whether an
// upstream API key is present; without one every chat turn fails with
// ErrNotConfigured instead of crashing.
func NewChatService(adapter provider.Adapter, configured bool) *ChatService {
	return &ChatService{adapter: adapter, configured: configured}
}

// Provider returns the active provider name.
func (s *ChatService) Provider() string {
	return s.adapter.Name()
}

// Send handles one chat turn. Validation order: message shape first, then
// server configuration; first failure wins.
func (s *ChatService) Send(ctx context.Context, message string, history []model.ChatMessage) (string, error) {
	if message == "" {
		return "", ErrInvalidMessage
	}
	if len(message) > MaxMessageLength {
		return "", ErrMessageTooLong
	}
	if !s.configured {
		return "", ErrNotConfigured
	}

	if len(history) > HistoryLimit {
		history = history[len(history)-HistoryLimit:]
	}

	reply, err := s.adapter.Send(ctx, message, history)
	if err != nil {
		slog.Error("provider call failed", "provider", s.adapter.Name(), "error", err)

		var perr *provider.Error
		if errors.As(err, &perr) {
			switch perr.Kind {
			case provider.KindRateLimited:
				return "", ErrUpstreamBusy
			case provider.KindTimeout:
				return "", ErrUpstreamTimeout
			}
		}
		return "", ErrUpstream
	}

	return reply, nil
}
