package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/nimbuschat/nimbus-go/internal/model"
)

// systemPrompt is the fixed persona instruction prepended to every
// conversation, in whatever shape the vendor requires.
const systemPrompt = "You are Nimbus, a helpful and friendly AI assistant. Be conversational, engaging, and concise."

// ErrUnknownProvider is returned by New for an unrecognized provider name.
var ErrUnknownProvider = errors.New("unknown provider")

// chatTurn is the role/content pair sent to vendors with structured turn
// lists. Client-only fields like timestamps stay off the wire.
type chatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func toTurns(history []model.ChatMessage) []chatTurn {
	turns := make([]chatTurn, 0, len(history)+2)
	for _, msg := range history {
		turns = append(turns, chatTurn{Role: msg.Role, Content: msg.Content})
	}
	return turns
}

// Adapter normalizes one vendor's chat API to the internal contract: one
// outbound call per turn, no retries, no fallback between vendors.
type Adapter interface {
	Name() string

	// Send forwards the message and prior history to the vendor and returns
	// the generated reply, trimmed. Failures are returned as *Error.
	Send(ctx context.Context, message string, history []model.ChatMessage) (string, error)
}

// ErrorKind classifies an upstream failure so callers never have to sniff
// vendor error text.
type ErrorKind int

const (
	// KindUpstream is any vendor-side failure without a more specific class.
	KindUpstream ErrorKind = iota
	// KindRateLimited means the vendor rejected the call for rate or quota reasons.
	KindRateLimited
	// KindTimeout means the outbound call timed out before a response arrived.
	KindTimeout
)

// Error is a classified upstream failure. Message holds the vendor's own
// error text and must never reach a client.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("provider error (status %d): %s", e.Status, e.Message)
	}
	return "provider error: " + e.Message
}

// New builds the single active adapter for the configured provider name.
func New(name, apiKey, modelID string) (Adapter, error) {
	switch name {
	case "openai":
		return NewOpenAI(apiKey, modelID), nil
	case "anthropic":
		return NewAnthropic(apiKey, modelID), nil
	case "gemini":
		return NewGemini(apiKey, modelID), nil
	case "huggingface":
		return NewHuggingFace(apiKey, modelID), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 60 * time.Second}
}

// postJSON issues one JSON POST and returns the status code and raw body.
// Transport-level timeouts are translated to a KindTimeout *Error.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body any) (int, []byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("marshaling request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return 0, nil, &Error{Kind: KindTimeout, Message: err.Error()}
		}
		return 0, nil, &Error{Kind: KindUpstream, Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &Error{Kind: KindUpstream, Message: err.Error()}
	}

	return resp.StatusCode, data, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// classify builds an *Error for a non-success vendor response.
func classify(status int, message, fallback string) *Error {
	if message == "" {
		message = fallback
	}
	kind := KindUpstream
	if status == http.StatusTooManyRequests || isQuotaMessage(message) {
		kind = KindRateLimited
	}
	return &Error{Kind: kind, Status: status, Message: message}
}

// isQuotaMessage reports whether vendor error text indicates rate or quota
// exhaustion. Some vendors deliver quota errors under non-429 statuses.
func isQuotaMessage(message string) bool {
	message = strings.ToLower(message)
	return strings.Contains(message, "rate limit") || strings.Contains(message, "quota")
}
