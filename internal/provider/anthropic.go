package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/nimbuschat/nimbus-go/internal/model"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion        = "2023-06-01"
)

// Anthropic calls the Anthropic messages API. Auth is the vendor-specific
// x-api-key header, and the persona instruction goes in a top-level system
// field rather than the turn list.
type Anthropic struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewAnthropic creates an Anthropic adapter.
func NewAnthropic(apiKey, modelID string) *Anthropic {
	return &Anthropic{
		apiKey:  apiKey,
		model:   modelID,
		baseURL: defaultAnthropicBaseURL,
		client:  newHTTPClient(),
	}
}

func (a *Anthropic) Name() string { return "anthropic" }

type anthropicRequest struct {
	Model     string     `json:"model"`
	MaxTokens int        `json:"max_tokens"`
	System    string     `json:"system"`
	Messages  []chatTurn `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Send implements Adapter.
func (a *Anthropic) Send(ctx context.Context, message string, history []model.ChatMessage) (string, error) {
	messages := append(toTurns(history), chatTurn{Role: "user", Content: message})

	body := anthropicRequest{
		Model:     a.model,
		MaxTokens: 1000,
		System:    systemPrompt,
		Messages:  messages,
	}
	headers := map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": anthropicVersion,
	}

	status, data, err := postJSON(ctx, a.client, a.baseURL+"/v1/messages", headers, body)
	if err != nil {
		return "", err
	}

	var parsed anthropicResponse
	_ = json.Unmarshal(data, &parsed)

	if status < 200 || status >= 300 {
		msg := ""
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return "", classify(status, msg, "Claude API error")
	}

	if len(parsed.Content) == 0 {
		return "", &Error{Kind: KindUpstream, Status: status, Message: "Claude response contained no content"}
	}
	return strings.TrimSpace(parsed.Content[0].Text), nil
}
