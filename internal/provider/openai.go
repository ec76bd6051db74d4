package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/nimbuschat/nimbus-go/internal/model"
)

const defaultOpenAIBaseURL = "https://api.openai.com"

// OpenAI calls the OpenAI chat completions API. Auth is a bearer header; the
// persona instruction travels as a leading system message in the turn list.
type OpenAI struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewOpenAI creates an OpenAI adapter.
func NewOpenAI(apiKey, modelID string) *OpenAI {
	return &OpenAI{
		apiKey:  apiKey,
		model:   modelID,
		baseURL: defaultOpenAIBaseURL,
		client:  newHTTPClient(),
	}
}

func (o *OpenAI) Name() string { return "openai" }

type openAIRequest struct {
	Model       string     `json:"model"`
	Messages    []chatTurn `json:"messages"`
	Temperature float64    `json:"temperature"`
	MaxTokens   int        `json:"max_tokens"`
}

type openAIResponse struct {
	Choices []struct {
		Message chatTurn `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Send implements Adapter.
func (o *OpenAI) Send(ctx context.Context, message string, history []model.ChatMessage) (string, error) {
	messages := append([]chatTurn{{Role: "system", Content: systemPrompt}}, toTurns(history)...)
	messages = append(messages, chatTurn{Role: "user", Content: message})

	body := openAIRequest{
		Model:       o.model,
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   1000,
	}
	headers := map[string]string{"Authorization": "Bearer " + o.apiKey}

	status, data, err := postJSON(ctx, o.client, o.baseURL+"/v1/chat/completions", headers, body)
	if err != nil {
		return "", err
	}

	var parsed openAIResponse
	// Tolerate unparseable bodies: classification falls back to a generic message.
	_ = json.Unmarshal(data, &parsed)

	if status < 200 || status >= 300 {
		msg := ""
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return "", classify(status, msg, "OpenAI API error")
	}

	if len(parsed.Choices) == 0 {
		return "", &Error{Kind: KindUpstream, Status: status, Message: "OpenAI response contained no choices"}
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
