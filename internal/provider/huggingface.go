package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/nimbuschat/nimbus-go/internal/model"
)

const defaultHuggingFaceBaseURL = "https://api-inference.huggingface.co"

// HuggingFace calls the Hugging Face inference API. Unlike the structured
// vendors, the whole conversation is flattened into one role-prefixed prompt
// string ending with an open Assistant turn.
type HuggingFace struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewHuggingFace creates a Hugging Face adapter.
func NewHuggingFace(apiKey, modelID string) *HuggingFace {
	return &HuggingFace{
		apiKey:  apiKey,
		model:   modelID,
		baseURL: defaultHuggingFaceBaseURL,
		client:  newHTTPClient(),
	}
}

func (h *HuggingFace) Name() string { return "huggingface" }

type huggingFaceRequest struct {
	Inputs     string                `json:"inputs"`
	Parameters huggingFaceParameters `json:"parameters"`
}

type huggingFaceParameters struct {
	MaxNewTokens   int     `json:"max_new_tokens"`
	Temperature    float64 `json:"temperature"`
	TopP           float64 `json:"top_p"`
	ReturnFullText bool    `json:"return_full_text"`
}

type huggingFaceError struct {
	Error string `json:"error"`
}

type huggingFaceGeneration struct {
	GeneratedText string `json:"generated_text"`
}

// buildPrompt flattens the conversation into role-prefixed turns.
func (h *HuggingFace) buildPrompt(message string, history []model.ChatMessage) string {
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\n")

	for _, msg := range history {
		if msg.Role == "user" {
			b.WriteString("User: ")
		} else {
			b.WriteString("Assistant: ")
		}
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}

	b.WriteString("User: ")
	b.WriteString(message)
	b.WriteString("\nAssistant:")
	return b.String()
}

// Send implements Adapter.
func (h *HuggingFace) Send(ctx context.Context, message string, history []model.ChatMessage) (string, error) {
	body := huggingFaceRequest{
		Inputs: h.buildPrompt(message, history),
		Parameters: huggingFaceParameters{
			MaxNewTokens:   500,
			Temperature:    0.7,
			TopP:           0.95,
			ReturnFullText: false,
		},
	}
	headers := map[string]string{"Authorization": "Bearer " + h.apiKey}

	status, data, err := postJSON(ctx, h.client, h.baseURL+"/models/"+h.model, headers, body)
	if err != nil {
		return "", err
	}

	if status < 200 || status >= 300 {
		var parsed huggingFaceError
		_ = json.Unmarshal(data, &parsed)
		return "", classify(status, parsed.Error, "Hugging Face API error")
	}

	var generations []huggingFaceGeneration
	if err := json.Unmarshal(data, &generations); err != nil || len(generations) == 0 {
		return "", &Error{Kind: KindUpstream, Status: status, Message: "Hugging Face response contained no generations"}
	}
	return strings.TrimSpace(generations[0].GeneratedText), nil
}
