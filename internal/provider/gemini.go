package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/nimbuschat/nimbus-go/internal/model"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// Gemini calls the Google Gemini generateContent API. The API key travels as
// a URL query parameter; roles are renamed (assistant becomes model) and
// content is wrapped in parts.
type Gemini struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewGemini creates a Gemini adapter.
func NewGemini(apiKey, modelID string) *Gemini {
	return &Gemini{
		apiKey:  apiKey,
		model:   modelID,
		baseURL: defaultGeminiBaseURL,
		client:  newHTTPClient(),
	}
}

func (g *Gemini) Name() string { return "gemini" }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  geminiGenConfig `json:"generationConfig"`
	SystemInstruction geminiContent   `json:"systemInstruction"`
}

type geminiGenConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
	TopP            float64 `json:"topP"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Send implements Adapter.
func (g *Gemini) Send(ctx context.Context, message string, history []model.ChatMessage) (string, error) {
	contents := make([]geminiContent, 0, len(history)+1)
	for _, msg := range history {
		role := "user"
		if msg.Role == "assistant" {
			role = "model"
		}
		contents = append(contents, geminiContent{Role: role, Parts: []geminiPart{{Text: msg.Content}}})
	}
	contents = append(contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: message}}})

	body := geminiRequest{
		Contents: contents,
		GenerationConfig: geminiGenConfig{
			Temperature:     0.7,
			MaxOutputTokens: 1000,
			TopP:            0.95,
		},
		SystemInstruction: geminiContent{Parts: []geminiPart{{Text: systemPrompt}}},
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", g.baseURL, g.model, url.QueryEscape(g.apiKey))

	status, data, err := postJSON(ctx, g.client, endpoint, nil, body)
	if err != nil {
		return "", err
	}

	var parsed geminiResponse
	_ = json.Unmarshal(data, &parsed)

	if status < 200 || status >= 300 {
		msg := ""
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return "", classify(status, msg, "Gemini API error")
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", &Error{Kind: KindUpstream, Status: status, Message: "Gemini response contained no candidates"}
	}
	return strings.TrimSpace(parsed.Candidates[0].Content.Parts[0].Text), nil
}
