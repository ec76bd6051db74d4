package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nimbuschat/nimbus-go/internal/model"
)

func TestHuggingFaceBuildPrompt(t *testing.T) {
	adapter := NewHuggingFace("hf-test", "some/model")

	history := []model.ChatMessage{
		{Role: "user", Content: "one"},
		{Role: "assistant", Content: "two"},
	}
	prompt := adapter.buildPrompt("three", history)

	if !strings.HasPrefix(prompt, systemPrompt) {
		t.Error("prompt does not open with the persona instruction")
	}
	if !strings.Contains(prompt, "User: one\n") {
		t.Error("prompt missing role-prefixed user turn")
	}
	if !strings.Contains(prompt, "Assistant: two\n") {
		t.Error("prompt missing role-prefixed assistant turn")
	}
	if !strings.HasSuffix(prompt, "User: three\nAssistant:") {
		t.Errorf("prompt = %q, want trailing open assistant turn", prompt)
	}
}

func TestHuggingFaceSend(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody huggingFaceRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)

		json.NewEncoder(w).Encode([]map[string]string{{"generated_text": "  hf reply  "}})
	}))
	defer srv.Close()

	adapter := NewHuggingFace("hf-test", "mistralai/Mixtral-8x7B-Instruct-v0.1")
	adapter.baseURL = srv.URL

	reply, err := adapter.Send(context.Background(), "hi", nil)
	if err != nil {
		t.Fatalf("Send() unexpected error: %v", err)
	}

	if reply != "hf reply" {
		t.Errorf("Send() = %q, want trimmed reply", reply)
	}
	if gotAuth != "Bearer hf-test" {
		t.Errorf("Authorization = %q, want bearer header", gotAuth)
	}
	if gotPath != "/models/mistralai/Mixtral-8x7B-Instruct-v0.1" {
		t.Errorf("path = %q, want model inference path", gotPath)
	}
	if gotBody.Parameters.ReturnFullText {
		t.Error("return_full_text = true, want false")
	}
	if gotBody.Parameters.MaxNewTokens != 500 {
		t.Errorf("max_new_tokens = %d, want 500", gotBody.Parameters.MaxNewTokens)
	}
}

func TestHuggingFaceSendErrorString(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error": "model is loading"}`))
	}))
	defer srv.Close()

	adapter := NewHuggingFace("hf-test", "some/model")
	adapter.baseURL = srv.URL

	_, err := adapter.Send(context.Background(), "hi", nil)

	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("Send() error = %v, want *Error", err)
	}
	if perr.Message != "model is loading" {
		t.Errorf("Message = %q, want vendor error text", perr.Message)
	}
}

func TestHuggingFaceSendEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	adapter := NewHuggingFace("hf-test", "some/model")
	adapter.baseURL = srv.URL

	if _, err := adapter.Send(context.Background(), "hi", nil); err == nil {
		t.Error("Send() expected error for empty generation list")
	}
}

func TestNewSelectsAdapter(t *testing.T) {
	tests := []struct {
		provider string
		want     string
	}{
		{"openai", "openai"},
		{"anthropic", "anthropic"},
		{"gemini", "gemini"},
		{"huggingface", "huggingface"},
	}

	for _, tt := range tests {
		adapter, err := New(tt.provider, "key", "model")
		if err != nil {
			t.Fatalf("New(%q) unexpected error: %v", tt.provider, err)
		}
		if adapter.Name() != tt.want {
			t.Errorf("New(%q).Name() = %q, want %q", tt.provider, adapter.Name(), tt.want)
		}
	}

	if _, err := New("mystery", "key", "model"); !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("New(mystery) error = %v, want ErrUnknownProvider", err)
	}
}
