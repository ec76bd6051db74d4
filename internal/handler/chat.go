package handler

import (
	"errors"
	"net/http"

	"github.com/nimbuschat/nimbus-go/internal/model"
	"github.com/nimbuschat/nimbus-go/internal/service"
)

// ChatHandler handles HTTP requests for chat turns.
type ChatHandler struct {
	service *service.ChatService
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(svc *service.ChatService) *ChatHandler {
	return &ChatHandler{service: svc}
}

// HandleChat handles POST /api/chat requests.
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req model.ChatRequest
	if !decodeBody(w, r, &req, 1<<20) {
		return
	}

	reply, err := h.service.Send(r.Context(), req.Message, req.History)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidMessage), errors.Is(err, service.ErrMessageTooLong):
			writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
		default:
			// Misconfiguration and every upstream failure class surface as a
			// 500 with their fixed public message.
			writeJSON(w, http.StatusInternalServerError, errorResponse(err.Error()))
		}
		return
	}

	writeJSON(w, http.StatusOK, model.ChatResponse{
		Response: reply,
		Provider: h.service.Provider(),
	})
}
