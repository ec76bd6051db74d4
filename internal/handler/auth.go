package handler

import (
	"errors"
	"net/http"

	"github.com/nimbuschat/nimbus-go/internal/middleware"
	"github.com/nimbuschat/nimbus-go/internal/model"
	"github.com/nimbuschat/nimbus-go/internal/service"
)

// forgotMessage is returned for every forgot-password request, known email
// or not, so responses cannot be used to enumerate accounts.
const forgotMessage = "If an account with that email exists, a reset code has been issued."

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	service *service.AuthService

	// devMode echoes reset codes in responses outside production.
	devMode bool
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *service.AuthService, devMode bool) *AuthHandler {
	return &AuthHandler{service: svc, devMode: devMode}
}

// HandleSignup handles POST /api/auth/signup requests.
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req model.SignupRequest
	if !decodeBody(w, r, &req, 1<<20) {
		return
	}

	resp, err := h.service.Signup(r.Context(), req)
	if err != nil {
		if isSignupValidationError(err) {
			writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse("internal server error"))
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

func isSignupValidationError(err error) bool {
	return errors.Is(err, service.ErrNameRequired) ||
		errors.Is(err, service.ErrEmailRequired) ||
		errors.Is(err, service.ErrPasswordRequired) ||
		errors.Is(err, service.ErrPasswordTooShort) ||
		errors.Is(err, service.ErrEmailTaken)
}

// HandleSignin handles POST /api/auth/signin requests.
func (h *AuthHandler) HandleSignin(w http.ResponseWriter, r *http.Request) {
	var req model.SigninRequest
	if !decodeBody(w, r, &req, 1<<20) {
		return
	}

	resp, err := h.service.Signin(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailRequired), errors.Is(err, service.ErrPasswordRequired):
			writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
		case errors.Is(err, service.ErrInvalidCredentials):
			writeJSON(w, http.StatusUnauthorized, errorResponse(err.Error()))
		default:
			writeJSON(w, http.StatusInternalServerError, errorResponse("internal server error"))
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleVerify handles GET /api/auth/verify requests.
func (h *AuthHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	user, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse(err.Error()))
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse("internal server error"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]model.UserResponse{"user": user})
}

// HandleForgotPassword handles POST /api/auth/forgot-password requests.
func (h *AuthHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req model.ForgotPasswordRequest
	if !decodeBody(w, r, &req, 1<<20) {
		return
	}

	code, err := h.service.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, service.ErrEmailRequired) {
			writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse("internal server error"))
		return
	}

	resp := map[string]string{"message": forgotMessage}
	if h.devMode && code != "" {
		resp["devCode"] = code
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleResetPassword handles POST /api/auth/reset-password requests.
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req model.ResetPasswordRequest
	if !decodeBody(w, r, &req, 1<<20) {
		return
	}

	if err := h.service.ResetPassword(r.Context(), req); err != nil {
		if isResetValidationError(err) {
			writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse("internal server error"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Password has been reset. You can now sign in."})
}

func isResetValidationError(err error) bool {
	return errors.Is(err, service.ErrEmailRequired) ||
		errors.Is(err, service.ErrPasswordTooShort) ||
		errors.Is(err, service.ErrInvalidResetCode) ||
		errors.Is(err, service.ErrExpiredResetCode)
}
