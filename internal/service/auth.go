package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nimbuschat/nimbus-go/internal/crypto"
	"github.com/nimbuschat/nimbus-go/internal/model"
	"github.com/nimbuschat/nimbus-go/internal/repository"
)

const (
	// MinPasswordLength is the minimum accepted password length.
	MinPasswordLength = 6

	resetCodeTTL = 15 * time.Minute
)

var (
	ErrNameRequired       = errors.New("name is required")
	ErrEmailRequired      = errors.New("email is required")
	ErrPasswordRequired   = errors.New("password is required")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters")
	ErrEmailTaken         = errors.New("an account with that email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidResetCode   = errors.New("invalid reset code")
	ErrExpiredResetCode   = errors.New("reset code has expired")
	ErrUserNotFound       = errors.New("user not found")
)

// UserStore is the credential store contract consumed by AuthService.
// Implementations must enforce email uniqueness and single-use reset codes
// under concurrent callers.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	UpdatePassword(ctx context.Context, id, newHash string) error
	SetResetChallenge(ctx context.Context, id, code string, expires time.Time) error
	ConsumeResetChallenge(ctx context.Context, id, code string) error
}

// AuthService handles signup, signin and the password reset flow.
type AuthService struct {
	store       UserStore
	jwtSecret   string
	tokenTTL    time.Duration
	rememberTTL time.Duration
}

// NewAuthService creates a new AuthService.
func NewAuthService(store UserStore, secret string, tokenTTL, rememberTTL time.Duration) *AuthService {
	return &AuthService{
		store:       store,
		jwtSecret:   secret,
		tokenTTL:    tokenTTL,
		rememberTTL: rememberTTL,
	}
}

// Signup creates a new user account and returns a session token.
func (s *AuthService) Signup(ctx context.Context, req model.SignupRequest) (model.AuthResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	if req.Name == "" {
		return model.AuthResponse{}, ErrNameRequired
	}
	if req.Email == "" {
		return model.AuthResponse{}, ErrEmailRequired
	}
	if req.Password == "" {
		return model.AuthResponse{}, ErrPasswordRequired
	}
	if len(req.Password) < MinPasswordLength {
		return model.AuthResponse{}, ErrPasswordTooShort
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		return model.AuthResponse{}, err
	}

	user := &model.User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.store.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return model.AuthResponse{}, ErrEmailTaken
		}
		return model.AuthResponse{}, err
	}

	token, err := crypto.GenerateToken(user.ID, user.Email, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return model.AuthResponse{}, err
	}

	return model.AuthResponse{Token: token, User: user.PublicView()}, nil
}

// Signin authenticates a user and returns a session token. RememberMe
// extends the token lifetime.
func (s *AuthService) Signin(ctx context.Context, req model.SigninRequest) (model.AuthResponse, error) {
	if req.Email == "" {
		return model.AuthResponse{}, ErrEmailRequired
	}
	if req.Password == "" {
		return model.AuthResponse{}, ErrPasswordRequired
	}

	user, err := s.store.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.AuthResponse{}, ErrInvalidCredentials
		}
		return model.AuthResponse{}, err
	}

	match, err := crypto.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		return model.AuthResponse{}, err
	}
	if !match {
		return model.AuthResponse{}, ErrInvalidCredentials
	}

	ttl := s.tokenTTL
	if req.RememberMe {
		ttl = s.rememberTTL
	}

	token, err := crypto.GenerateToken(user.ID, user.Email, s.jwtSecret, ttl)
	if err != nil {
		return model.AuthResponse{}, err
	}

	return model.AuthResponse{Token: token, User: user.PublicView()}, nil
}

// GetUser retrieves the public view of a user by ID.
func (s *AuthService) GetUser(ctx context.Context, userID string) (model.UserResponse, error) {
	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.UserResponse{}, ErrUserNotFound
		}
		return model.UserResponse{}, err
	}
	return user.PublicView(), nil
}

// ForgotPassword issues a reset challenge when the email belongs to an
// account. The returned code is empty for unknown emails; callers must keep
// the client-visible response identical in both cases so account existence
// cannot be probed.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	if strings.TrimSpace(email) == "" {
		return "", ErrEmailRequired
	}

	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", nil
		}
		return "", err
	}

	code, err := crypto.GenerateResetCode()
	if err != nil {
		return "", err
	}

	expires := time.Now().Add(resetCodeTTL)
	if err := s.store.SetResetChallenge(ctx, user.ID, code, expires); err != nil {
		return "", err
	}

	return code, nil
}

// ResetPassword consumes a reset challenge and installs a new password.
func (s *AuthService) ResetPassword(ctx context.Context, req model.ResetPasswordRequest) error {
	if req.Email == "" {
		return ErrEmailRequired
	}
	if req.Code == "" {
		return ErrInvalidResetCode
	}
	if len(req.NewPassword) < MinPasswordLength {
		return ErrPasswordTooShort
	}

	user, err := s.store.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrInvalidResetCode
		}
		return err
	}

	if err := s.store.ConsumeResetChallenge(ctx, user.ID, req.Code); err != nil {
		switch {
		case errors.Is(err, repository.ErrInvalidResetCode):
			return ErrInvalidResetCode
		case errors.Is(err, repository.ErrExpiredResetCode):
			return ErrExpiredResetCode
		default:
			return err
		}
	}

	hash, err := crypto.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}

	return s.store.UpdatePassword(ctx, user.ID, hash)
}
