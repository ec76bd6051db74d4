package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nimbuschat/nimbus-go/internal/model"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrDuplicateEmail   = errors.New("email already exists")
	ErrInvalidResetCode = errors.New("invalid reset code")
	ErrExpiredResetCode = errors.New("reset code has expired")
)

// FileUserStore keeps all user records in memory and rewrites a single JSON
// file in full on every mutation. The mutex is held across the complete
// read-check-write sequence, so concurrent mutations cannot lose updates or
// both claim the same email.
type FileUserStore struct {
	path string

	mu    sync.Mutex
	users map[string]*model.User // keyed by user ID
}

// NewFileUserStore loads the store file at path, creating the parent
// directory if needed. A missing file starts an empty store.
func NewFileUserStore(path string) (*FileUserStore, error) {
	s := &FileUserStore{
		path:  path,
		users: make(map[string]*model.User),
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading user store: %w", err)
	}

	var records []*model.User
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing user store: %w", err)
	}
	for _, u := range records {
		s.users[u.ID] = u
	}

	return s, nil
}

// flush rewrites the whole store file. Callers must hold s.mu.
// Writes to a temp file then renames, so a crash mid-write never leaves a
// truncated store.
func (s *FileUserStore) flush() error {
	records := make([]*model.User, 0, len(s.users))
	for _, u := range s.users {
		records = append(records, u)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding user store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing user store: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// findByEmail returns the user with the given email. Callers must hold s.mu.
func (s *FileUserStore) findByEmail(email string) *model.User {
	email = strings.ToLower(email)
	for _, u := range s.users {
		if strings.ToLower(u.Email) == email {
			return u
		}
	}
	return nil
}

// Create inserts a new user, enforcing email uniqueness.
func (s *FileUserStore) Create(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findByEmail(user.Email) != nil {
		return ErrDuplicateEmail
	}

	clone := *user
	s.users[clone.ID] = &clone
	if err := s.flush(); err != nil {
		// Failed signups must not leave the email claimed in memory.
		delete(s.users, clone.ID)
		return err
	}
	return nil
}

// FindByEmail retrieves a user by email, case-insensitively.
func (s *FileUserStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.findByEmail(email)
	if u == nil {
		return nil, ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

// FindByID retrieves a user by ID.
func (s *FileUserStore) FindByID(ctx context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

// UpdatePassword replaces the stored password hash for a user.
func (s *FileUserStore) UpdatePassword(ctx context.Context, id, newHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}

	u.PasswordHash = newHash
	return s.flush()
}

// SetResetChallenge attaches a one-time reset code to a user, replacing any
// previous challenge.
func (s *FileUserStore) SetResetChallenge(ctx context.Context, id, code string, expires time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}

	u.ResetCode = code
	u.ResetExpires = &expires
	return s.flush()
}

// ConsumeResetChallenge validates and clears a user's reset challenge.
// A matching code is cleared whether or not it has expired, so a code can
// never be used twice.
func (s *FileUserStore) ConsumeResetChallenge(ctx context.Context, id, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}

	if u.ResetCode == "" || code == "" || u.ResetCode != code {
		return ErrInvalidResetCode
	}

	expired := u.ResetExpires == nil || time.Now().After(*u.ResetExpires)

	u.ResetCode = ""
	u.ResetExpires = nil
	if err := s.flush(); err != nil {
		return err
	}

	if expired {
		return ErrExpiredResetCode
	}
	return nil
}
