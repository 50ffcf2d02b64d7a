package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/brizzai/tigoplanes/internal/auth/models"
	"github.com/brizzai/tigoplanes/internal/config"
	"golang.org/x/oauth2"
	"gopkg.in/yaml.v3"
)

// SessionStore persists the active session between process runs.
type SessionStore interface {
	// Load returns the stored session or nil when there is none.
	Load(ctx context.Context) (*models.Session, error)
	Save(ctx context.Context, sess *models.Session) error
	Clear(ctx context.Context) error
}

// NewSessionStore returns a file store when a path is configured and a
// memory store otherwise.
func NewSessionStore(cfg *config.SessionConfig) SessionStore {
	if cfg == nil || cfg.File == "" {
		return NewMemoryStore()
	}
	return NewFileStore(cfg.File)
}

// MemoryStore keeps the session for the lifetime of the process.
type MemoryStore struct {
	mu   sync.Mutex
	sess *models.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(context.Context) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess, nil
}

func (m *MemoryStore) Save(_ context.Context, sess *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = sess
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = nil
	return nil
}

type sessionFile struct {
	AccessToken  string    `yaml:"access_token"`
	RefreshToken string    `yaml:"refresh_token"`
	TokenType    string    `yaml:"token_type,omitempty"`
	Expiry       time.Time `yaml:"expiry,omitempty"`
	UserID       string    `yaml:"user_id,omitempty"`
	Email        string    `yaml:"email,omitempty"`
}

// FileStore keeps the session in a YAML file readable only by its owner.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Load(context.Context) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var stored sessionFile
	if err := yaml.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to parse session file %s: %w", f.path, err)
	}
	if stored.AccessToken == "" || stored.RefreshToken == "" {
		return nil, nil
	}

	sess := &models.Session{
		Token: &oauth2.Token{
			AccessToken:  stored.AccessToken,
			RefreshToken: stored.RefreshToken,
			TokenType:    stored.TokenType,
			Expiry:       stored.Expiry,
		},
	}
	if stored.UserID != "" {
		sess.Principal = &models.Principal{ID: stored.UserID, Email: stored.Email}
	}
	return sess, nil
}

func (f *FileStore) Save(_ context.Context, sess *models.Session) error {
	if sess == nil || sess.Token == nil {
		return f.Clear(context.Background())
	}
	stored := sessionFile{
		AccessToken:  sess.Token.AccessToken,
		RefreshToken: sess.Token.RefreshToken,
		TokenType:    sess.Token.TokenType,
		Expiry:       sess.Token.Expiry,
	}
	if sess.Principal != nil {
		stored.UserID = sess.Principal.ID
		stored.Email = sess.Principal.Email
	}
	data, err := yaml.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if dir := filepath.Dir(f.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create session directory %s: %w", dir, err)
		}
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

func (f *FileStore) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
