package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"cafe_admin/internal/cafe"
	"cafe_admin/internal/config"

	"go.uber.org/zap"
)

var (
	ErrNotAuthenticated = errors.New("not logged in")
	ErrSessionExpired   = errors.New("session expired")
)

// Session is the logged-in user as the backend returned it at login.
type Session struct {
	User        json.RawMessage
	UserIsAdmin bool
	AccessToken string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// record is the on-disk form: the login body verbatim under a single key.
type record struct {
	User      json.RawMessage `json:"user"`
	CreatedAt time.Time       `json:"created_at"`
}

// Store holds the current session in memory and mirrors it to a file. It is
// safe for concurrent use; the HTTP client reads the token from request hooks.
type Store struct {
	mu      sync.RWMutex
	path    string
	ttl     time.Duration
	now     func() time.Time
	current *Session
	expired bool
	logger  *zap.Logger
}

func NewStore(cfg config.Config, logger *zap.Logger) *Store {
	return &Store{
		path:   cfg.SessionFile,
		ttl:    cfg.SessionTTL,
		now:    time.Now,
		logger: logger.Named("session"),
	}
}

// Load reads the persisted session. A missing file is not an error; an
// unreadable or expired one is removed.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = nil
	if s.path == "" {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read session: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.Warn("discarding unreadable session file", zap.String("path", s.path), zap.Error(err))
		return s.removeLocked()
	}
	sess, err := s.fromRecord(rec)
	if err != nil {
		s.logger.Warn("discarding invalid session file", zap.String("path", s.path), zap.Error(err))
		return s.removeLocked()
	}
	if s.isExpired(sess) {
		s.logger.Info("persisted session expired", zap.Time("expires_at", sess.ExpiresAt))
		s.expired = true
		return s.removeLocked()
	}

	s.current = &sess
	return nil
}

// Save stores a fresh login in memory and on disk.
func (s *Store) Save(resp cafe.LoginResponse) (Session, error) {
	rec := record{User: resp.Raw, CreatedAt: s.now()}
	if len(rec.User) == 0 {
		raw, err := json.Marshal(resp)
		if err != nil {
			return Session{}, fmt.Errorf("encode session: %w", err)
		}
		rec.User = raw
	}

	sess, err := s.fromRecord(rec)
	if err != nil {
		return Session{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeLocked(rec); err != nil {
		return Session{}, err
	}
	s.current = &sess
	s.expired = false
	return sess, nil
}

// Current returns the live session, ErrSessionExpired once its lifetime has
// passed, or ErrNotAuthenticated.
func (s *Store) Current() (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		if s.expired {
			return Session{}, ErrSessionExpired
		}
		return Session{}, ErrNotAuthenticated
	}
	if s.isExpired(*s.current) {
		s.logger.Info("session expired", zap.Time("expires_at", s.current.ExpiresAt))
		s.current = nil
		s.expired = true
		if err := s.removeLocked(); err != nil {
			s.logger.Warn("remove expired session", zap.Error(err))
		}
		return Session{}, ErrSessionExpired
	}
	return *s.current, nil
}

func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = nil
	s.expired = false
	return s.removeLocked()
}

func (s *Store) AccessToken() string {
	sess, err := s.Current()
	if err != nil {
		return ""
	}
	return sess.AccessToken
}

// Invalidate drops the session after the backend rejected its token.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return
	}
	s.current = nil
	s.expired = true
	if err := s.removeLocked(); err != nil {
		s.logger.Warn("remove rejected session", zap.Error(err))
	}
}

func (s *Store) fromRecord(rec record) (Session, error) {
	var body cafe.LoginResponse
	if err := json.Unmarshal(rec.User, &body); err != nil {
		return Session{}, fmt.Errorf("decode session user: %w", err)
	}
	if strings.TrimSpace(body.Token.Access) == "" {
		return Session{}, errors.New("session has no access token")
	}

	sess := Session{
		User:        rec.User,
		UserIsAdmin: body.UserIsAdmin,
		AccessToken: body.Token.Access,
		CreatedAt:   rec.CreatedAt,
	}
	if s.ttl > 0 {
		sess.ExpiresAt = rec.CreatedAt.Add(s.ttl)
	}
	return sess, nil
}

func (s *Store) isExpired(sess Session) bool {
	return !sess.ExpiresAt.IsZero() && !s.now().Before(sess.ExpiresAt)
}

func (s *Store) writeLocked(rec record) error {
	if s.path == "" {
		return nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

func (s *Store) removeLocked() error {
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
