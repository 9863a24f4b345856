// Package prefs is a small persistent key/value store for local session
// state: who is logged in, whether to log in automatically, first-run flags.
//
// The store is an explicit object. main opens it once and passes it to
// whatever needs it; there is no package-level instance.
//
// PERSISTENCE:
// Values live in memory and every write rewrites a YAML file next to the
// database. Writes never return an error: a failed save is logged and the
// in-memory value stays, the same contract as a fire-and-forget preference
// commit. Reads never touch the disk.
package prefs

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/traildiary/traildiary/internal/model"
)

// Keys written by the application.
const (
	KeyAutoLogin       = "auto_login"
	KeyUsername        = "username"
	KeyPassword        = "password"
	KeyUserID          = "user_id"
	KeyNickname        = "nickname"
	KeyTrailNumber     = "trail_number"
	KeyFirstRun        = "first_run"
	KeyAgreementAgreed = "agreement_agreed"
	KeyAvatar          = "avatar"
	KeyToken           = "token"
)

// NoUser is what CurrentUserID reports when nobody is logged in.
const NoUser int64 = -1

type Store struct {
	path   string
	logger *slog.Logger

	mu     sync.RWMutex
	values map[string]any
}

// Open loads the file at path. A missing file is an empty store; it is
// created on the first write.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		path:   path,
		logger: logger.With("component", "prefs"),
		values: make(map[string]any),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("prefs: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &s.values); err != nil {
		return nil, fmt.Errorf("prefs: parsing %s: %w", path, err)
	}
	if s.values == nil {
		s.values = make(map[string]any)
	}
	return s, nil
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

func (s *Store) get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// String returns def when key is absent or holds a non-string.
func (s *Store) String(key, def string) string {
	v, ok := s.get(key)
	if !ok {
		return def
	}
	str, ok := v.(string)
	if !ok {
		return def
	}
	return str
}

func (s *Store) Int(key string, def int) int {
	n, ok := s.int64Value(key)
	if !ok || n < math.MinInt32 || n > math.MaxInt32 {
		return def
	}
	return int(n)
}

func (s *Store) Int64(key string, def int64) int64 {
	n, ok := s.int64Value(key)
	if !ok {
		return def
	}
	return n
}

// int64Value accepts the integer shapes yaml.v3 decodes into.
func (s *Store) int64Value(key string) (int64, bool) {
	v, ok := s.get(key)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}

func (s *Store) Bool(key string, def bool) bool {
	v, ok := s.get(key)
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

func (s *Store) Float(key string, def float64) float64 {
	v, ok := s.get(key)
	if !ok {
		return def
	}
	switch f := v.(type) {
	case float64:
		return f
	case int:
		return float64(f)
	}
	return def
}

func (s *Store) PutString(key, value string) { s.put(key, value) }
func (s *Store) PutInt(key string, value int) { s.put(key, value) }
func (s *Store) PutInt64(key string, value int64) { s.put(key, value) }
func (s *Store) PutBool(key string, value bool) { s.put(key, value) }
func (s *Store) PutFloat(key string, value float64) { s.put(key, value) }

func (s *Store) Contains(key string) bool {
	_, ok := s.get(key)
	return ok
}

func (s *Store) Remove(keys ...string) {
	s.update(func(m map[string]any) {
		for _, k := range keys {
			delete(m, k)
		}
	})
}

// Clear drops every key, including auto_login.
func (s *Store) Clear() {
	s.update(func(m map[string]any) {
		for k := range m {
			delete(m, k)
		}
	})
}

func (s *Store) put(key string, value any) {
	s.update(func(m map[string]any) { m[key] = value })
}

// update applies fn and saves while still holding the lock, so two writers
// can't interleave their file rewrites.
func (s *Store) update(fn func(map[string]any)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.values)
	if err := s.save(); err != nil {
		s.logger.Error("saving preferences", "path", s.path, "error", err)
	}
}

// save writes to a temp file and renames it over the target, so a crash
// mid-write leaves the previous file intact.
func (s *Store) save() error {
	data, err := yaml.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("encoding: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".prefs-*.yaml")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	return os.Rename(tmp.Name(), s.path)
}

// =========================================================================
// SESSION HELPERS
// =========================================================================

func (s *Store) CurrentUserID() int64 {
	return s.Int64(KeyUserID, NoUser)
}

func (s *Store) CurrentNickname() string {
	return s.String(KeyNickname, "")
}

func (s *Store) CurrentTrailNumber() string {
	return s.String(KeyTrailNumber, "")
}

func (s *Store) IsLoggedIn() bool {
	return s.CurrentUserID() != NoUser
}

// SetSession records user as the logged-in account, with the token issued
// for it. It is one write, so a reader never sees half a session.
func (s *Store) SetSession(user *model.User, token string) {
	s.update(func(m map[string]any) {
		m[KeyUserID] = user.ID
		m[KeyNickname] = user.Nickname
		m[KeyTrailNumber] = user.TrailNumber
		m[KeyUsername] = user.TrailNumber
		if token != "" {
			m[KeyToken] = token
		}
	})
}

// Logout forgets the account but keeps auto_login and the first-run flags.
func (s *Store) Logout() {
	s.Remove(KeyUserID, KeyNickname, KeyTrailNumber, KeyPassword, KeyToken)
}
