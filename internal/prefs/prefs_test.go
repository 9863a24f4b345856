package prefs

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traildiary/traildiary/internal/model"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	s, err := Open(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return s, path
}

func TestOpenMissingFileIsEmpty(t *testing.T) {
	s, path := newTestStore(t)

	assert.False(t, s.Contains(KeyUserID))
	assert.Equal(t, NoUser, s.CurrentUserID())
	assert.False(t, s.IsLoggedIn())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "nothing is written until the first put")
}

func TestTypedValuesSurviveReopen(t *testing.T) {
	s, path := newTestStore(t)
	s.PutString(KeyAvatar, "/sdcard/me.png")
	s.PutInt("launch_count", 3)
	s.PutInt64(KeyUserID, 1<<40)
	s.PutBool(KeyAutoLogin, true)
	s.PutFloat("font_scale", 1.25)

	reopened, err := Open(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "/sdcard/me.png", reopened.String(KeyAvatar, ""))
	assert.Equal(t, 3, reopened.Int("launch_count", 0))
	assert.Equal(t, int64(1<<40), reopened.Int64(KeyUserID, NoUser))
	assert.True(t, reopened.Bool(KeyAutoLogin, false))
	assert.InDelta(t, 1.25, reopened.Float("font_scale", 0), 1e-9)
}

func TestDefaultsOnMissingOrMistypedKey(t *testing.T) {
	s, _ := newTestStore(t)
	s.PutString("word", "hello")

	assert.Equal(t, "fallback", s.String("absent", "fallback"))
	assert.Equal(t, 7, s.Int("word", 7))
	assert.Equal(t, int64(-1), s.Int64("word", -1))
	assert.True(t, s.Bool("word", true))
	assert.Equal(t, 0.5, s.Float("word", 0.5))
}

func TestRemoveAndClear(t *testing.T) {
	s, path := newTestStore(t)
	s.PutString("a", "1")
	s.PutString("b", "2")

	s.Remove("a")
	assert.False(t, s.Contains("a"))
	assert.True(t, s.Contains("b"))

	s.Clear()
	assert.False(t, s.Contains("b"))

	reopened, err := Open(path, nil)
	require.NoError(t, err)
	assert.False(t, reopened.Contains("b"))
}

func TestSessionLifecycle(t *testing.T) {
	s, path := newTestStore(t)
	s.PutBool(KeyAutoLogin, true)
	s.PutString(KeyPassword, "remembered")

	s.SetSession(&model.User{ID: 7, Nickname: "Alex", TrailNumber: "ABC123X"}, "tok")
	assert.True(t, s.IsLoggedIn())
	assert.Equal(t, int64(7), s.CurrentUserID())
	assert.Equal(t, "Alex", s.CurrentNickname())
	assert.Equal(t, "ABC123X", s.CurrentTrailNumber())
	assert.Equal(t, "tok", s.String(KeyToken, ""))

	reopened, err := Open(path, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(7), reopened.CurrentUserID())

	s.Logout()
	assert.False(t, s.IsLoggedIn())
	assert.Equal(t, "", s.CurrentNickname())
	assert.False(t, s.Contains(KeyPassword))
	assert.False(t, s.Contains(KeyToken))
	assert.True(t, s.Bool(KeyAutoLogin, false), "logout keeps auto_login")
}

func TestWriteFailureIsNotFatal(t *testing.T) {
	s, path := newTestStore(t)
	// A regular file where the parent directory should be makes every save fail.
	blocker := filepath.Join(filepath.Dir(path), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
	s.path = filepath.Join(blocker, "prefs.yaml")

	s.PutString(KeyNickname, "Alex")
	assert.Equal(t, "Alex", s.String(KeyNickname, ""), "the in-memory value stands")
}

func TestOpenRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- just\n- a list\n"), 0o600))

	_, err := Open(path, nil)
	assert.Error(t, err)
}
