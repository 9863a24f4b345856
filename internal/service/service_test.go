package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/traildiary/traildiary/internal/auth"
	"github.com/traildiary/traildiary/internal/repository/sqlite"
)

// The services run against a real migrated database in a temp dir; the
// rules they enforce lean on the store's constraints, so mocks would test
// less.
type fixture struct {
	db      *sqlite.DB
	account *AccountService
	journal *JournalService
	tokens  *auth.TokenService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("service-test-secret-0123456789", time.Hour)
	require.NoError(t, err)

	return &fixture{
		db:      db,
		tokens:  tokens,
		account: NewAccountService(db.Users(), db.Notebooks(), db.PasswordResets(), auth.NewPasswordServiceForTest(4), tokens, logger),
		journal: NewJournalService(db.Notebooks(), db.Diaries(), db.Favorites(), db.SearchHistory(), logger),
	}
}

func (f *fixture) register(t *testing.T, nickname, trail string) int64 {
	t.Helper()
	u, err := f.account.Register(context.Background(), RegisterInput{
		Nickname:    nickname,
		TrailNumber: trail,
		Password:    "secret123",
		Phone:       "13800138000",
	})
	require.NoError(t, err)
	return u.ID
}

func ptr[T any](v T) *T { return &v }
