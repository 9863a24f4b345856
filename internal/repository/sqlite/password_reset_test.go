package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traildiary/traildiary/internal/apperror"
	"github.com/traildiary/traildiary/internal/model"
)

func TestPasswordResetLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local)

	_, err := db.PasswordResets().Get(ctx, "13800138000")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	require.NoError(t, db.PasswordResets().Save(ctx, &model.PasswordReset{
		Phone: "13800138000", CodeHash: "first", ExpiresAt: now.Add(10 * time.Minute), CreatedAt: now,
	}))

	n, err := db.PasswordResets().IncrementAttempts(ctx, "13800138000")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = db.PasswordResets().IncrementAttempts(ctx, "13800138000")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// A new code replaces the old one and starts over.
	require.NoError(t, db.PasswordResets().Save(ctx, &model.PasswordReset{
		Phone: "13800138000", CodeHash: "second", ExpiresAt: now.Add(20 * time.Minute), CreatedAt: now,
	}))
	got, err := db.PasswordResets().Get(ctx, "13800138000")
	require.NoError(t, err)
	assert.Equal(t, "second", got.CodeHash)
	assert.Zero(t, got.Attempts)
	assert.True(t, got.ExpiresAt.Equal(now.Add(20*time.Minute)))
	assert.False(t, got.Expired(now))
	assert.True(t, got.Expired(now.Add(20*time.Minute)))

	deleted, err := db.PasswordResets().Delete(ctx, "13800138000")
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	deleted, err = db.PasswordResets().Delete(ctx, "13800138000")
	require.NoError(t, err)
	assert.Zero(t, deleted, "a code is consumed once")

	_, err = db.PasswordResets().IncrementAttempts(ctx, "13800138000")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
