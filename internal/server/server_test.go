package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traildiary/traildiary/internal/config"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := config.Default()
	cfg.DBPath = filepath.Join(t.TempDir(), "server.db")
	cfg.JWTSecret = "server-test-secret-0123456789"
	cfg.TokenTTL = time.Hour
	cfg.BcryptCost = 4

	s, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Close()
	})
	return ts
}

// client sends JSON with the caller's bearer token and decodes JSON back.
type client struct {
	t     *testing.T
	base  string
	token string
}

func (c *client) do(method, path string, body, out any) int {
	c.t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.base+path, r)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (c *client) signup(nickname, trail string) {
	c.t.Helper()
	status := c.do(http.MethodPost, "/api/register", map[string]string{
		"nickname": nickname, "trailNumber": trail, "password": "secret123",
	}, nil)
	require.Equal(c.t, http.StatusCreated, status)

	var res struct {
		Token string `json:"token"`
	}
	status = c.do(http.MethodPost, "/api/login", map[string]string{
		"identifier": trail, "password": "secret123",
	}, &res)
	require.Equal(c.t, http.StatusOK, status)
	require.NotEmpty(c.t, res.Token)
	c.token = res.Token
}

type notebookJSON struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	DiaryCount int    `json:"diaryCount"`
}

type diaryJSON struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	AuthorName   string `json:"authorName"`
	CategoryName string `json:"categoryName"`
	Favorite     *bool  `json:"favorite"`
}

func TestDiaryInNotebookScenario(t *testing.T) {
	ts := newTestServer(t)
	alex := &client{t: t, base: ts.URL}
	alex.signup("Alex", "ABC123X")

	var trip notebookJSON
	require.Equal(t, http.StatusCreated, alex.do(http.MethodPost, "/api/notebooks", map[string]string{"name": "Trip"}, &trip))

	var day1 diaryJSON
	status := alex.do(http.MethodPost, "/api/diaries", map[string]any{
		"title":      "Day 1",
		"content":    "We walked along the river.",
		"category":   "国内游",
		"notebookId": trip.ID,
	}, &day1)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "Alex", day1.AuthorName)
	assert.Equal(t, "国内游", day1.CategoryName)

	var got notebookJSON
	require.Equal(t, http.StatusOK, alex.do(http.MethodGet, fmt.Sprintf("/api/notebooks/%d", trip.ID), nil, &got))
	assert.Equal(t, 1, got.DiaryCount)

	var inNotebook []diaryJSON
	require.Equal(t, http.StatusOK, alex.do(http.MethodGet, fmt.Sprintf("/api/notebooks/%d/diaries", trip.ID), nil, &inNotebook))
	require.Len(t, inNotebook, 1)
	assert.Equal(t, "Day 1", inNotebook[0].Title)

	var found []diaryJSON
	require.Equal(t, http.StatusOK, alex.do(http.MethodGet, "/api/search?q=Day&type=title", nil, &found))
	assert.Len(t, found, 1)

	require.Equal(t, http.StatusNoContent, alex.do(http.MethodDelete, fmt.Sprintf("/api/diaries/%d", day1.ID), nil, nil))
	require.Equal(t, http.StatusOK, alex.do(http.MethodGet, fmt.Sprintf("/api/notebooks/%d", trip.ID), nil, &got))
	assert.Equal(t, 0, got.DiaryCount)
}

func TestFavoriteScenario(t *testing.T) {
	ts := newTestServer(t)
	alex := &client{t: t, base: ts.URL}
	alex.signup("Alex", "ABC123X")
	blake := &client{t: t, base: ts.URL}
	blake.signup("Blake", "BLK0001")

	var d diaryJSON
	require.Equal(t, http.StatusCreated, alex.do(http.MethodPost, "/api/diaries", map[string]string{"title": "Harbor"}, &d))
	path := fmt.Sprintf("/api/diaries/%d", d.ID)

	assert.Equal(t, http.StatusCreated, blake.do(http.MethodPut, path+"/favorite", nil, nil))

	var got diaryJSON
	require.Equal(t, http.StatusOK, blake.do(http.MethodGet, path, nil, &got))
	require.NotNil(t, got.Favorite)
	assert.True(t, *got.Favorite)

	var favs []diaryJSON
	require.Equal(t, http.StatusOK, blake.do(http.MethodGet, "/api/favorites", nil, &favs))
	assert.Len(t, favs, 1)

	assert.Equal(t, http.StatusNoContent, blake.do(http.MethodDelete, path+"/favorite", nil, nil))
	require.Equal(t, http.StatusOK, blake.do(http.MethodGet, "/api/favorites", nil, &favs))
	assert.Empty(t, favs)

	// Only the author may edit.
	assert.Equal(t, http.StatusForbidden, blake.do(http.MethodPut, path, map[string]string{"title": "Mine"}, nil))
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	ts := newTestServer(t)
	anon := &client{t: t, base: ts.URL}

	for _, path := range []string{"/api/me", "/api/notebooks", "/api/diaries", "/api/favorites", "/api/search?q=x"} {
		assert.Equal(t, http.StatusUnauthorized, anon.do(http.MethodGet, path, nil, nil), path)
	}

	anon.token = "not-a-jwt"
	assert.Equal(t, http.StatusUnauthorized, anon.do(http.MethodGet, "/api/me", nil, nil))

	var popular []string
	anon.token = ""
	assert.Equal(t, http.StatusOK, anon.do(http.MethodGet, "/api/search/popular", nil, &popular))
	assert.Empty(t, popular)
}

func TestNewRejectsWeakSecret(t *testing.T) {
	cfg := config.Default()
	cfg.DBPath = filepath.Join(t.TempDir(), "server.db")
	cfg.JWTSecret = "short"

	_, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}

func TestPasswordResetNeedsCode(t *testing.T) {
	ts := newTestServer(t)
	victim := &client{t: t, base: ts.URL}
	victim.signup("Victim", "VICTIM1")
	require.Equal(t, http.StatusOK, victim.do(http.MethodPut, "/api/me", map[string]string{
		"nickname": "Victim", "phone": "13800138000",
	}, nil))

	anon := &client{t: t, base: ts.URL}
	assert.Equal(t, http.StatusBadRequest, anon.do(http.MethodPost, "/api/password/reset", map[string]string{
		"phone": "13800138000", "password": "pwned999",
	}, nil))
	assert.Equal(t, http.StatusUnauthorized, anon.do(http.MethodPost, "/api/password/reset", map[string]string{
		"phone": "13800138000", "code": "123456", "password": "pwned999",
	}, nil))
	assert.Equal(t, http.StatusAccepted, anon.do(http.MethodPost, "/api/password/reset/code", map[string]string{
		"phone": "13800138000",
	}, nil))

	assert.Equal(t, http.StatusUnauthorized, anon.do(http.MethodPost, "/api/login", map[string]string{
		"identifier": "VICTIM1", "password": "pwned999",
	}, nil))
	assert.Equal(t, http.StatusOK, anon.do(http.MethodPost, "/api/login", map[string]string{
		"identifier": "VICTIM1", "password": "secret123",
	}, nil))
}
