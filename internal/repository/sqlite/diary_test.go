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

func diaryTitles(ds []model.Diary) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Title
	}
	return out
}

func TestDiaryCreateAndGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alex := createTestUser(t, db, "Alex", "ABC123X")
	_, err := db.Users().UpdateAvatar(ctx, alex.ID, []byte{0xca, 0xfe})
	require.NoError(t, err)
	nb := createTestNotebook(t, db, alex.ID, "Trip")

	d := createTestDiary(t, db, &model.Diary{
		Title:          "Day 1",
		Content:        model.JoinParagraphs([]string{"Up at dawn.", "Lake by noon."}),
		Category:       model.CategoryDomestic,
		AuthorID:       alex.ID,
		CoverImagePath: "/sdcard/cover.jpg",
		Images:         []string{"/sdcard/a.jpg", "/sdcard/b.jpg"},
		NotebookID:     &nb.ID,
	})

	got, err := db.Diaries().GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "Day 1", got.Title)
	assert.Equal(t, []string{"Up at dawn.", "Lake by noon."}, got.Paragraphs())
	assert.Equal(t, "国内游", got.CategoryName())
	assert.Equal(t, "Alex", got.AuthorName)
	assert.Equal(t, []byte{0xca, 0xfe}, got.AuthorAvatar)
	assert.Equal(t, []string{"/sdcard/a.jpg", "/sdcard/b.jpg"}, got.Images)
	assert.True(t, got.InNotebook(nb.ID))
	assert.False(t, got.IsDraft)
	assert.Zero(t, got.LikeCount)

	var snapshot string
	require.NoError(t, db.conn.QueryRowContext(ctx,
		`SELECT author_name FROM diary WHERE diary_id = ?`, d.ID).Scan(&snapshot))
	assert.Equal(t, "Alex", snapshot, "author name snapshot filled from the user row")
}

func TestDiaryImagesEmptyAndNull(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alex := createTestUser(t, db, "Alex", "ABC123X")

	empty := createTestDiary(t, db, &model.Diary{Title: "empty", AuthorID: alex.ID, Images: []string{}})
	null := createTestDiary(t, db, &model.Diary{Title: "null", AuthorID: alex.ID})
	_, err := db.conn.ExecContext(ctx, `UPDATE diary SET images = NULL WHERE diary_id = ?`, null.ID)
	require.NoError(t, err)

	for _, id := range []int64{empty.ID, null.ID} {
		got, err := db.Diaries().GetByID(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, got.Images)
	}
}

func TestDiaryUpdate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alex := createTestUser(t, db, "Alex", "ABC123X")
	nb := createTestNotebook(t, db, alex.ID, "Trip")
	d := createTestDiary(t, db, &model.Diary{Title: "draft", AuthorID: alex.ID, IsDraft: true})
	_, err := db.Diaries().IncrementLikes(ctx, d.ID)
	require.NoError(t, err)

	d.Title = "Day 2"
	d.IsDraft = false
	d.NotebookID = &nb.ID
	d.Images = []string{"/sdcard/c.jpg"}
	n, err := db.Diaries().Update(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := db.Diaries().GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "Day 2", got.Title)
	assert.False(t, got.IsDraft)
	assert.True(t, got.InNotebook(nb.ID))
	assert.Equal(t, []string{"/sdcard/c.jpg"}, got.Images)
	assert.Equal(t, 1, got.LikeCount, "update keeps the counters")

	n, err = db.Diaries().Update(ctx, &model.Diary{ID: 9999, Title: "ghost"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestDiaryCreateUnknownNotebookFails(t *testing.T) {
	db := newTestDB(t)
	alex := createTestUser(t, db, "Alex", "ABC123X")
	missing := int64(9999)

	_, err := db.Diaries().Create(context.Background(),
		&model.Diary{Title: "lost", AuthorID: alex.ID, NotebookID: &missing})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestDiaryListByUserDrafts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alex := createTestUser(t, db, "Alex", "ABC123X")

	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local)
	createTestDiary(t, db, &model.Diary{Title: "first", AuthorID: alex.ID, CreatedAt: base})
	createTestDiary(t, db, &model.Diary{Title: "draft", AuthorID: alex.ID, CreatedAt: base.Add(time.Hour), IsDraft: true})
	createTestDiary(t, db, &model.Diary{Title: "second", AuthorID: alex.ID, CreatedAt: base.Add(2 * time.Hour)})

	published, err := db.Diaries().ListByUser(ctx, alex.ID, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "first"}, diaryTitles(published))
	for _, d := range published {
		assert.False(t, d.IsDraft)
	}

	all, err := db.Diaries().ListByUser(ctx, alex.ID, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "draft", "first"}, diaryTitles(all))

	n, err := db.Diaries().CountByUser(ctx, alex.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = db.Diaries().CountByUser(ctx, alex.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestDiaryDrafts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alex := createTestUser(t, db, "Alex", "ABC123X")

	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local)
	createTestDiary(t, db, &model.Diary{Title: "edited-early", AuthorID: alex.ID, IsDraft: true,
		CreatedAt: base.Add(time.Hour), UpdatedAt: base.Add(time.Hour)})
	createTestDiary(t, db, &model.Diary{Title: "edited-late", AuthorID: alex.ID, IsDraft: true,
		CreatedAt: base, UpdatedAt: base.Add(3 * time.Hour)})
	createTestDiary(t, db, &model.Diary{Title: "published", AuthorID: alex.ID})

	drafts, err := db.Diaries().ListDrafts(ctx, alex.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"edited-late", "edited-early"}, diaryTitles(drafts))

	n, err := db.Diaries().DeleteDrafts(ctx, alex.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	left, err := db.Diaries().ListByUser(ctx, alex.ID, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"published"}, diaryTitles(left))
}

func TestDiaryListByNotebookExcludesDrafts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alex := createTestUser(t, db, "Alex", "ABC123X")
	nb := createTestNotebook(t, db, alex.ID, "Trip")
	createTestDiary(t, db, &model.Diary{Title: "in", AuthorID: alex.ID, NotebookID: &nb.ID})
	createTestDiary(t, db, &model.Diary{Title: "draft", AuthorID: alex.ID, NotebookID: &nb.ID, IsDraft: true})
	createTestDiary(t, db, &model.Diary{Title: "out", AuthorID: alex.ID})

	list, err := db.Diaries().ListByNotebook(ctx, nb.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"in"}, diaryTitles(list))
}

// =========================================================================
// SEARCH
// =========================================================================

func seedSearch(t *testing.T, db *DB) (alex, blake *model.User) {
	t.Helper()
	alex = createTestUser(t, db, "Alex", "ABC123X")
	blake = createTestUser(t, db, "Blake", "BLK0001")

	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local)
	createTestDiary(t, db, &model.Diary{Title: "Day 1 at Erhai", Content: "cycling", Category: model.CategoryDomestic,
		AuthorID: alex.ID, CreatedAt: base})
	createTestDiary(t, db, &model.Diary{Title: "Noodles", Content: "a day of eating", Category: model.CategoryFood,
		AuthorID: alex.ID, CreatedAt: base.Add(time.Hour)})
	createTestDiary(t, db, &model.Diary{Title: "Day draft", Category: model.CategoryDomestic,
		AuthorID: alex.ID, IsDraft: true, CreatedAt: base.Add(2 * time.Hour)})
	createTestDiary(t, db, &model.Diary{Title: "Day in Kyoto", Category: model.CategoryInternational,
		AuthorID: blake.ID, CreatedAt: base.Add(3 * time.Hour)})
	return alex, blake
}

func TestDiarySearchScopes(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alex, _ := seedSearch(t, db)

	tests := []struct {
		name    string
		keyword string
		scope   model.SearchType
		want    []string
	}{
		{"title contains, drafts excluded", "Day", model.SearchTitle, []string{"Day 1 at Erhai"}},
		{"title is case-insensitive", "noodLES", model.SearchTitle, []string{"Noodles"}},
		{"general covers content", "day", model.SearchGeneral, []string{"Noodles", "Day 1 at Erhai"}},
		{"general covers category code", model.CategoryFood, model.SearchGeneral, []string{"Noodles"}},
		{"author nickname", "ale", model.SearchAuthor, []string{"Noodles", "Day 1 at Erhai"}},
		{"category by name", " 美食之旅 ", model.SearchCategory, []string{"Noodles"}},
		{"category by code", "1", model.SearchCategory, []string{"Day 1 at Erhai"}},
		{"unknown category is empty", "not-a-category", model.SearchCategory, []string{}},
		{"wildcards match literally", "%", model.SearchTitle, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.Diaries().Search(ctx, tt.keyword, tt.scope, alex.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, diaryTitles(got))
		})
	}
}

func TestDiarySearchAll(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedSearch(t, db)

	got, err := db.Diaries().SearchAll(ctx, "Day", model.SearchTitle)
	require.NoError(t, err)
	assert.Equal(t, []string{"Day in Kyoto", "Day 1 at Erhai"}, diaryTitles(got))

	got, err = db.Diaries().SearchAll(ctx, "blake", model.SearchGeneral)
	require.NoError(t, err)
	assert.Equal(t, []string{"Day in Kyoto"}, diaryTitles(got), "general scope matches the author across users")

	got, err = db.Diaries().SearchAll(ctx, "国际游", model.SearchCategory)
	require.NoError(t, err)
	assert.Equal(t, []string{"Day in Kyoto"}, diaryTitles(got))

	got, err = db.Diaries().SearchAll(ctx, "nope", model.SearchCategory)
	require.NoError(t, err)
	assert.Empty(t, got)
}

// =========================================================================
// COUNTERS / CORRUPT ROWS
// =========================================================================

func TestDiaryCounters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alex := createTestUser(t, db, "Alex", "ABC123X")
	d := createTestDiary(t, db, &model.Diary{Title: "Day 1", AuthorID: alex.ID})

	likes, err := db.Diaries().IncrementLikes(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, likes)
	likes, err = db.Diaries().IncrementLikes(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, likes)

	views, err := db.Diaries().IncrementViews(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, views)

	_, err = db.Diaries().IncrementLikes(ctx, 9999)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestDiaryCorruptImagesRow(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alex := createTestUser(t, db, "Alex", "ABC123X")
	createTestDiary(t, db, &model.Diary{Title: "good", AuthorID: alex.ID})
	bad := createTestDiary(t, db, &model.Diary{Title: "bad", AuthorID: alex.ID})

	_, err := db.conn.ExecContext(ctx, `UPDATE diary SET images = '{broken' WHERE diary_id = ?`, bad.ID)
	require.NoError(t, err)

	list, err := db.Diaries().ListByUser(ctx, alex.ID, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"good"}, diaryTitles(list))

	_, err = db.Diaries().GetByID(ctx, bad.ID)
	assert.ErrorIs(t, err, apperror.ErrDecode)
}

func TestDiaryDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alex := createTestUser(t, db, "Alex", "ABC123X")
	d := createTestDiary(t, db, &model.Diary{Title: "Day 1", AuthorID: alex.ID})

	n, err := db.Diaries().Delete(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = db.Diaries().Delete(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	_, err = db.Diaries().GetByID(ctx, d.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
