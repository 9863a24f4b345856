package sqlite

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ns(s string) sql.NullString { return sql.NullString{String: s, Valid: true} }

func TestImagesCodec(t *testing.T) {
	tests := []struct {
		name   string
		images []string
		stored string
	}{
		{"nil list", nil, "[]"},
		{"empty list", []string{}, "[]"},
		{"two paths", []string{"/sdcard/a.jpg", "/sdcard/湖边.jpg"}, `["/sdcard/a.jpg","/sdcard/湖边.jpg"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := encodeImages(tt.images)
			require.NoError(t, err)
			assert.Equal(t, tt.stored, enc)

			dec, err := decodeImages(ns(enc))
			require.NoError(t, err)
			if len(tt.images) == 0 {
				assert.Nil(t, dec)
			} else {
				assert.Equal(t, tt.images, dec)
			}
		})
	}
}

func TestDecodeImagesEmptyForms(t *testing.T) {
	for _, v := range []sql.NullString{{}, ns(""), ns("null"), ns("[]"), ns("  ")} {
		got, err := decodeImages(v)
		require.NoError(t, err)
		assert.Nil(t, got)
	}

	_, err := decodeImages(ns("{not json"))
	assert.Error(t, err)
}

func TestAvatarCodec(t *testing.T) {
	assert.Equal(t, "", encodeAvatar(nil))
	assert.Equal(t, "00FFA1", encodeAvatar([]byte{0x00, 0xff, 0xa1}))

	b, err := decodeAvatar(ns("00FFA1"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xff, 0xa1}, b)

	b, err = decodeAvatar(ns(""))
	require.NoError(t, err)
	assert.Nil(t, b)

	_, err = decodeAvatar(ns("/sdcard/avatar.png"))
	assert.Error(t, err)
}

func TestDateCodec(t *testing.T) {
	ts := time.Date(2024, time.May, 1, 8, 30, 15, 999, time.Local)
	stored := formatDateTime(ts)
	assert.Equal(t, "2024-05-01 08:30:15", stored)

	back, err := parseDateTime(ns(stored))
	require.NoError(t, err)
	assert.True(t, ts.Truncate(time.Second).Equal(back))

	// date-only text from older rows still parses
	back, err = parseDateTime(ns("2024-05-01"))
	require.NoError(t, err)
	assert.Equal(t, 1, back.Day())

	zero, err := parseDateTime(sql.NullString{})
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	_, err = parseDateTime(ns("yesterday"))
	assert.Error(t, err)

	bday := time.Date(1995, time.July, 30, 0, 0, 0, 0, time.Local)
	assert.Equal(t, "1995-07-30", formatDate(&bday))
	assert.Nil(t, formatDate(nil))

	got, err := parseDate(ns("1995-07-30"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, bday.Equal(*got))
}

func TestLikePatternEscapesWildcards(t *testing.T) {
	assert.Equal(t, `%Day%`, likePattern("Day"))
	assert.Equal(t, `%100\%%`, likePattern("100%"))
	assert.Equal(t, `%a\_b%`, likePattern("a_b"))
}
