package model

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.Local)
	return &t
}

func TestZodiacSign(t *testing.T) {
	tests := []struct {
		month time.Month
		day   int
		want  string
	}{
		{time.January, 19, "摩羯座"},
		{time.January, 20, "水瓶座"},
		{time.February, 18, "水瓶座"},
		{time.February, 19, "双鱼座"},
		{time.March, 20, "双鱼座"},
		{time.March, 21, "白羊座"},
		{time.April, 19, "白羊座"},
		{time.June, 21, "双子座"},
		{time.June, 22, "巨蟹座"},
		{time.August, 23, "处女座"},
		{time.October, 23, "天秤座"},
		{time.October, 24, "天蝎座"},
		{time.December, 21, "射手座"},
		{time.December, 22, "摩羯座"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ZodiacSign(tt.month, tt.day), "%s %d", tt.month, tt.day)
	}
}

func TestUserDerivedFields(t *testing.T) {
	u := User{}
	assert.Equal(t, "未知", u.Zodiac())
	assert.Equal(t, 0, u.Age(time.Now()))

	u.Birthday = date(1995, time.July, 30)
	assert.Equal(t, "狮子座", u.Zodiac())
	assert.Equal(t, 31, u.Age(time.Date(2026, 1, 1, 0, 0, 0, 0, time.Local)), "birthday not yet reached still counts the year")
	assert.Equal(t, 31, u.Age(time.Date(2026, 12, 31, 0, 0, 0, 0, time.Local)))
}

func TestCategoryCodeFromName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"国内游", CategoryDomestic},
		{"  美食之旅 ", CategoryFood},
		{"文化之旅", CategoryCulture},
		{"3", CategoryFamily},
		{" 6\t", CategoryCulture},
		{"not-a-category", ""},
		{"国内", ""},
		{"7", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, CategoryCodeFromName(tt.input))
		})
	}
}

func TestDiarySummary(t *testing.T) {
	d := Diary{Content: "short"}
	assert.Equal(t, "short", d.Summary())

	d.Content = strings.Repeat("山", 120)
	s := d.Summary()
	assert.True(t, strings.HasSuffix(s, "..."))
	assert.Equal(t, 103, len([]rune(s)))
}

func TestDiaryParagraphs(t *testing.T) {
	d := Diary{Content: JoinParagraphs([]string{"Morning hike.", "", "Lunch by the lake."})}
	assert.Equal(t, []string{"Morning hike.", "Lunch by the lake."}, d.Paragraphs())
	assert.Empty(t, (&Diary{}).Paragraphs())
}

func TestNotebookCover(t *testing.T) {
	n := Notebook{Cover: "3"}
	num, ok := n.BuiltinCover()
	assert.True(t, ok)
	assert.Equal(t, 3, num)

	n.Cover = "/data/covers/lake.jpg"
	_, ok = n.BuiltinCover()
	assert.False(t, ok)

	assert.True(t, ValidCover(""))
	assert.True(t, ValidCover("5"))
	assert.True(t, ValidCover("/data/covers/lake.jpg"))
	assert.False(t, ValidCover("6"))
	assert.False(t, ValidCover("covers/lake.jpg"))
}

func TestParseSearchType(t *testing.T) {
	st, ok := ParseSearchType("title")
	assert.True(t, ok)
	assert.Equal(t, SearchTitle, st)

	st, ok = ParseSearchType("")
	assert.True(t, ok)
	assert.Equal(t, SearchGeneral, st)

	_, ok = ParseSearchType("body")
	assert.False(t, ok)
	assert.False(t, SearchType(9).Valid())
	assert.Equal(t, "类别", SearchCategory.String())
}
