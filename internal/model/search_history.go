package model

import "time"

// SearchType selects which diary fields a search matches against.
type SearchType int

const (
	SearchGeneral  SearchType = 0
	SearchAuthor   SearchType = 1
	SearchTitle    SearchType = 2
	SearchCategory SearchType = 3
)

// Valid reports whether t is one of the four search scopes.
func (t SearchType) Valid() bool {
	return t >= SearchGeneral && t <= SearchCategory
}

// String returns the display label of the scope.
func (t SearchType) String() string {
	switch t {
	case SearchAuthor:
		return "作者"
	case SearchTitle:
		return "标题"
	case SearchCategory:
		return "类别"
	default:
		return "综合"
	}
}

// ParseSearchType accepts the scope names used by the API
// ("general", "author", "title", "category"). Empty input means general.
func ParseSearchType(s string) (SearchType, bool) {
	switch s {
	case "", "general", "all":
		return SearchGeneral, true
	case "author":
		return SearchAuthor, true
	case "title":
		return SearchTitle, true
	case "category":
		return SearchCategory, true
	}
	return 0, false
}

// MaxRecentSearches is how many history rows the "recent" listing returns.
const MaxRecentSearches = 10

// SearchHistory is one recorded search. Duplicate keywords are allowed;
// callers that want uniqueness check first.
type SearchHistory struct {
	ID         int64      `json:"id"         db:"search_id"`
	UserID     int64      `json:"userId"     db:"user_id"`
	Keyword    string     `json:"keyword"    db:"keyword"`
	SearchType SearchType `json:"searchType" db:"search_type"`
	Result     string     `json:"result"     db:"search_result"`
	SearchedAt time.Time  `json:"searchedAt" db:"create_time"`
}
