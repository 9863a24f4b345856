package model

import "strings"

// Diary categories. The code is what the diary table stores.
const (
	CategoryDomestic      = "1"
	CategoryInternational = "2"
	CategoryFamily        = "3"
	CategoryFood          = "4"
	CategoryAdventure     = "5"
	CategoryCulture       = "6"
)

var categoryNames = map[string]string{
	CategoryDomestic:      "国内游",
	CategoryInternational: "国际游",
	CategoryFamily:        "亲子游",
	CategoryFood:          "美食之旅",
	CategoryAdventure:     "探险之旅",
	CategoryCulture:       "文化之旅",
}

// CategoryName returns the display name for a category code, or "" for an
// unknown code.
func CategoryName(code string) string {
	return categoryNames[code]
}

// ValidCategory reports whether code is one of the six category codes.
func ValidCategory(code string) bool {
	_, ok := categoryNames[code]
	return ok
}

// CategoryCodeFromName maps user input to a category code.
//
// Input is trimmed and must equal either a display name ("国内游") or a code
// ("1") exactly. Anything else yields "", which callers treat as
// "no such category" (an empty result, never a wildcard).
func CategoryCodeFromName(input string) string {
	s := strings.TrimSpace(input)
	if ValidCategory(s) {
		return s
	}
	for code, name := range categoryNames {
		if name == s {
			return code
		}
	}
	return ""
}
