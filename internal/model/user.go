// Package model holds the diary domain types: users, notebooks, diaries,
// favorites and search history, plus the derived values (age, zodiac,
// summaries, category names) computed from them. Types here carry no
// storage or HTTP logic; json tags define the API shape and db tags name
// the columns they map to.
package model

import "time"

// DefaultSignature is stored for users who register without a signature.
const DefaultSignature = "山川为印，时光为笔。"

// Gender codes. The column is free-form text; these are the values the
// registration form writes.
const (
	GenderFemale = "0"
	GenderMale   = "1"
)

// User represents a registered traveller.
//
// Nickname and TrailNumber are each globally unique. Either one can be used
// as the login identifier.
//
// PASSWORDS:
// PasswordHash holds a bcrypt hash, never the plaintext. It is tagged `json:"-"`
// so the hash can't leak through an API response by accident.
//
// AVATAR:
// Avatar is raw image bytes. On disk it is uppercase hex text, and an absent
// avatar is always the empty string, never NULL.
type User struct {
	ID           int64      `json:"id"          db:"user_id"`
	Avatar       []byte     `json:"avatar"      db:"avatar"`
	Nickname     string     `json:"nickname"    db:"nickname"`
	TrailNumber  string     `json:"trailNumber" db:"trail_number"`
	PasswordHash string     `json:"-"           db:"password"`
	Phone        string     `json:"phone"       db:"phone"`
	Signature    string     `json:"signature"   db:"signature"`
	Gender       string     `json:"gender"      db:"gender"`
	Birthday     *time.Time `json:"birthday"    db:"birthday"` // date only; nil when unknown
	CreatedAt    time.Time  `json:"createdAt"   db:"create_time"`
}

// Age returns the difference in calendar years between now and the
// birthday; it does not check whether this year's birthday has passed.
// Unknown birthdays report 0.
func (u *User) Age(now time.Time) int {
	if u.Birthday == nil {
		return 0
	}
	return now.Year() - u.Birthday.Year()
}

// Zodiac returns the western star sign for the user's birthday,
// or "未知" when the birthday is unknown.
func (u *User) Zodiac() string {
	if u.Birthday == nil {
		return "未知"
	}
	return ZodiacSign(u.Birthday.Month(), u.Birthday.Day())
}

// zodiacStarts lists, per month, the first day of the sign that begins in
// that month. Days before the boundary belong to the previous month's sign.
var zodiacStarts = [12]struct {
	day  int
	sign string
}{
	{20, "水瓶座"}, // Jan 20
	{19, "双鱼座"}, // Feb 19
	{21, "白羊座"}, // Mar 21
	{20, "金牛座"}, // Apr 20
	{21, "双子座"}, // May 21
	{22, "巨蟹座"}, // Jun 22
	{23, "狮子座"}, // Jul 23
	{23, "处女座"}, // Aug 23
	{23, "天秤座"}, // Sep 23
	{24, "天蝎座"}, // Oct 24
	{23, "射手座"}, // Nov 23
	{22, "摩羯座"}, // Dec 22
}

// ZodiacSign maps a month/day pair to its star sign.
func ZodiacSign(month time.Month, day int) string {
	i := int(month) - 1
	if day >= zodiacStarts[i].day {
		return zodiacStarts[i].sign
	}
	return zodiacStarts[(i+11)%12].sign
}
