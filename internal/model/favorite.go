package model

import "time"

// Favorite is a user's bookmark on a diary. The (UserID, DiaryID) pair is unique.
type Favorite struct {
	ID          int64     `json:"id"          db:"favorite_id"`
	UserID      int64     `json:"userId"      db:"user_id"`
	DiaryID     int64     `json:"diaryId"     db:"diary_id"`
	FavoritedAt time.Time `json:"favoritedAt" db:"favorite_time"`
}
