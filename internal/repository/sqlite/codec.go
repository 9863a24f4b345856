package sqlite

import (
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/traildiary/traildiary/internal/apperror"
)

// On-disk formats. Timestamps and dates are local-time text so that files
// written by earlier versions of the app stay readable, and so that ORDER BY
// on the text column is chronological.
const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.In(time.Local).Format(dateTimeLayout)
}

// parseDateTime treats NULL and "" as the zero time. Older rows written
// date-only are accepted too.
func parseDateTime(ns sql.NullString) (time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(dateTimeLayout, ns.String, time.Local)
	if err == nil {
		return t, nil
	}
	if t, derr := time.ParseInLocation(dateLayout, ns.String, time.Local); derr == nil {
		return t, nil
	}
	return time.Time{}, err
}

// formatDate returns nil for an unknown date so the column stores NULL.
func formatDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.In(time.Local).Format(dateLayout)
}

func parseDate(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateLayout, ns.String, time.Local)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// encodeImages stores the list as a JSON array. A nil list is written as
// "[]" so the column never holds the literal "null".
func encodeImages(images []string) (string, error) {
	if len(images) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(images)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeImages maps NULL, "", "null" and "[]" all to nil.
func decodeImages(ns sql.NullString) ([]string, error) {
	s := strings.TrimSpace(ns.String)
	if !ns.Valid || s == "" || s == "null" {
		return nil, nil
	}
	var images []string
	if err := json.Unmarshal([]byte(s), &images); err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, nil
	}
	return images, nil
}

// encodeAvatar writes uppercase hex. No avatar is the empty string.
func encodeAvatar(avatar []byte) string {
	if len(avatar) == 0 {
		return ""
	}
	return strings.ToUpper(hex.EncodeToString(avatar))
}

func decodeAvatar(ns sql.NullString) ([]byte, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	return hex.DecodeString(ns.String)
}

// likePattern wraps keyword for a contains-match. LIKE wildcards inside the
// keyword are escaped so they match literally; queries use ESCAPE '\'.
func likePattern(keyword string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(keyword) + "%"
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isDecodeError(err error) bool {
	return errors.Is(err, apperror.ErrDecode)
}
