package service

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/traildiary/traildiary/internal/apperror"
	"github.com/traildiary/traildiary/internal/model"
)

// Field rules for account and journal input.
const (
	MaxSignatureLength = 100
	MaxAvatarBytes     = 2 << 20
)

var (
	// 2 to 20 CJK ideographs, ASCII letters or digits.
	nicknamePattern = regexp.MustCompile(`^[\x{4e00}-\x{9fa5}a-zA-Z0-9]{2,20}$`)
	// Trail numbers and passwords share one shape.
	credentialPattern = regexp.MustCompile(`^[a-zA-Z0-9]{6,20}$`)
	// Mainland mobile numbers.
	phonePattern = regexp.MustCompile(`^1[3-9]\d{9}$`)
)

func validateNickname(nickname string) error {
	if nickname == "" {
		return apperror.ValidationFailed("nickname", "nickname is required")
	}
	if !nicknamePattern.MatchString(nickname) {
		return apperror.ValidationFailed("nickname",
			"nickname must be 2-20 Chinese characters, letters or digits")
	}
	return nil
}

func validateTrailNumber(trailNumber string) error {
	if !credentialPattern.MatchString(trailNumber) {
		return apperror.ValidationFailed("trailNumber", "trail number must be 6-20 letters or digits")
	}
	return nil
}

func validatePassword(password string) error {
	if !credentialPattern.MatchString(password) {
		return apperror.ValidationFailed("password", "password must be 6-20 letters or digits")
	}
	return nil
}

// validatePhone accepts an empty phone; the number is optional.
func validatePhone(phone string) error {
	if phone != "" && !phonePattern.MatchString(phone) {
		return apperror.ValidationFailed("phone", "phone must be an 11-digit mobile number")
	}
	return nil
}

func validateSignature(signature string) error {
	if utf8.RuneCountInString(signature) > MaxSignatureLength {
		return apperror.ValidationFailed("signature",
			fmt.Sprintf("signature must be %d characters or fewer", MaxSignatureLength))
	}
	return nil
}

func validateNotebookName(name string) error {
	n := utf8.RuneCountInString(name)
	if n == 0 {
		return apperror.ValidationFailed("name", "notebook name is required")
	}
	if n > model.MaxNotebookNameLength {
		return apperror.ValidationFailed("name",
			fmt.Sprintf("notebook name must be %d characters or fewer", model.MaxNotebookNameLength))
	}
	return nil
}

func validateCover(cover string) error {
	if !model.ValidCover(cover) {
		return apperror.ValidationFailed("cover",
			fmt.Sprintf("cover must be 1-%d or an absolute image path", model.BuiltinCoverCount))
	}
	return nil
}

func validateDiary(in *DiaryInput) error {
	in.Title = strings.TrimSpace(in.Title)
	n := utf8.RuneCountInString(in.Title)
	if n == 0 {
		return apperror.ValidationFailed("title", "title is required")
	}
	if n > model.MaxDiaryTitleLength {
		return apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or fewer", model.MaxDiaryTitleLength))
	}
	if in.Category != "" {
		code := model.CategoryCodeFromName(in.Category)
		if code == "" {
			return apperror.ValidationFailed("category", fmt.Sprintf("unknown category %q", in.Category))
		}
		in.Category = code
	}
	return nil
}
