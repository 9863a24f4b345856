// Package service holds the rules that sit between the HTTP handlers (and
// the CLI) and the store:
//
//	Handler / CLI → Service (validation, ownership, orchestration) → Repository
//
// Services take repository interfaces, never *sqlite.DB, and return
// apperror values; the handlers decide what those mean in HTTP.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/traildiary/traildiary/internal/apperror"
	"github.com/traildiary/traildiary/internal/auth"
	"github.com/traildiary/traildiary/internal/model"
	"github.com/traildiary/traildiary/internal/repository"
)

// AccountService owns registration, login and profile changes.
type AccountService struct {
	users     repository.UserRepository
	notebooks repository.NotebookRepository
	resets    repository.PasswordResetRepository
	passwords *auth.PasswordService
	tokens    *auth.TokenService
	codes     CodeSender
	logger    *slog.Logger
	now       func() time.Time
}

// NewAccountService delivers reset codes through the log until
// SetCodeSender installs a real channel.
func NewAccountService(
	users repository.UserRepository,
	notebooks repository.NotebookRepository,
	resets repository.PasswordResetRepository,
	passwords *auth.PasswordService,
	tokens *auth.TokenService,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		users:     users,
		notebooks: notebooks,
		resets:    resets,
		passwords: passwords,
		tokens:    tokens,
		codes:     LogCodeSender{Logger: logger},
		logger:    logger,
		now:       time.Now,
	}
}

// RegisterInput is what the sign-up form collects.
type RegisterInput struct {
	Nickname    string
	TrailNumber string
	Password    string
	Phone       string
	Signature   string
	Gender      string
	Birthday    *time.Time
	Avatar      []byte
}

// AuthResult pairs the account with the token issued for it.
type AuthResult struct {
	User  *model.User
	Token string
}

// Register validates the input, rejects a taken nickname or trail number,
// stores the account with a bcrypt hash and gives it a default notebook.
//
// The existence checks produce the friendly error; the unique indexes still
// catch a concurrent sign-up that slips between check and insert.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Nickname = strings.TrimSpace(in.Nickname)
	in.TrailNumber = strings.TrimSpace(in.TrailNumber)
	in.Phone = strings.TrimSpace(in.Phone)

	if err := validateNickname(in.Nickname); err != nil {
		return nil, err
	}
	if err := validateTrailNumber(in.TrailNumber); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	if err := validatePhone(in.Phone); err != nil {
		return nil, err
	}
	if err := validateSignature(in.Signature); err != nil {
		return nil, err
	}
	if len(in.Avatar) > MaxAvatarBytes {
		return nil, apperror.ValidationFailed("avatar", "avatar image is too large")
	}

	taken, err := s.users.NicknameExists(ctx, in.Nickname)
	if err != nil {
		return nil, fmt.Errorf("service/account: checking nickname: %w", err)
	}
	if taken {
		return nil, apperror.Conflict("user", "nickname", in.Nickname)
	}
	taken, err = s.users.TrailNumberExists(ctx, in.TrailNumber)
	if err != nil {
		return nil, fmt.Errorf("service/account: checking trail number: %w", err)
	}
	if taken {
		return nil, apperror.Conflict("user", "trailNumber", in.TrailNumber)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/account: %w", err)
	}

	user := &model.User{
		Avatar:       in.Avatar,
		Nickname:     in.Nickname,
		TrailNumber:  in.TrailNumber,
		PasswordHash: hash,
		Phone:        in.Phone,
		Signature:    in.Signature,
		Gender:       in.Gender,
		Birthday:     in.Birthday,
	}
	id, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("service/account: registering %s: %w", in.Nickname, err)
	}

	// The account exists even if this fails; the user can still make a
	// notebook by hand.
	if _, err := s.notebooks.CreateDefault(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "default notebook not created",
			slog.Int64("userID", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.Int64("userID", id),
		slog.String("trailNumber", in.TrailNumber),
	)
	return s.users.GetByID(ctx, id)
}

// Login accepts a trail number or nickname plus password and returns a
// token. Every failure, unknown account included, is the same Unauthorized
// error so the response doesn't reveal which accounts exist.
func (s *AccountService) Login(ctx context.Context, identifier, password string) (*AuthResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, apperror.ValidationFailed("identifier", "trail number and password are required")
	}

	invalid := apperror.Unauthorized("invalid trail number or password")

	user, err := s.users.GetByLogin(ctx, identifier)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, invalid
		}
		return nil, fmt.Errorf("service/account: looking up %q: %w", identifier, err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.WarnContext(ctx, "stored password is not a bcrypt hash",
				slog.Int64("userID", user.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, invalid
	}

	if s.passwords.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user, password)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/account: issuing token for user %d: %w", user.ID, err)
	}

	s.logger.InfoContext(ctx, "user logged in", slog.Int64("userID", user.ID))
	return &AuthResult{User: user, Token: token}, nil
}

// rehash upgrades a hash made at an old cost. Failure only costs another
// attempt at the next login.
func (s *AccountService) rehash(ctx context.Context, user *model.User, password string) {
	hash, err := s.passwords.Hash(password)
	if err == nil {
		_, err = s.users.UpdatePassword(ctx, user.ID, hash)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "password rehash failed",
			slog.Int64("userID", user.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	user.PasswordHash = hash
}

func (s *AccountService) Profile(ctx context.Context, userID int64) (*model.User, error) {
	return s.users.GetByID(ctx, userID)
}

// ProfileInput replaces the editable profile fields. The trail number and
// avatar are not part of it.
type ProfileInput struct {
	Nickname  string
	Phone     string
	Signature string
	Gender    string
	Birthday  *time.Time
}

func (s *AccountService) UpdateProfile(ctx context.Context, userID int64, in ProfileInput) (*model.User, error) {
	in.Nickname = strings.TrimSpace(in.Nickname)
	in.Phone = strings.TrimSpace(in.Phone)

	if err := validateNickname(in.Nickname); err != nil {
		return nil, err
	}
	if err := validatePhone(in.Phone); err != nil {
		return nil, err
	}
	if err := validateSignature(in.Signature); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.Nickname != user.Nickname {
		taken, err := s.users.NicknameExists(ctx, in.Nickname)
		if err != nil {
			return nil, fmt.Errorf("service/account: checking nickname: %w", err)
		}
		if taken {
			return nil, apperror.Conflict("user", "nickname", in.Nickname)
		}
	}

	user.Nickname = in.Nickname
	user.Phone = in.Phone
	user.Signature = in.Signature
	user.Gender = in.Gender
	user.Birthday = in.Birthday

	n, err := s.users.Update(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("service/account: updating profile of user %d: %w", userID, err)
	}
	if n == 0 {
		return nil, apperror.NotFound("user", userID)
	}
	return s.users.GetByID(ctx, userID)
}

// UpdateAvatar stores new avatar bytes; nil or empty removes the avatar.
func (s *AccountService) UpdateAvatar(ctx context.Context, userID int64, avatar []byte) error {
	if len(avatar) > MaxAvatarBytes {
		return apperror.ValidationFailed("avatar", "avatar image is too large")
	}
	n, err := s.users.UpdateAvatar(ctx, userID, avatar)
	if err != nil {
		return fmt.Errorf("service/account: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("user", userID)
	}
	return nil
}

// DeleteAccount removes the user and, through the schema's cascades,
// everything they own.
func (s *AccountService) DeleteAccount(ctx context.Context, userID int64) error {
	n, err := s.users.Delete(ctx, userID)
	if err != nil {
		return fmt.Errorf("service/account: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("user", userID)
	}
	s.logger.InfoContext(ctx, "account deleted", slog.Int64("userID", userID))
	return nil
}
