package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/traildiary/traildiary/internal/apperror"
	"github.com/traildiary/traildiary/internal/model"
)

// Password reset codes.
const (
	ResetCodeTTL            = 10 * time.Minute
	ResetCodeResendInterval = time.Minute
	MaxResetAttempts        = 5
)

var resetCodePattern = regexp.MustCompile(`^\d{6}$`)

// CodeSender delivers a reset code to the owner of a phone number.
type CodeSender interface {
	SendResetCode(ctx context.Context, phone, code string) error
}

// LogCodeSender writes the code to the log instead of sending it. It is
// the stand-in for local runs; anything facing real users needs an SMS
// sender.
type LogCodeSender struct {
	Logger *slog.Logger
}

func (s LogCodeSender) SendResetCode(ctx context.Context, phone, code string) error {
	s.Logger.InfoContext(ctx, "password reset code", slog.String("phone", phone), slog.String("code", code))
	return nil
}

func (s *AccountService) SetCodeSender(sender CodeSender) {
	s.codes = sender
}

// RequestPasswordReset issues a fresh six-digit code for phone and sends
// it. An unregistered phone gets no code but the same nil result, so the
// endpoint does not reveal which phones are registered.
func (s *AccountService) RequestPasswordReset(ctx context.Context, phone string) error {
	phone = strings.TrimSpace(phone)
	if err := requirePhone(phone); err != nil {
		return err
	}

	exists, err := s.users.PhoneExists(ctx, phone)
	if err != nil {
		return fmt.Errorf("service/account: %w", err)
	}
	if !exists {
		s.logger.DebugContext(ctx, "reset code requested for unknown phone")
		return nil
	}

	now := s.now()
	pending, err := s.resets.Get(ctx, phone)
	switch {
	case err == nil:
		if now.Sub(pending.CreatedAt) < ResetCodeResendInterval {
			return apperror.ValidationFailed("phone", "a code was sent recently, try again in a minute")
		}
	case !errors.Is(err, apperror.ErrNotFound) && !errors.Is(err, apperror.ErrDecode):
		return fmt.Errorf("service/account: %w", err)
	}

	code, err := newResetCode()
	if err != nil {
		return fmt.Errorf("service/account: %w", err)
	}
	hash, err := s.passwords.Hash(code)
	if err != nil {
		return fmt.Errorf("service/account: %w", err)
	}
	if err := s.resets.Save(ctx, &model.PasswordReset{
		Phone:     phone,
		CodeHash:  hash,
		ExpiresAt: now.Add(ResetCodeTTL),
		CreatedAt: now,
	}); err != nil {
		return fmt.Errorf("service/account: %w", err)
	}

	if err := s.codes.SendResetCode(ctx, phone, code); err != nil {
		if _, derr := s.resets.Delete(ctx, phone); derr != nil {
			s.logger.WarnContext(ctx, "dropping unsent reset code", slog.String("error", derr.Error()))
		}
		return fmt.Errorf("service/account: sending reset code: %w", err)
	}
	s.logger.InfoContext(ctx, "password reset code issued")
	return nil
}

// ResetPassword sets a new password on the account(s) registered with
// phone, given the code RequestPasswordReset sent. A code works once, for
// ResetCodeTTL, and is dropped after MaxResetAttempts wrong guesses.
// Every code failure is the same Unauthorized error.
func (s *AccountService) ResetPassword(ctx context.Context, phone, code, newPassword string) error {
	phone = strings.TrimSpace(phone)
	code = strings.TrimSpace(code)
	if err := requirePhone(phone); err != nil {
		return err
	}
	if code == "" {
		return apperror.ValidationFailed("code", "verification code is required")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	invalid := apperror.Unauthorized("invalid or expired verification code")

	pending, err := s.resets.Get(ctx, phone)
	if errors.Is(err, apperror.ErrNotFound) {
		return invalid
	}
	if err != nil {
		return fmt.Errorf("service/account: %w", err)
	}
	if pending.Expired(s.now()) || pending.Attempts >= MaxResetAttempts {
		s.dropResetCode(ctx, phone)
		return invalid
	}
	if !resetCodePattern.MatchString(code) || s.passwords.Verify(pending.CodeHash, code) != nil {
		attempts, err := s.resets.IncrementAttempts(ctx, phone)
		if err != nil && !errors.Is(err, apperror.ErrNotFound) {
			return fmt.Errorf("service/account: %w", err)
		}
		if attempts >= MaxResetAttempts {
			s.dropResetCode(ctx, phone)
		}
		return invalid
	}

	// Consume before writing so two requests with the same code can't both win.
	n, err := s.resets.Delete(ctx, phone)
	if err != nil {
		return fmt.Errorf("service/account: %w", err)
	}
	if n == 0 {
		return invalid
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("service/account: %w", err)
	}
	updated, err := s.users.UpdatePasswordByPhone(ctx, phone, hash)
	if err != nil {
		return fmt.Errorf("service/account: %w", err)
	}
	if updated == 0 {
		return apperror.NotFound("user with phone", phone)
	}

	s.logger.InfoContext(ctx, "password reset", slog.Int64("accounts", updated))
	return nil
}

func (s *AccountService) dropResetCode(ctx context.Context, phone string) {
	if _, err := s.resets.Delete(ctx, phone); err != nil {
		s.logger.WarnContext(ctx, "dropping reset code", slog.String("error", err.Error()))
	}
}

func requirePhone(phone string) error {
	if phone == "" {
		return apperror.ValidationFailed("phone", "phone is required")
	}
	return validatePhone(phone)
}

// newResetCode returns six random digits.
func newResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generating reset code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
