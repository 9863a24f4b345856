// Package auth handles credential hashing and session tokens.
//
// WHY BCRYPT?
// Passwords are never stored or compared as plaintext. bcrypt is deliberately
// slow, salts every hash, and embeds salt and cost in its output, so the
// whole credential fits in the existing user.password column:
//
//	$2a$12$<22-char salt><31-char hash>
//	 ^   ^
//	 |   cost (2^12 rounds)
//	 version
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used when the config leaves it unset.
// Roughly 250ms per hash on a current server.
const DefaultCost = 12

// maxPasswordBytes is bcrypt's input limit. Longer input is silently
// truncated by the algorithm, so Hash rejects it instead.
const maxPasswordBytes = 72

// ErrPasswordMismatch is returned by Verify when the password is wrong.
var ErrPasswordMismatch = errors.New("auth: invalid password")

// PasswordService hashes and verifies passwords.
//
// It's a struct (not free functions) so the cost can be injected: tests run
// at cost 4 and finish in milliseconds.
type PasswordService struct {
	cost int
}

// NewPasswordService returns a service hashing at cost. Zero means
// DefaultCost; values outside bcrypt's range are an error.
func NewPasswordService(cost int) (*PasswordService, error) {
	if cost == 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("auth: bcrypt cost %d outside [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &PasswordService{cost: cost}, nil
}

func newPasswordServiceWithCost(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// NewPasswordServiceForTest builds a service at the given (low) cost for
// tests in other packages. Never use it in production.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return newPasswordServiceWithCost(cost)
}

// Hash returns the bcrypt hash of plaintext.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > maxPasswordBytes {
		return "", fmt.Errorf("auth: password must be %d bytes or fewer", maxPasswordBytes)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches hash. A wrong password is
// ErrPasswordMismatch; a hash that isn't bcrypt at all is a different error.
//
// bcrypt.CompareHashAndPassword compares in constant time, so response
// timing doesn't reveal how close a guess was.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}

// NeedsRehash reports whether hash was made at a different cost than this
// service uses. Login rehashes such passwords so a cost change rolls out as
// users sign in.
func (p *PasswordService) NeedsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return true
	}
	return cost != p.cost
}
