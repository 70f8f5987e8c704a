package users

import (
	"strings"
	"time"
	"unicode"

	errs "github.com/jrsteele09/go-truckdocs/internal/errors"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 8

// User is an account held by the local identity directory.
type User struct {
	ID           string    `json:"id,omitempty"`
	Email        string    `json:"email,omitempty"` // Also the sign in name, matched case-insensitively
	PasswordHash string    `json:"-"`
	DateJoined   time.Time `json:"date_joined,omitempty"` // Reported as identity creation metadata
	LastSignIn   time.Time `json:"last_sign_in,omitempty"`
	Disabled     bool      `json:"disabled,omitempty"`
}

var passwordRules = []struct {
	requirement string
	check       func(rune) bool
}{
	{"an uppercase letter", unicode.IsUpper},
	{"a lowercase letter", unicode.IsLower},
	{"a number", unicode.IsDigit},
}

// ValidatePasswordStrength applies the seed account password policy:
// at least MinPasswordLength characters with upper case, lower case and a digit.
func ValidatePasswordStrength(password string) error {
	if len(password) < MinPasswordLength {
		return errors.Wrapf(errs.ErrValidation, "password must be at least %d characters long", MinPasswordLength)
	}
	for _, rule := range passwordRules {
		if !strings.ContainsFunc(password, rule.check) {
			return errors.Wrapf(errs.ErrValidation, "password must contain %s", rule.requirement)
		}
	}
	return nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "[HashPassword]")
	}
	return string(hash), nil
}

func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
