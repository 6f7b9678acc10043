package auth

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/jrsteele09/taskflow-client/oauthmodel"
)

const (
	minPasswordLength = 8
	minNameLength     = 3
)

// Validator checks user input before it is sent, so obviously bad requests
// fail locally with a readable message.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// ValidateCredentials checks login input.
func (v *Validator) ValidateCredentials(email, password string) error {
	if err := v.ValidateEmail(email); err != nil {
		return err
	}
	if password == "" {
		return PasswordRequiredErr
	}
	return nil
}

// ValidateRegistration checks a public signup. The backend assigns the
// developer role; the request carries no role.
func (v *Validator) ValidateRegistration(req oauthmodel.RegisterRequest) error {
	if utf8.RuneCountInString(strings.TrimSpace(req.FullName)) < minNameLength {
		return FullNameTooShortErr
	}
	if err := v.ValidateUsername(req.Username); err != nil {
		return err
	}
	if err := v.ValidateEmail(req.Email); err != nil {
		return err
	}
	if utf8.RuneCountInString(req.Password) < minPasswordLength {
		return PasswordTooShortErr
	}
	return nil
}

func (v *Validator) ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(addr.Address, "@") {
		return InvalidEmailErr
	}
	return nil
}

func (v *Validator) ValidateUsername(username string) error {
	if len(username) < minNameLength {
		return UsernameTooShortErr
	}
	for _, r := range username {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return UsernameCharactersErr
		}
	}
	return nil
}
