package auth

import "errors"

var (
	InvalidLoginResponseErr   = errors.New("invalid login response")
	InvalidProfileResponseErr = errors.New("invalid profile response")
	InvalidEmailErr           = errors.New("enter a valid email address")
	PasswordRequiredErr       = errors.New("password is required")
	PasswordTooShortErr       = errors.New("password must be at least 8 characters long")
	FullNameTooShortErr       = errors.New("full name must be at least 3 characters long")
	UsernameTooShortErr       = errors.New("username must contain at least 3 characters")
	UsernameCharactersErr     = errors.New("username can only contain letters, numbers or _")
)
