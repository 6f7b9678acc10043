package oauthmodel

import "net/url"

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
	SessionID    string `json:"session_id"`
}

// LogoutRequest is the body of POST /auth/logout.
type LogoutRequest struct {
	SessionID string `json:"session_id"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

// LoginForm builds the form body of POST /auth/login. The backend reads the
// standard password-grant form, so the email travels as "username".
func LoginForm(email, password string) url.Values {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)
	return form
}
