package auth

import (
	"time"

	"order-desk/internal/credentials"
)

// AuthError is an authentication failure with a stable code for clients
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e AuthError) Error() string {
	return e.Message
}

// Common authentication errors
var (
	ErrAuthenticationRequired = AuthError{Code: "AUTHENTICATION_REQUIRED", Message: "authentication required"}
	ErrInvalidMasterKey       = AuthError{Code: "INVALID_MASTER_KEY", Message: "Invalid master key"}
	ErrInvalidToken           = AuthError{Code: "INVALID_TOKEN", Message: "invalid or expired token"}
	ErrTokenExpired           = AuthError{Code: "TOKEN_EXPIRED", Message: "token has expired"}
	ErrSessionRevoked         = AuthError{Code: "SESSION_REVOKED", Message: "session has been revoked"}
)

// Session is a logged-in operator. Cipher opens the stored credentials.
type Session struct {
	ID        string
	ExpiresAt time.Time
	Cipher    *credentials.Cipher
}

// LoginResult is returned to the client after a successful login
type LoginResult struct {
	OK        bool   `json:"ok"`
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}
