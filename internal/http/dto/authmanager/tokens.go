// Package authmanager contiene los DTOs de la API que consumen los tenants.
package authmanager

import "time"

// SendVerificationRequest body de POST /send-verification.
type SendVerificationRequest struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	VerifyURL string `json:"verifyUrl,omitempty"`
}

// SendMagicLinkRequest body de POST /send-magic-link.
type SendMagicLinkRequest struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	LoginURL string `json:"loginUrl,omitempty"`
}

type SendTokenResponse struct {
	Success   bool      `json:"success"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// VerifyTokenRequest body de /verify-email y /verify-magic-link.
type VerifyTokenRequest struct {
	Token string `json:"token"`
}

type VerifyEmailResponse struct {
	Success bool   `json:"success"`
	UserID  string `json:"userId"`
	Email   string `json:"email"`
}

// MagicLinkUser es el usuario devuelto al canjear un magic link. Sin mapping
// sólo trae id y email (los del token).
type MagicLinkUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
}

type VerifyMagicLinkResponse struct {
	Success bool          `json:"success"`
	User    MagicLinkUser `json:"user"`
}
