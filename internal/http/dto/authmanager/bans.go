package authmanager

import "time"

// CheckBanResponse respuesta de GET /check-ban.
type CheckBanResponse struct {
	Banned    bool       `json:"banned"`
	Reason    string     `json:"reason,omitempty"`
	Type      string     `json:"type,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	BannedAt  *time.Time `json:"bannedAt,omitempty"`
}
