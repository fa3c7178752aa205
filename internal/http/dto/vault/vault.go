// Package vault contiene los DTOs del gate de IPs.
package vault

import "time"

type CheckIPRequest struct {
	IPAddress string `json:"ipAddress,omitempty"`
}

type RecordAttemptRequest struct {
	IPAddress string `json:"ipAddress,omitempty"`
	Success   bool   `json:"success"`
}

// IPStatusResponse estado de una IP.
type IPStatusResponse struct {
	Locked      bool       `json:"locked"`
	Whitelisted bool       `json:"whitelisted"`
	Reason      string     `json:"reason,omitempty"`
	LockedAt    *time.Time `json:"lockedAt,omitempty"`
}

type UnlockIPRequest struct {
	IPAddress string `json:"ipAddress"`
}

type UnlockIPResponse struct {
	Success    bool      `json:"success"`
	Message    string    `json:"message"`
	UnlockedAt time.Time `json:"unlockedAt"`
}

type LockIPRequest struct {
	IPAddress string `json:"ipAddress"`
	Reason    string `json:"reason,omitempty"`
}

// VaultEvent entrada del log del vault, más reciente primero.
type VaultEvent struct {
	ID        string    `json:"id"`
	IPAddress string    `json:"ipAddress"`
	Kind      string    `json:"kind"`
	Actor     string    `json:"actor,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type ListEventsResponse struct {
	Events []VaultEvent `json:"events"`
}
