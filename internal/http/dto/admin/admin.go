// Package admin contiene los DTOs de /admin/*.
package admin

import "time"

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type CreateDatabaseRequest struct {
	Name          string `json:"name"`
	AppName       string `json:"appName,omitempty"`
	ConnectionURL string `json:"connectionUrl,omitempty"`
	UserTable     string `json:"userTable,omitempty"`
}

// DatabaseResponse nunca incluye la credencial ni la URL de conexión.
type DatabaseResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	AppName       string    `json:"appName,omitempty"`
	UserTable     string    `json:"userTable,omitempty"`
	HasConnection bool      `json:"hasConnection"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
}

// CreateDatabaseResponse devuelve la service-role key en claro una única vez.
type CreateDatabaseResponse struct {
	Database       DatabaseResponse `json:"database"`
	ServiceRoleKey string           `json:"serviceRoleKey"`
}

type ListDatabasesResponse struct {
	Databases []DatabaseResponse `json:"databases"`
}

type SchemaMappingRequest struct {
	IDColumn            string `json:"idColumn"`
	EmailColumn         string `json:"emailColumn"`
	NameColumn          string `json:"nameColumn,omitempty"`
	UsernameColumn      string `json:"usernameColumn,omitempty"`
	RoleColumn          string `json:"roleColumn,omitempty"`
	EmailVerifiedColumn string `json:"emailVerifiedColumn,omitempty"`
}

type SchemaMappingResponse struct {
	DatabaseID string `json:"databaseId"`
	SchemaMappingRequest
	UpdatedAt time.Time `json:"updatedAt"`
}

type BanUserRequest struct {
	UserID    string     `json:"userId"`
	Reason    string     `json:"reason,omitempty"`
	Type      string     `json:"type,omitempty"` // temporary | permanent
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

type BanResponse struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Type      string     `json:"type"`
	Reason    string     `json:"reason,omitempty"`
	BannedAt  time.Time  `json:"bannedAt"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}
