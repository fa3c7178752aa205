package repository

import "context"

// DataAccessLayer agrupa los repositorios de un backend concreto.
type DataAccessLayer interface {
	Databases() ConnectedDatabaseRepository
	Mappings() SchemaMappingRepository
	Tokens() AuthTokenRepository
	Bans() UserBanRepository
	Vault() VaultRepository
	Audit() AuditRepository

	Ping(ctx context.Context) error
	Close() error
}
