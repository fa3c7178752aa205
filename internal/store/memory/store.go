// Package memory implementa repository.DataAccessLayer en memoria. Respeta
// las mismas garantías que el adapter pg (unicidad de hashes, canje
// condicional) y se usa con storage.driver=memory y en tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/authmanager/internal/domain/repository"
)

// Store guarda todo detrás de un único mutex; el volumen es chico.
type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	databases map[string]*dbRecord
	mappings  map[string]repository.AuthSchemaMapping
	tokens    map[string]*repository.AuthToken // por hash
	bans      map[string]*repository.AuthUserBan
	locks     map[string]*repository.IPLock
	events    []repository.VaultEvent
	audit     []repository.AuditEntry
}

type dbRecord struct {
	db      repository.ConnectedDatabase
	keyHash string
}

var _ repository.DataAccessLayer = (*Store)(nil)

func New() *Store {
	return &Store{
		now:       time.Now,
		databases: map[string]*dbRecord{},
		mappings:  map[string]repository.AuthSchemaMapping{},
		tokens:    map[string]*repository.AuthToken{},
		bans:      map[string]*repository.AuthUserBan{},
		locks:     map[string]*repository.IPLock{},
	}
}

// SetClock fija el reloj usado para timestamps propios (created_at, etc).
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *Store) Databases() repository.ConnectedDatabaseRepository { return (*databaseRepo)(s) }
func (s *Store) Mappings() repository.SchemaMappingRepository      { return (*mappingRepo)(s) }
func (s *Store) Tokens() repository.AuthTokenRepository            { return (*tokenRepo)(s) }
func (s *Store) Bans() repository.UserBanRepository                { return (*banRepo)(s) }
func (s *Store) Vault() repository.VaultRepository                 { return (*vaultRepo)(s) }
func (s *Store) Audit() repository.AuditRepository                 { return (*auditRepo)(s) }

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

// ─── connected databases ───

type databaseRepo Store

func (r *databaseRepo) Create(_ context.Context, in repository.CreateConnectedDatabaseInput) (*repository.ConnectedDatabase, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	rec := &dbRecord{
		db: repository.ConnectedDatabase{
			ID:             uuid.NewString(),
			Name:           in.Name,
			AppName:        in.AppName,
			ConnectionURL:  in.ConnectionURL,
			ServiceRoleKey: in.ServiceRoleKey,
			UserTable:      repository.UserTableOrDefault(in.UserTable),
			IsActive:       true,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		keyHash: in.ServiceRoleKeyHash,
	}
	s.databases[rec.db.ID] = rec
	out := rec.db
	return &out, nil
}

func (r *databaseRepo) GetByID(_ context.Context, id string) (*repository.ConnectedDatabase, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.databases[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := rec.db
	return &out, nil
}

func (r *databaseRepo) FindActiveByCredentialHash(_ context.Context, keyHash string) (*repository.ConnectedDatabase, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *repository.ConnectedDatabase
	for _, rec := range s.databases {
		if !rec.db.IsActive || rec.keyHash != keyHash {
			continue
		}
		if found != nil {
			return nil, repository.ErrAmbiguousCredential
		}
		db := rec.db
		found = &db
	}
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (r *databaseRepo) List(_ context.Context, activeOnly bool) ([]repository.ConnectedDatabase, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]repository.ConnectedDatabase, 0, len(s.databases))
	for _, rec := range s.databases {
		if activeOnly && !rec.db.IsActive {
			continue
		}
		out = append(out, rec.db)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *databaseRepo) Deactivate(_ context.Context, id string) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.databases[id]
	if !ok {
		return repository.ErrNotFound
	}
	rec.db.IsActive = false
	rec.db.UpdatedAt = s.now()
	return nil
}

// ─── schema mappings ───

type mappingRepo Store

func (r *mappingRepo) Get(_ context.Context, databaseID string) (*repository.AuthSchemaMapping, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.mappings[databaseID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (r *mappingRepo) Upsert(_ context.Context, m repository.AuthSchemaMapping) (*repository.AuthSchemaMapping, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.databases[m.DatabaseID]; !ok {
		return nil, repository.ErrNotFound
	}
	m.UpdatedAt = s.now()
	s.mappings[m.DatabaseID] = m
	return &m, nil
}

// ─── tokens ───

type tokenRepo Store

func (r *tokenRepo) Create(_ context.Context, in repository.CreateAuthTokenInput) (*repository.AuthToken, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.tokens[in.TokenHash]; dup {
		return nil, repository.ErrConflict
	}
	t := &repository.AuthToken{
		ID:             uuid.NewString(),
		DatabaseID:     in.DatabaseID,
		ExternalUserID: in.ExternalUserID,
		Email:          in.Email,
		TokenHash:      in.TokenHash,
		Type:           in.Type,
		ExpiresAt:      in.ExpiresAt,
		CreatedAt:      s.now(),
	}
	s.tokens[in.TokenHash] = t
	out := *t
	return &out, nil
}

func (r *tokenRepo) GetByHash(_ context.Context, tokenHash string) (*repository.AuthToken, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tokens[tokenHash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *t
	if t.UsedAt != nil {
		u := *t.UsedAt
		out.UsedAt = &u
	}
	return &out, nil
}

func (r *tokenRepo) MarkUsed(_ context.Context, in repository.MarkTokenUsedInput) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tokens {
		if t.ID != in.ID {
			continue
		}
		if t.UsedAt != nil || t.DatabaseID != in.DatabaseID || in.Now.After(t.ExpiresAt) {
			return repository.ErrTokenAlreadyUsed
		}
		now := in.Now
		t.UsedAt = &now
		return nil
	}
	return repository.ErrTokenAlreadyUsed
}

// ─── bans ───

type banRepo Store

func (r *banRepo) Create(_ context.Context, in repository.CreateUserBanInput) (*repository.AuthUserBan, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	b := &repository.AuthUserBan{
		ID:             uuid.NewString(),
		DatabaseID:     in.DatabaseID,
		ExternalUserID: in.ExternalUserID,
		Reason:         in.Reason,
		Type:           in.Type,
		BannedBy:       in.BannedBy,
		BannedAt:       s.now(),
		ExpiresAt:      in.ExpiresAt,
		IsActive:       true,
	}
	s.bans[b.ID] = b
	out := *b
	return &out, nil
}

func (r *banRepo) GetActive(_ context.Context, databaseID, externalUserID string) (*repository.AuthUserBan, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *repository.AuthUserBan
	for _, b := range s.bans {
		if !b.IsActive || b.DatabaseID != databaseID || b.ExternalUserID != externalUserID {
			continue
		}
		if latest == nil || b.BannedAt.After(latest.BannedAt) {
			latest = b
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	out := *latest
	return &out, nil
}

func (r *banRepo) Deactivate(_ context.Context, id string) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bans[id]
	if !ok {
		return repository.ErrNotFound
	}
	b.IsActive = false
	return nil
}

// ─── vault ───

type vaultRepo Store

func copyLock(l *repository.IPLock) *repository.IPLock {
	out := *l
	return &out
}

func (r *vaultRepo) GetLock(_ context.Context, ip string) (*repository.IPLock, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.locks[ip]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyLock(l), nil
}

func (r *vaultRepo) RecordFailure(_ context.Context, ip string, now time.Time) (*repository.IPLock, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[ip]
	if !ok {
		l = &repository.IPLock{IPAddress: ip}
		s.locks[ip] = l
	}
	l.FailedAttempts++
	t := now
	l.LastAttemptAt = &t
	l.UpdatedAt = now
	return copyLock(l), nil
}

func (r *vaultRepo) ResetAttempts(_ context.Context, ip string) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.locks[ip]; ok {
		l.FailedAttempts = 0
		l.UpdatedAt = s.now()
	}
	return nil
}

func (r *vaultRepo) Lock(_ context.Context, in repository.LockIPInput) (*repository.IPLock, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[in.IPAddress]
	if !ok {
		l = &repository.IPLock{IPAddress: in.IPAddress}
		s.locks[in.IPAddress] = l
	}
	t := in.Now
	l.IsLocked = true
	l.Reason = in.Reason
	l.LockedAt = &t
	l.UnlockedAt = nil
	l.UnlockedBy = ""
	l.UpdatedAt = in.Now
	return copyLock(l), nil
}

func (r *vaultRepo) Unlock(_ context.Context, in repository.UnlockIPInput) (*repository.IPLock, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[in.IPAddress]
	if !ok {
		return nil, repository.ErrNotFound
	}
	t := in.Now
	l.IsLocked = false
	l.FailedAttempts = 0
	l.UnlockedAt = &t
	l.UnlockedBy = in.By
	l.UpdatedAt = in.Now
	return copyLock(l), nil
}

func (r *vaultRepo) AppendEvent(_ context.Context, ev repository.VaultEvent) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = s.now()
	}
	s.events = append(s.events, ev)
	return nil
}

func (r *vaultRepo) ListEvents(_ context.Context, ip string, limit int) ([]repository.VaultEvent, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []repository.VaultEvent
	// más recientes primero
	for i := len(s.events) - 1; i >= 0; i-- {
		ev := s.events[i]
		if ip != "" && !strings.EqualFold(ev.IPAddress, ip) {
			continue
		}
		out = append(out, ev)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// ─── audit ───

type auditRepo Store

func (r *auditRepo) Append(_ context.Context, e repository.AuditEntry) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	s.audit = append(s.audit, e)
	return nil
}

// AuditEntries devuelve una copia del log (tests).
func (s *Store) AuditEntries() []repository.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]repository.AuditEntry(nil), s.audit...)
}
