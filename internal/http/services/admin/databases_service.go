package admin

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/authmanager/internal/audit"
	"github.com/dropDatabas3/authmanager/internal/domain/repository"
	dto "github.com/dropDatabas3/authmanager/internal/http/dto/admin"
	"github.com/dropDatabas3/authmanager/internal/observability/logger"
	"github.com/dropDatabas3/authmanager/internal/security/token"
)

// Prefijo de las service-role keys generadas.
const keyPrefix = "amk_"

var (
	ErrDatabaseNotFound     = errors.New("database not found")
	ErrMissingName          = errors.New("name is required")
	ErrInvalidConnectionURL = errors.New("connectionUrl must be a postgres:// URL")
	ErrInvalidMapping       = errors.New("idColumn and emailColumn are required")
	ErrMissingUserID        = errors.New("userId is required")
	ErrInvalidBan           = errors.New("temporary bans need a future expiresAt")
	ErrAlreadyBanned        = errors.New("user already has an active ban")
)

// MappingInvalidator descarta el mapping cacheado de una base.
type MappingInvalidator interface {
	Invalidate(ctx context.Context, databaseID string)
}

// PoolEvicter cierra el pool externo de una base.
type PoolEvicter interface {
	Evict(databaseID string) error
}

// DatabasesService es el onboarding de tenants.
type DatabasesService interface {
	Create(ctx context.Context, actor string, req dto.CreateDatabaseRequest) (*dto.CreateDatabaseResponse, error)
	List(ctx context.Context, activeOnly bool) (*dto.ListDatabasesResponse, error)
	Deactivate(ctx context.Context, actor, id string) error
	UpsertSchemaMapping(ctx context.Context, actor, id string, req dto.SchemaMappingRequest) (*dto.SchemaMappingResponse, error)
	BanUser(ctx context.Context, actor, id string, req dto.BanUserRequest) (*dto.BanResponse, error)
}

type DatabasesDeps struct {
	DAL      repository.DataAccessLayer
	Mappings MappingInvalidator // opcional
	Pools    PoolEvicter        // opcional
	Audit    *audit.Recorder
	Now      func() time.Time
}

type databasesService struct {
	deps DatabasesDeps
}

func NewDatabasesService(deps DatabasesDeps) DatabasesService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &databasesService{deps: deps}
}

func toDatabaseResponse(db *repository.ConnectedDatabase) dto.DatabaseResponse {
	return dto.DatabaseResponse{
		ID:            db.ID,
		Name:          db.Name,
		AppName:       db.AppName,
		UserTable:     db.UserTable,
		HasConnection: db.ConnectionURL != "",
		IsActive:      db.IsActive,
		CreatedAt:     db.CreatedAt,
	}
}

func (s *databasesService) Create(ctx context.Context, actor string, req dto.CreateDatabaseRequest) (*dto.CreateDatabaseResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, ErrMissingName
	}
	if req.ConnectionURL != "" {
		u, err := url.Parse(req.ConnectionURL)
		if err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			return nil, ErrInvalidConnectionURL
		}
	}

	raw, err := token.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate service role key: %w", err)
	}
	key := keyPrefix + raw

	db, err := s.deps.DAL.Databases().Create(ctx, repository.CreateConnectedDatabaseInput{
		Name:               req.Name,
		AppName:            strings.TrimSpace(req.AppName),
		ConnectionURL:      req.ConnectionURL,
		ServiceRoleKey:     key,
		ServiceRoleKeyHash: token.SHA256Hex(key),
		UserTable:          repository.UserTableOrDefault(req.UserTable),
	})
	if err != nil {
		return nil, fmt.Errorf("create database: %w", err)
	}

	s.audit(ctx, actor, audit.ActionDatabaseCreated, db.ID, map[string]any{"name": db.Name})
	return &dto.CreateDatabaseResponse{Database: toDatabaseResponse(db), ServiceRoleKey: key}, nil
}

func (s *databasesService) List(ctx context.Context, activeOnly bool) (*dto.ListDatabasesResponse, error) {
	dbs, err := s.deps.DAL.Databases().List(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list databases: %w", err)
	}
	out := &dto.ListDatabasesResponse{Databases: make([]dto.DatabaseResponse, 0, len(dbs))}
	for i := range dbs {
		out.Databases = append(out.Databases, toDatabaseResponse(&dbs[i]))
	}
	return out, nil
}

// Deactivate apaga la base y libera su pool y su mapping cacheado.
func (s *databasesService) Deactivate(ctx context.Context, actor, id string) error {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("admin.databases"), logger.DatabaseID(id))

	if err := s.deps.DAL.Databases().Deactivate(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrDatabaseNotFound
		}
		return fmt.Errorf("deactivate database: %w", err)
	}
	if s.deps.Mappings != nil {
		s.deps.Mappings.Invalidate(ctx, id)
	}
	if s.deps.Pools != nil {
		if err := s.deps.Pools.Evict(id); err != nil {
			log.Warn("tenant pool close failed", logger.Err(err))
		}
	}
	s.audit(ctx, actor, audit.ActionDatabaseDeactivated, id, nil)
	return nil
}

func (s *databasesService) requireDatabase(ctx context.Context, id string) (*repository.ConnectedDatabase, error) {
	db, err := s.deps.DAL.Databases().GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrDatabaseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load database: %w", err)
	}
	return db, nil
}

func (s *databasesService) UpsertSchemaMapping(ctx context.Context, actor, id string, req dto.SchemaMappingRequest) (*dto.SchemaMappingResponse, error) {
	if strings.TrimSpace(req.IDColumn) == "" || strings.TrimSpace(req.EmailColumn) == "" {
		return nil, ErrInvalidMapping
	}
	if _, err := s.requireDatabase(ctx, id); err != nil {
		return nil, err
	}

	m, err := s.deps.DAL.Mappings().Upsert(ctx, repository.AuthSchemaMapping{
		DatabaseID:          id,
		IDColumn:            strings.TrimSpace(req.IDColumn),
		EmailColumn:         strings.TrimSpace(req.EmailColumn),
		NameColumn:          strings.TrimSpace(req.NameColumn),
		UsernameColumn:      strings.TrimSpace(req.UsernameColumn),
		RoleColumn:          strings.TrimSpace(req.RoleColumn),
		EmailVerifiedColumn: strings.TrimSpace(req.EmailVerifiedColumn),
	})
	if err != nil {
		return nil, fmt.Errorf("upsert schema mapping: %w", err)
	}
	if s.deps.Mappings != nil {
		s.deps.Mappings.Invalidate(ctx, id)
	}
	s.audit(ctx, actor, audit.ActionMappingUpserted, id, nil)

	return &dto.SchemaMappingResponse{
		DatabaseID: m.DatabaseID,
		SchemaMappingRequest: dto.SchemaMappingRequest{
			IDColumn:            m.IDColumn,
			EmailColumn:         m.EmailColumn,
			NameColumn:          m.NameColumn,
			UsernameColumn:      m.UsernameColumn,
			RoleColumn:          m.RoleColumn,
			EmailVerifiedColumn: m.EmailVerifiedColumn,
		},
		UpdatedAt: m.UpdatedAt,
	}, nil
}

// BanUser: sin expiresAt el ban es permanente.
func (s *databasesService) BanUser(ctx context.Context, actor, id string, req dto.BanUserRequest) (*dto.BanResponse, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		return nil, ErrMissingUserID
	}

	typ := repository.BanType(strings.ToLower(strings.TrimSpace(req.Type)))
	if typ == "" {
		typ = repository.BanPermanent
		if req.ExpiresAt != nil {
			typ = repository.BanTemporary
		}
	}
	switch typ {
	case repository.BanPermanent:
		req.ExpiresAt = nil
	case repository.BanTemporary:
		if req.ExpiresAt == nil || !req.ExpiresAt.After(s.deps.Now()) {
			return nil, ErrInvalidBan
		}
	default:
		return nil, fmt.Errorf("%w: unknown ban type %q", ErrInvalidBan, req.Type)
	}

	if _, err := s.requireDatabase(ctx, id); err != nil {
		return nil, err
	}

	// un ban vencido se apaga acá igual que en el check; uno vigente es conflicto
	prev, err := s.deps.DAL.Bans().GetActive(ctx, id, req.UserID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("load active ban: %w", err)
	case prev.ExpiredAt(s.deps.Now()):
		if err := s.deps.DAL.Bans().Deactivate(ctx, prev.ID); err != nil {
			return nil, fmt.Errorf("deactivate expired ban: %w", err)
		}
	default:
		return nil, ErrAlreadyBanned
	}

	ban, err := s.deps.DAL.Bans().Create(ctx, repository.CreateUserBanInput{
		DatabaseID:     id,
		ExternalUserID: req.UserID,
		Reason:         strings.TrimSpace(req.Reason),
		Type:           typ,
		BannedBy:       actor,
		ExpiresAt:      req.ExpiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("create ban: %w", err)
	}
	s.audit(ctx, actor, audit.ActionUserBanned, id, map[string]any{"user_id": req.UserID, "type": string(typ)})

	return &dto.BanResponse{
		ID:        ban.ID,
		UserID:    ban.ExternalUserID,
		Type:      string(ban.Type),
		Reason:    ban.Reason,
		BannedAt:  ban.BannedAt,
		ExpiresAt: ban.ExpiresAt,
	}, nil
}

func (s *databasesService) audit(ctx context.Context, actor, action, id string, meta map[string]any) {
	if s.deps.Audit == nil {
		return
	}
	_ = s.deps.Audit.Log(ctx, audit.Event{Actor: actor, Action: action, Resource: "database", ResourceID: id, Metadata: meta})
}
