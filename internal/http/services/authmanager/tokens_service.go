package authmanager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/authmanager/internal/domain/repository"
	dto "github.com/dropDatabas3/authmanager/internal/http/dto/authmanager"
	"github.com/dropDatabas3/authmanager/internal/email"
	"github.com/dropDatabas3/authmanager/internal/infra/userdb"
	"github.com/dropDatabas3/authmanager/internal/metrics"
	"github.com/dropDatabas3/authmanager/internal/observability/logger"
	"github.com/dropDatabas3/authmanager/internal/security/token"
)

// Errores de emisión y canje. Los mensajes son los que ve el tenant.
var (
	ErrMissingFields       = errors.New("userId and email are required")
	ErrMissingToken        = errors.New("token is required")
	ErrInvalidToken        = errors.New("invalid token")
	ErrInvalidTokenType    = errors.New("invalid token type")
	ErrTokenUsed           = errors.New("token already used")
	ErrTokenExpired        = errors.New("token expired")
	ErrTokenTenantMismatch = errors.New("token does not belong to this database")
	ErrUserNotFound        = errors.New("user not found")
	// ErrSendFailed: no se pudo preparar el envío (p.ej. la base desapareció).
	ErrSendFailed = errors.New("failed to send email")
	// ErrMailDispatch: el transporte falló. El token ya quedó persistido.
	ErrMailDispatch = errors.New("email dispatch failed")
)

// Mailer es lo que el service necesita del paquete email.
type Mailer interface {
	SendVerification(ctx context.Context, msg email.Message) error
	SendMagicLink(ctx context.Context, msg email.Message) error
}

// IssueInput datos para emitir un token. LinkURL vacío usa el default configurado.
type IssueInput struct {
	DatabaseID string
	UserID     string
	Email      string
	LinkURL    string
}

// TokensService emite y canjea tokens de un solo uso.
type TokensService interface {
	IssueVerificationToken(ctx context.Context, in IssueInput) (time.Time, error)
	IssueMagicLinkToken(ctx context.Context, in IssueInput) (time.Time, error)
	VerifyEmailToken(ctx context.Context, databaseID, rawToken string) (*dto.VerifyEmailResponse, error)
	VerifyMagicLinkToken(ctx context.Context, databaseID, rawToken string) (*dto.VerifyMagicLinkResponse, error)
}

type TokensDeps struct {
	Databases repository.ConnectedDatabaseRepository
	Tokens    repository.AuthTokenRepository
	Resolver  SchemaResolver
	Users     UserStores // nil = nunca se toca la base del tenant
	Mailer    Mailer
	Now       func() time.Time
}

type tokensService struct {
	deps TokensDeps
}

func NewTokensService(deps TokensDeps) TokensService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &tokensService{deps: deps}
}

const componentTokens = "authmanager.tokens"

func (s *tokensService) IssueVerificationToken(ctx context.Context, in IssueInput) (time.Time, error) {
	return s.issue(ctx, repository.TokenEmailVerification, in, s.deps.Mailer.SendVerification)
}

func (s *tokensService) IssueMagicLinkToken(ctx context.Context, in IssueInput) (time.Time, error) {
	return s.issue(ctx, repository.TokenMagicLink, in, s.deps.Mailer.SendMagicLink)
}

func (s *tokensService) issue(ctx context.Context, typ repository.TokenType, in IssueInput, send func(context.Context, email.Message) error) (time.Time, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component(componentTokens),
		logger.Op("Issue"),
		logger.TokenType(string(typ)),
		logger.DatabaseID(in.DatabaseID),
	)

	in.UserID = strings.TrimSpace(in.UserID)
	in.Email = strings.TrimSpace(in.Email)
	if in.UserID == "" || in.Email == "" {
		return time.Time{}, ErrMissingFields
	}

	raw, err := token.Generate()
	if err != nil {
		metrics.TokensIssued.WithLabelValues(string(typ), "error").Inc()
		return time.Time{}, fmt.Errorf("generate token: %w", err)
	}

	ttl := typ.TTL()
	expiresAt := s.deps.Now().Add(ttl)
	tok, err := s.deps.Tokens.Create(ctx, repository.CreateAuthTokenInput{
		DatabaseID:     in.DatabaseID,
		ExternalUserID: in.UserID,
		Email:          in.Email,
		TokenHash:      token.SHA256Hex(raw),
		Type:           typ,
		ExpiresAt:      expiresAt,
	})
	if err != nil {
		metrics.TokensIssued.WithLabelValues(string(typ), "error").Inc()
		return time.Time{}, fmt.Errorf("store token: %w", err)
	}
	log = log.With(logger.TokenID(tok.ID))

	db, err := s.deps.Databases.GetByID(ctx, in.DatabaseID)
	if err != nil {
		log.Warn("tenant lookup failed before sending", logger.Err(err))
		metrics.TokensIssued.WithLabelValues(string(typ), "error").Inc()
		return time.Time{}, ErrSendFailed
	}

	msg := email.Message{
		To:        in.Email,
		Tenant:    tenantDisplayName(db),
		LinkBase:  in.LinkURL,
		Token:     raw,
		ExpiresIn: ttl,
	}
	if err := send(ctx, msg); err != nil {
		log.Error("mail dispatch failed", logger.Err(err))
		metrics.TokensIssued.WithLabelValues(string(typ), "mail_failed").Inc()
		return time.Time{}, fmt.Errorf("%w: %v", ErrMailDispatch, err)
	}

	metrics.TokensIssued.WithLabelValues(string(typ), "sent").Inc()
	log.Info("token issued")
	return tok.ExpiresAt, nil
}

func tenantDisplayName(db *repository.ConnectedDatabase) string {
	if db.AppName != "" {
		return db.AppName
	}
	return db.Name
}

func (s *tokensService) VerifyEmailToken(ctx context.Context, databaseID, rawToken string) (*dto.VerifyEmailResponse, error) {
	typ := repository.TokenEmailVerification
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component(componentTokens),
		logger.Op("VerifyEmailToken"),
		logger.DatabaseID(databaseID),
	)

	now := s.deps.Now()
	tok, err := s.redeemable(ctx, databaseID, rawToken, typ, now)
	if err != nil {
		return nil, err
	}
	log = log.With(logger.TokenID(tok.ID), logger.ExternalUserID(tok.ExternalUserID))

	db, m, err := s.deps.Resolver.Resolve(ctx, databaseID)
	if err != nil {
		metrics.TokensRedeemed.WithLabelValues(string(typ), "error").Inc()
		return nil, err
	}

	switch {
	case !m.HasEmailVerified():
		log.Debug("no email verified column mapped, skipping tenant update")
	case db.ConnectionURL == "" || s.deps.Users == nil:
		log.Warn("email verified column mapped but tenant has no connection, skipping update")
	default:
		users, err := s.deps.Users.ForDatabase(ctx, databaseID)
		if err != nil {
			metrics.TokensRedeemed.WithLabelValues(string(typ), "error").Inc()
			return nil, fmt.Errorf("open tenant database: %w", err)
		}
		n, err := users.UpdateUserField(ctx, db.UserTable, *m, tok.ExternalUserID, m.EmailVerifiedColumn, true)
		if err != nil {
			metrics.TokensRedeemed.WithLabelValues(string(typ), "error").Inc()
			return nil, fmt.Errorf("mark email verified: %w", err)
		}
		if n == 0 {
			log.Warn("email verified update matched no rows")
		}
	}

	if err := s.markUsed(ctx, tok, now); err != nil {
		return nil, err
	}

	log.Info("email verified")
	return &dto.VerifyEmailResponse{Success: true, UserID: tok.ExternalUserID, Email: tok.Email}, nil
}

func (s *tokensService) VerifyMagicLinkToken(ctx context.Context, databaseID, rawToken string) (*dto.VerifyMagicLinkResponse, error) {
	typ := repository.TokenMagicLink
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component(componentTokens),
		logger.Op("VerifyMagicLinkToken"),
		logger.DatabaseID(databaseID),
	)

	now := s.deps.Now()
	tok, err := s.redeemable(ctx, databaseID, rawToken, typ, now)
	if err != nil {
		return nil, err
	}
	log = log.With(logger.TokenID(tok.ID), logger.ExternalUserID(tok.ExternalUserID))

	db, m, err := s.deps.Resolver.Resolve(ctx, databaseID)
	if err != nil {
		metrics.TokensRedeemed.WithLabelValues(string(typ), "error").Inc()
		return nil, err
	}

	user := dto.MagicLinkUser{ID: tok.ExternalUserID, Email: tok.Email}
	if m != nil && db.ConnectionURL != "" && s.deps.Users != nil {
		users, err := s.deps.Users.ForDatabase(ctx, databaseID)
		if err != nil {
			metrics.TokensRedeemed.WithLabelValues(string(typ), "error").Inc()
			return nil, fmt.Errorf("open tenant database: %w", err)
		}
		u, err := users.GetUserByID(ctx, db.UserTable, *m, tok.ExternalUserID)
		if errors.Is(err, userdb.ErrUserNotFound) {
			metrics.TokensRedeemed.WithLabelValues(string(typ), "user_not_found").Inc()
			return nil, ErrUserNotFound
		}
		if err != nil {
			metrics.TokensRedeemed.WithLabelValues(string(typ), "error").Inc()
			return nil, fmt.Errorf("fetch tenant user: %w", err)
		}
		user = dto.MagicLinkUser{ID: u.ID, Email: u.Email, Name: u.Name, Username: u.Username, Role: u.Role}
	}

	if err := s.markUsed(ctx, tok, now); err != nil {
		return nil, err
	}

	log.Info("magic link redeemed")
	return &dto.VerifyMagicLinkResponse{Success: true, User: user}, nil
}

// redeemable aplica los chequeos de canje en orden: existe, tipo, sin usar,
// vigente y de esta base.
func (s *tokensService) redeemable(ctx context.Context, databaseID, rawToken string, want repository.TokenType, now time.Time) (*repository.AuthToken, error) {
	result := func(r string) { metrics.TokensRedeemed.WithLabelValues(string(want), r).Inc() }

	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		result("invalid")
		return nil, ErrMissingToken
	}

	tok, err := s.deps.Tokens.GetByHash(ctx, token.SHA256Hex(rawToken))
	if errors.Is(err, repository.ErrNotFound) {
		result("invalid")
		return nil, ErrInvalidToken
	}
	if err != nil {
		result("error")
		return nil, fmt.Errorf("load token: %w", err)
	}

	switch {
	case tok.Type != want:
		result("wrong_type")
		return nil, ErrInvalidTokenType
	case tok.Used():
		result("used")
		return nil, ErrTokenUsed
	case tok.ExpiredAt(now):
		result("expired")
		return nil, ErrTokenExpired
	case tok.DatabaseID != databaseID:
		result("mismatch")
		logger.From(ctx).Warn("token presented by another database",
			logger.TokenID(tok.ID), logger.DatabaseID(databaseID))
		return nil, ErrTokenTenantMismatch
	}
	return tok, nil
}

func (s *tokensService) markUsed(ctx context.Context, tok *repository.AuthToken, now time.Time) error {
	err := s.deps.Tokens.MarkUsed(ctx, repository.MarkTokenUsedInput{ID: tok.ID, DatabaseID: tok.DatabaseID, Now: now})
	if errors.Is(err, repository.ErrTokenAlreadyUsed) {
		metrics.TokensRedeemed.WithLabelValues(string(tok.Type), "used").Inc()
		return ErrTokenUsed
	}
	if err != nil {
		metrics.TokensRedeemed.WithLabelValues(string(tok.Type), "error").Inc()
		return fmt.Errorf("mark token used: %w", err)
	}
	metrics.TokensRedeemed.WithLabelValues(string(tok.Type), "ok").Inc()
	return nil
}
