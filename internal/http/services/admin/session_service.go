package admin

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dropDatabas3/authmanager/internal/audit"
	"github.com/dropDatabas3/authmanager/internal/observability/logger"
	"github.com/dropDatabas3/authmanager/internal/security/adminsession"
	"github.com/dropDatabas3/authmanager/internal/security/password"
)

var ErrInvalidLogin = errors.New("invalid email or password")

// Operator es un admin habilitado (email + hash argon2id).
type Operator struct {
	Email        string
	PasswordHash string
}

// SessionService emite y valida sesiones de operadores.
type SessionService interface {
	Login(ctx context.Context, email, plain string) (string, time.Time, error)
	Validate(raw string) (*adminsession.Claims, error)
}

type sessionService struct {
	operators map[string]string
	sessions  *adminsession.Manager
	audit     *audit.Recorder
}

func NewSessionService(ops []Operator, sessions *adminsession.Manager, rec *audit.Recorder) SessionService {
	m := make(map[string]string, len(ops))
	for _, op := range ops {
		m[strings.ToLower(strings.TrimSpace(op.Email))] = op.PasswordHash
	}
	return &sessionService{operators: m, sessions: sessions, audit: rec}
}

func (s *sessionService) Login(ctx context.Context, email, plain string) (string, time.Time, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("admin.session"), logger.Email(email))

	hash, ok := s.operators[email]
	if !ok || !password.Verify(plain, hash) {
		log.Warn("admin login rejected")
		return "", time.Time{}, ErrInvalidLogin
	}

	tok, exp, err := s.sessions.Issue(email)
	if err != nil {
		return "", time.Time{}, err
	}
	if s.audit != nil {
		_ = s.audit.Log(ctx, audit.Event{Actor: email, Action: audit.ActionAdminLogin, Resource: "admin", ResourceID: email})
	}
	return tok, exp, nil
}

func (s *sessionService) Validate(raw string) (*adminsession.Claims, error) {
	c, err := s.sessions.Parse(raw)
	if err != nil {
		return nil, err
	}
	if _, ok := s.operators[c.Email()]; !ok {
		// el operador fue dado de baja después de emitir la sesión
		return nil, adminsession.ErrInvalidSession
	}
	return c, nil
}
