// Package vault implementa el gate de IPs: consulta, conteo de intentos
// fallidos con auto-lock y lock/unlock administrativo.
package vault

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/authmanager/internal/audit"
	"github.com/dropDatabas3/authmanager/internal/domain/repository"
	dto "github.com/dropDatabas3/authmanager/internal/http/dto/vault"
	"github.com/dropDatabas3/authmanager/internal/metrics"
	"github.com/dropDatabas3/authmanager/internal/observability/logger"
)

// UnknownIP se usa cuando no hay IP en headers ni en el body.
const UnknownIP = "unknown"

const systemActor = "system"

// Tope de eventos por consulta.
const (
	defaultEventsLimit = 100
	maxEventsLimit     = 500
)

var (
	ErrMissingIP  = errors.New("ipAddress is required")
	ErrIPNotFound = errors.New("IP not found")
)

// Service opera sobre el estado de bloqueo por IP.
type Service interface {
	CheckIP(ctx context.Context, ip string) (*dto.IPStatusResponse, error)
	RecordAttempt(ctx context.Context, ip string, success bool) (*dto.IPStatusResponse, error)
	LockIP(ctx context.Context, ip, reason, actor string) (*dto.IPStatusResponse, error)
	UnlockIP(ctx context.Context, ip, actor string) (*dto.UnlockIPResponse, error)
	// ListEvents lista el log del vault; ip vacía = todas las IPs.
	ListEvents(ctx context.Context, ip string, limit int) (*dto.ListEventsResponse, error)
}

type Deps struct {
	Repo  repository.VaultRepository
	Audit *audit.Recorder
	// MaxAttempts fallidos antes del auto-lock. 0 lo desactiva.
	MaxAttempts int
	LockReason  string
	Now         func() time.Time
}

type service struct {
	deps Deps
}

func NewService(deps Deps) Service {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.LockReason == "" {
		deps.LockReason = "too many failed attempts"
	}
	return &service{deps: deps}
}

func statusOf(l *repository.IPLock) *dto.IPStatusResponse {
	switch {
	case l == nil:
		return &dto.IPStatusResponse{}
	case l.IsLocked:
		return &dto.IPStatusResponse{Locked: true, Reason: l.Reason, LockedAt: l.LockedAt}
	case l.Whitelisted():
		return &dto.IPStatusResponse{Whitelisted: true}
	default:
		return &dto.IPStatusResponse{}
	}
}

func observe(st *dto.IPStatusResponse) {
	switch {
	case st.Locked:
		metrics.VaultChecks.WithLabelValues("locked").Inc()
	case st.Whitelisted:
		metrics.VaultChecks.WithLabelValues("whitelisted").Inc()
	default:
		metrics.VaultChecks.WithLabelValues("open").Inc()
	}
}

func (s *service) CheckIP(ctx context.Context, ip string) (*dto.IPStatusResponse, error) {
	l, err := s.deps.Repo.GetLock(ctx, ip)
	if errors.Is(err, repository.ErrNotFound) {
		st := statusOf(nil)
		observe(st)
		return st, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load ip lock: %w", err)
	}
	st := statusOf(l)
	observe(st)
	return st, nil
}

// RecordAttempt cuenta un intento. Un éxito resetea el contador; un fallo
// puede bloquear la IP salvo que un admin la haya habilitado.
func (s *service) RecordAttempt(ctx context.Context, ip string, success bool) (*dto.IPStatusResponse, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("vault"),
		logger.Op("RecordAttempt"),
		logger.IP(ip),
	)

	if success {
		if err := s.deps.Repo.ResetAttempts(ctx, ip); err != nil {
			return nil, fmt.Errorf("reset attempts: %w", err)
		}
		return s.CheckIP(ctx, ip)
	}

	now := s.deps.Now()
	l, err := s.deps.Repo.RecordFailure(ctx, ip, now)
	if err != nil {
		return nil, fmt.Errorf("record failure: %w", err)
	}
	s.appendEvent(ctx, repository.VaultEvent{
		IPAddress: ip, Kind: repository.VaultEventAttemptFailed, Actor: systemActor,
		Detail: fmt.Sprintf("failed attempts: %d", l.FailedAttempts), CreatedAt: now,
	})

	if !l.IsLocked && !l.Whitelisted() && s.deps.MaxAttempts > 0 && l.FailedAttempts >= s.deps.MaxAttempts {
		l, err = s.lock(ctx, ip, s.deps.LockReason, systemActor, now)
		if err != nil {
			return nil, err
		}
		metrics.VaultLocks.WithLabelValues("auto").Inc()
		log.Warn("ip auto-locked", logger.Int("failed_attempts", s.deps.MaxAttempts))
	}
	return statusOf(l), nil
}

func (s *service) LockIP(ctx context.Context, ip, reason, actor string) (*dto.IPStatusResponse, error) {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return nil, ErrMissingIP
	}
	if reason == "" {
		reason = "locked by admin"
	}
	l, err := s.lock(ctx, ip, reason, actor, s.deps.Now())
	if err != nil {
		return nil, err
	}
	metrics.VaultLocks.WithLabelValues("admin").Inc()
	return statusOf(l), nil
}

func (s *service) lock(ctx context.Context, ip, reason, actor string, now time.Time) (*repository.IPLock, error) {
	l, err := s.deps.Repo.Lock(ctx, repository.LockIPInput{IPAddress: ip, Reason: reason, Now: now})
	if err != nil {
		return nil, fmt.Errorf("lock ip: %w", err)
	}
	s.appendEvent(ctx, repository.VaultEvent{
		IPAddress: ip, Kind: repository.VaultEventLocked, Actor: actor, Detail: reason, CreatedAt: now,
	})
	s.audit(ctx, actor, audit.ActionIPLocked, ip, map[string]any{"reason": reason})
	return l, nil
}

// UnlockIP habilita explícitamente la IP; desde ahí queda whitelisted.
func (s *service) UnlockIP(ctx context.Context, ip, actor string) (*dto.UnlockIPResponse, error) {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return nil, ErrMissingIP
	}

	now := s.deps.Now()
	l, err := s.deps.Repo.Unlock(ctx, repository.UnlockIPInput{IPAddress: ip, By: actor, Now: now})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrIPNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("unlock ip: %w", err)
	}

	s.appendEvent(ctx, repository.VaultEvent{
		IPAddress: ip, Kind: repository.VaultEventUnlocked, Actor: actor, CreatedAt: now,
	})
	s.audit(ctx, actor, audit.ActionIPUnlocked, ip, nil)

	unlockedAt := now
	if l.UnlockedAt != nil {
		unlockedAt = *l.UnlockedAt
	}
	return &dto.UnlockIPResponse{
		Success:    true,
		Message:    fmt.Sprintf("IP %s unlocked", ip),
		UnlockedAt: unlockedAt,
	}, nil
}

func (s *service) ListEvents(ctx context.Context, ip string, limit int) (*dto.ListEventsResponse, error) {
	if limit <= 0 {
		limit = defaultEventsLimit
	}
	if limit > maxEventsLimit {
		limit = maxEventsLimit
	}
	evs, err := s.deps.Repo.ListEvents(ctx, strings.TrimSpace(ip), limit)
	if err != nil {
		return nil, fmt.Errorf("list vault events: %w", err)
	}
	out := &dto.ListEventsResponse{Events: make([]dto.VaultEvent, 0, len(evs))}
	for _, ev := range evs {
		out.Events = append(out.Events, dto.VaultEvent{
			ID: ev.ID, IPAddress: ev.IPAddress, Kind: string(ev.Kind),
			Actor: ev.Actor, Detail: ev.Detail, CreatedAt: ev.CreatedAt,
		})
	}
	return out, nil
}

// Los logs de eventos y auditoría no hacen fallar la operación.
func (s *service) appendEvent(ctx context.Context, ev repository.VaultEvent) {
	if err := s.deps.Repo.AppendEvent(ctx, ev); err != nil {
		logger.From(ctx).Warn("vault event append failed", logger.IP(ev.IPAddress), logger.Err(err))
	}
}

func (s *service) audit(ctx context.Context, actor, action, ip string, meta map[string]any) {
	if s.deps.Audit == nil {
		return
	}
	_ = s.deps.Audit.Log(ctx, audit.Event{
		Actor: actor, Action: action, Resource: "ip", ResourceID: ip, Metadata: meta,
	})
}
