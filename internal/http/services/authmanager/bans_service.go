package authmanager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/authmanager/internal/domain/repository"
	dto "github.com/dropDatabas3/authmanager/internal/http/dto/authmanager"
	"github.com/dropDatabas3/authmanager/internal/observability/logger"
)

var ErrMissingUserID = errors.New("userId is required")

// BansService responde si un usuario del tenant está baneado.
type BansService interface {
	Check(ctx context.Context, databaseID, userID string) (*dto.CheckBanResponse, error)
}

type bansService struct {
	bans repository.UserBanRepository
	now  func() time.Time
}

func NewBansService(bans repository.UserBanRepository, now func() time.Time) BansService {
	if now == nil {
		now = time.Now
	}
	return &bansService{bans: bans, now: now}
}

// Check desactiva de forma perezosa los bans temporales vencidos.
func (s *bansService) Check(ctx context.Context, databaseID, userID string) (*dto.CheckBanResponse, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrMissingUserID
	}

	ban, err := s.bans.GetActive(ctx, databaseID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return &dto.CheckBanResponse{Banned: false}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load ban: %w", err)
	}

	if ban.ExpiredAt(s.now()) {
		if derr := s.bans.Deactivate(ctx, ban.ID); derr != nil {
			logger.From(ctx).Warn("could not deactivate expired ban",
				logger.Component("authmanager.bans"),
				logger.DatabaseID(databaseID),
				logger.ExternalUserID(userID),
				logger.Err(derr),
			)
		}
		return &dto.CheckBanResponse{Banned: false}, nil
	}

	bannedAt := ban.BannedAt
	return &dto.CheckBanResponse{
		Banned:    true,
		Reason:    ban.Reason,
		Type:      string(ban.Type),
		ExpiresAt: ban.ExpiresAt,
		BannedAt:  &bannedAt,
	}, nil
}
