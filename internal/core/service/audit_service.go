package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quizhub/auth-service/internal/core/domain"
	"github.com/quizhub/auth-service/internal/core/ports"
	"github.com/quizhub/auth-service/internal/pkg/metrics"
)

type auditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

// NewAuditService returns an AuditService that stamps each event with a
// fresh id and persists it.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, log: log}
}

func (s *auditService) Record(ctx context.Context, in ports.AuthEventInput) error {
	start := time.Now()

	occurred := in.OccurredAt
	if occurred.IsZero() {
		occurred = start.UTC()
	}

	event := &domain.AuthEvent{
		ID:         uuid.NewString(),
		Type:       in.Type,
		Username:   in.Username,
		RemoteIP:   in.RemoteIP,
		Detail:     in.Detail,
		OccurredAt: occurred,
	}

	if err := s.repo.Insert(ctx, event); err != nil {
		metrics.AuditEventsTotal.WithLabelValues(string(in.Type), "error").Inc()
		return fmt.Errorf("record audit event: %w", err)
	}

	metrics.AuditEventsTotal.WithLabelValues(string(in.Type), "stored").Inc()
	metrics.AuditWriteDuration.Observe(time.Since(start).Seconds())

	s.log.Debug().
		Str("event_id", event.ID).
		Str("type", string(event.Type)).
		Str("username", event.Username).
		Msg("audit event stored")

	return nil
}
