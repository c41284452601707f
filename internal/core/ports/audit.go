package ports

import (
	"context"
	"time"

	"github.com/quizhub/auth-service/internal/core/domain"
)

// AuthEventInput is the DTO handed from AuthService to the audit pipeline.
type AuthEventInput struct {
	Type       domain.AuthEventType
	Username   string
	RemoteIP   string
	Detail     string
	OccurredAt time.Time
}

// AuditPublisher accepts events for asynchronous persistence. Publish must
// not block the caller.
type AuditPublisher interface {
	Publish(event AuthEventInput)
}

// AuditRepository stores audit events.
type AuditRepository interface {
	Insert(ctx context.Context, event *domain.AuthEvent) error
}

// AuditService persists a single audit event.
type AuditService interface {
	Record(ctx context.Context, event AuthEventInput) error
}
