package ports

import (
	"context"

	"github.com/99minutos/filestore/internal/core/domain"
)

// AuditPublisher accepts auth events without blocking the caller.
type AuditPublisher interface {
	Publish(event domain.AuthEvent)
}

// AuditSink records a single auth event.
type AuditSink interface {
	Record(ctx context.Context, event domain.AuthEvent) error
}
