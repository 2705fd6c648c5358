// Package audit records auth events as structured log lines and counters.
package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/filestore/internal/api/metrics"
	"github.com/99minutos/filestore/internal/core/domain"
)

// LogSink writes every event to a dedicated zerolog logger.
type LogSink struct {
	log zerolog.Logger
}

func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log.With().Str("component", "audit").Logger()}
}

func (s *LogSink) Record(_ context.Context, ev domain.AuthEvent) error {
	metrics.AuthEventsTotal.WithLabelValues(string(ev.Kind)).Inc()

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	level := zerolog.InfoLevel
	switch ev.Kind {
	case domain.EventSignInFailure, domain.EventSessionRejected:
		level = zerolog.WarnLevel
	case domain.EventSignInThrottled:
		level = zerolog.ErrorLevel
	}

	e := s.log.WithLevel(level).
		Str("event", string(ev.Kind)).
		Time("at", at.UTC())
	if ev.UserID != "" {
		e = e.Str("user_id", ev.UserID)
	}
	if ev.Identifier != "" {
		e = e.Str("identifier", ev.Identifier)
	}
	if ev.Reason != "" {
		e = e.Str("reason", ev.Reason)
	}
	e.Msg("auth event")
	return nil
}
