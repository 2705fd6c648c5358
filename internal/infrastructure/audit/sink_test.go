package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/99minutos/filestore/internal/api/metrics"
	"github.com/99minutos/filestore/internal/core/domain"
)

func TestLogSink_Record(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(zerolog.New(&buf))
	before := testutil.ToFloat64(metrics.AuthEventsTotal.WithLabelValues(string(domain.EventSignInFailure)))

	err := sink.Record(context.Background(), domain.AuthEvent{
		Kind:       domain.EventSignInFailure,
		Identifier: "ana@example.com",
		Reason:     "password_mismatch",
		At:         time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "audit", line["component"])
	assert.Equal(t, "signin.failure", line["event"])
	assert.Equal(t, "ana@example.com", line["identifier"])
	assert.Equal(t, "password_mismatch", line["reason"])
	assert.NotContains(t, line, "user_id")

	after := testutil.ToFloat64(metrics.AuthEventsTotal.WithLabelValues(string(domain.EventSignInFailure)))
	assert.Equal(t, before+1, after)
}

func TestLogSink_SuccessIsInfo(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(zerolog.New(&buf))

	require.NoError(t, sink.Record(context.Background(), domain.AuthEvent{Kind: domain.EventSignInSuccess, UserID: "7"}))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "7", line["user_id"])
}
