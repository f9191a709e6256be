package kafka_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delivery-tracking/internal/transport/kafka"
)

func decode(t *testing.T, raw string) kafka.EventDTO {
	t.Helper()
	var dto kafka.EventDTO
	require.NoError(t, json.Unmarshal([]byte(raw), &dto))
	return dto
}

func TestToDomain(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name       string
		raw        string
		wantID     string
		wantStatus string
		wantAt     time.Time
	}{
		{
			name:       "trims and lowercases",
			raw:        `{"order_id":"  o-1 ","status":" Cancelled "}`,
			wantID:     "o-1",
			wantStatus: "cancelled",
		},
		{
			name:       "occurred_at in utc",
			raw:        `{"order_id":"o-2","status":"ready","occurred_at":"2025-03-04T13:00:00+03:00"}`,
			wantID:     "o-2",
			wantStatus: "ready",
			wantAt:     at,
		},
		{
			name:       "created_at fallback",
			raw:        `{"order_id":"o-3","status":"created","created_at":"2025-03-04T10:00:00Z"}`,
			wantID:     "o-3",
			wantStatus: "created",
			wantAt:     at,
		},
		{
			name:       "occurred_at wins",
			raw:        `{"order_id":"o-4","status":"created","occurred_at":"2025-03-04T10:00:00Z","created_at":"2020-01-01T00:00:00Z"}`,
			wantID:     "o-4",
			wantStatus: "created",
			wantAt:     at,
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ev := kafka.ToDomain(decode(t, tc.raw))
			assert.Equal(t, tc.wantID, ev.OrderID)
			assert.Equal(t, tc.wantStatus, ev.Status)
			assert.True(t, tc.wantAt.Equal(ev.OccurredAt), "got %v", ev.OccurredAt)
		})
	}
}
