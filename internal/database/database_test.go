package database

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emirozbir/incident-triage/internal/config"
	"github.com/emirozbir/incident-triage/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(config.DatabaseConfig{
		Driver: DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "tickets.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTicket(service string, createdAt time.Time) *models.Ticket {
	rootCause := "memory limit too low"
	return &models.Ticket{
		ID:              uuid.NewString(),
		CreatedAt:       createdAt,
		ServiceName:     service,
		Namespace:       "payments",
		PodName:         service + "-abc123",
		ErrorMessage:    "OOMKilled",
		AlertPayload:    json.RawMessage(`{"alertname":"KubePodCrashLooping"}`),
		Classification:  "infrastructure",
		DiagnosisReport: "# report",
		RootCause:       &rootCause,
		Suggestions:     []string{"raise limits", "profile heap"},
	}
}

func TestCreateAndGetTicket(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	ticket := newTicket("payment-service", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, db.CreateTicket(ctx, ticket))

	got, err := db.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)

	assert.Equal(t, ticket.ID, got.ID)
	assert.True(t, ticket.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, "payment-service", got.ServiceName)
	assert.Equal(t, "payments", got.Namespace)
	assert.Equal(t, "infrastructure", got.Classification)
	assert.Equal(t, "# report", got.DiagnosisReport)
	require.NotNil(t, got.RootCause)
	assert.Equal(t, "memory limit too low", *got.RootCause)
	assert.Equal(t, []string{"raise limits", "profile heap"}, got.Suggestions)
	assert.JSONEq(t, `{"alertname":"KubePodCrashLooping"}`, string(got.AlertPayload))
}

func TestCreateTicketDefaults(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	ticket := &models.Ticket{
		ID:              uuid.NewString(),
		ServiceName:     "svc",
		Namespace:       "ns",
		PodName:         "pod",
		ErrorMessage:    "boom",
		DiagnosisReport: "# report",
	}
	require.NoError(t, db.CreateTicket(ctx, ticket))
	assert.False(t, ticket.CreatedAt.IsZero())

	got, err := db.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "unknown", got.Classification)
	assert.Nil(t, got.RootCause)
	assert.Equal(t, []string{}, got.Suggestions)
	assert.JSONEq(t, `{}`, string(got.AlertPayload))
}

func TestCreateTicketConflict(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	ticket := newTicket("svc", time.Now())
	require.NoError(t, db.CreateTicket(ctx, ticket))

	err := db.CreateTicket(ctx, ticket)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestGetTicketNotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetTicket(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListTickets(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 5; i++ {
		service := "payment-service"
		if i%2 == 1 {
			service = "order-service"
		}
		ticket := newTicket(service, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, db.CreateTicket(ctx, ticket))
		ids = append(ids, ticket.ID)
	}

	page, total, err := db.ListTickets(ctx, models.TicketFilter{Limit: 2, Offset: 0})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page, 2)
	assert.Equal(t, ids[4], page[0].ID)
	assert.Equal(t, ids[3], page[1].ID)

	page, _, err = db.ListTickets(ctx, models.TicketFilter{Limit: 2, Offset: 4})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[0], page[0].ID)

	page, total, err = db.ListTickets(ctx, models.TicketFilter{Service: "order-service", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, page, 2)
	assert.Equal(t, ids[3], page[0].ID)
	assert.Equal(t, ids[1], page[1].ID)
	assert.Equal(t, "order-service", page[0].ServiceName)
	require.NotNil(t, page[0].RootCause)
}

func TestListTicketsEmpty(t *testing.T) {
	db := newTestDB(t)

	page, total, err := db.ListTickets(context.Background(), models.TicketFilter{Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.NotNil(t, page)
	assert.Empty(t, page)
}

func TestRecordFeedback(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	fixed := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	db.now = func() time.Time { return fixed }

	ticket := newTicket("svc", fixed.Add(-time.Hour))
	require.NoError(t, db.CreateTicket(ctx, ticket))

	useful, applied, comment := true, false, "root cause was right"
	require.NoError(t, db.RecordFeedback(ctx, ticket.ID, models.FeedbackRequest{
		Useful:  &useful,
		Applied: &applied,
		Comment: &comment,
	}))

	got, err := db.GetFeedback(ctx, ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, got.FeedbackUseful)
	require.NotNil(t, got.FeedbackApplied)
	require.NotNil(t, got.FeedbackComment)
	require.NotNil(t, got.FeedbackAt)
	assert.True(t, *got.FeedbackUseful)
	assert.False(t, *got.FeedbackApplied)
	assert.Equal(t, comment, *got.FeedbackComment)
	assert.True(t, fixed.Equal(*got.FeedbackAt))
	assert.True(t, fixed.Equal(got.UpdatedAt))
}

func TestRecordFeedbackNotFound(t *testing.T) {
	db := newTestDB(t)
	yes := true

	err := db.RecordFeedback(context.Background(), uuid.NewString(), models.FeedbackRequest{Useful: &yes, Applied: &yes})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRebind(t *testing.T) {
	pg := &DB{driver: DriverPostgres}
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", pg.rebind("SELECT * FROM t WHERE a = ? AND b = ?"))

	lite := &DB{driver: DriverSQLite}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}
