package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mattn/go-sqlite3"

	"github.com/emirozbir/incident-triage/internal/config"
	"github.com/emirozbir/incident-triage/internal/models"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

var (
	ErrNotFound = errors.New("ticket not found")
	ErrConflict = errors.New("ticket already exists")
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS diagnosis_tickets (
	id TEXT PRIMARY KEY,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	service_name TEXT NOT NULL,
	namespace TEXT NOT NULL,
	pod_name TEXT NOT NULL,
	error_message TEXT NOT NULL,
	stack_trace TEXT,
	alert_timestamp TIMESTAMP,
	alert_payload TEXT NOT NULL DEFAULT '{}',
	classification TEXT NOT NULL DEFAULT 'unknown',
	diagnosis_report TEXT NOT NULL,
	root_cause TEXT,
	suggestions TEXT NOT NULL DEFAULT '[]',
	analysis_partial BOOLEAN NOT NULL DEFAULT 0,
	llm_model TEXT,
	tokens_used INTEGER,
	processing_time_ms INTEGER,
	feedback_useful BOOLEAN,
	feedback_applied BOOLEAN,
	feedback_comment TEXT,
	feedback_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_tickets_created_at ON diagnosis_tickets(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_tickets_service ON diagnosis_tickets(service_name);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS diagnosis_tickets (
	id UUID PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	service_name TEXT NOT NULL,
	namespace TEXT NOT NULL,
	pod_name TEXT NOT NULL,
	error_message TEXT NOT NULL,
	stack_trace TEXT,
	alert_timestamp TIMESTAMPTZ,
	alert_payload TEXT NOT NULL DEFAULT '{}',
	classification TEXT NOT NULL DEFAULT 'unknown',
	diagnosis_report TEXT NOT NULL,
	root_cause TEXT,
	suggestions TEXT NOT NULL DEFAULT '[]',
	analysis_partial BOOLEAN NOT NULL DEFAULT FALSE,
	llm_model TEXT,
	tokens_used INTEGER,
	processing_time_ms BIGINT,
	feedback_useful BOOLEAN,
	feedback_applied BOOLEAN,
	feedback_comment TEXT,
	feedback_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_tickets_created_at ON diagnosis_tickets(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_tickets_service ON diagnosis_tickets(service_name);
`

type DB struct {
	conn   *sql.DB
	driver string
	now    func() time.Time
}

// New opens the configured database and initializes the schema
func New(cfg config.DatabaseConfig) (*DB, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverSQLite
	}

	conn, err := sql.Open(driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn, driver: driver, now: time.Now}
	if err := db.init(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) init() error {
	schema := postgresSchema
	if db.driver == DriverSQLite {
		// A single connection keeps in-memory databases shared across queries
		db.conn.SetMaxOpenConns(1)
		if _, err := db.conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
			return fmt.Errorf("failed to enable WAL mode: %w", err)
		}
		schema = sqliteSchema
	}

	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the connection is alive
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// CreateTicket inserts a new ticket. Zero timestamps are set to now.
func (db *DB) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	now := db.now().UTC()
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = now
	}
	if ticket.UpdatedAt.IsZero() {
		ticket.UpdatedAt = ticket.CreatedAt
	}
	if ticket.Classification == "" {
		ticket.Classification = "unknown"
	}
	if len(ticket.AlertPayload) == 0 {
		ticket.AlertPayload = json.RawMessage("{}")
	}
	if ticket.Suggestions == nil {
		ticket.Suggestions = []string{}
	}

	suggestionsJSON, err := json.Marshal(ticket.Suggestions)
	if err != nil {
		return fmt.Errorf("failed to marshal suggestions: %w", err)
	}

	query := `
		INSERT INTO diagnosis_tickets (
			id, created_at, updated_at, service_name, namespace, pod_name,
			error_message, stack_trace, alert_timestamp, alert_payload,
			classification, diagnosis_report, root_cause, suggestions,
			analysis_partial, llm_model, tokens_used, processing_time_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = db.conn.ExecContext(ctx, db.rebind(query),
		ticket.ID,
		ticket.CreatedAt.UTC(),
		ticket.UpdatedAt.UTC(),
		ticket.ServiceName,
		ticket.Namespace,
		ticket.PodName,
		ticket.ErrorMessage,
		ticket.StackTrace,
		ticket.AlertTimestamp,
		string(ticket.AlertPayload),
		ticket.Classification,
		ticket.DiagnosisReport,
		ticket.RootCause,
		string(suggestionsJSON),
		ticket.AnalysisPartial,
		ticket.LLMModel,
		ticket.TokensUsed,
		ticket.ProcessingTimeMs,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrConflict, ticket.ID)
		}
		return fmt.Errorf("failed to insert ticket: %w", err)
	}

	return nil
}

// GetTicket retrieves the public view of a ticket by ID
func (db *DB) GetTicket(ctx context.Context, id string) (*models.TicketResponse, error) {
	query := `
		SELECT id, created_at, service_name, namespace, classification,
		       diagnosis_report, root_cause, suggestions, alert_payload
		FROM diagnosis_tickets
		WHERE id = ?
	`

	var ticket models.TicketResponse
	var rootCause sql.NullString
	var suggestionsJSON, payloadJSON string

	err := db.conn.QueryRowContext(ctx, db.rebind(query), id).Scan(
		&ticket.ID,
		&ticket.CreatedAt,
		&ticket.ServiceName,
		&ticket.Namespace,
		&ticket.Classification,
		&ticket.DiagnosisReport,
		&rootCause,
		&suggestionsJSON,
		&payloadJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query ticket: %w", err)
	}

	ticket.RootCause = nullableString(rootCause)
	if err := json.Unmarshal([]byte(suggestionsJSON), &ticket.Suggestions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal suggestions: %w", err)
	}
	if ticket.Suggestions == nil {
		ticket.Suggestions = []string{}
	}
	ticket.AlertPayload = json.RawMessage(payloadJSON)
	if !json.Valid(ticket.AlertPayload) {
		ticket.AlertPayload = json.RawMessage("{}")
	}

	return &ticket, nil
}

// ListTickets returns one page of tickets, newest first, and the total count
func (db *DB) ListTickets(ctx context.Context, filter models.TicketFilter) ([]models.TicketSummary, int, error) {
	where := ""
	var args []any
	if filter.Service != "" {
		where = " WHERE service_name = ?"
		args = append(args, filter.Service)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM diagnosis_tickets" + where
	if err := db.conn.QueryRowContext(ctx, db.rebind(countQuery), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count tickets: %w", err)
	}

	query := `
		SELECT id, created_at, service_name, namespace, classification, root_cause
		FROM diagnosis_tickets` + where + `
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := db.conn.QueryContext(ctx, db.rebind(query), append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query tickets: %w", err)
	}
	defer rows.Close()

	tickets := []models.TicketSummary{}
	for rows.Next() {
		var summary models.TicketSummary
		var rootCause sql.NullString

		err := rows.Scan(
			&summary.ID,
			&summary.CreatedAt,
			&summary.ServiceName,
			&summary.Namespace,
			&summary.Classification,
			&rootCause,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan row: %w", err)
		}
		summary.RootCause = nullableString(rootCause)

		tickets = append(tickets, summary)
	}

	return tickets, total, rows.Err()
}

// RecordFeedback stores a human verdict on a ticket's diagnosis
func (db *DB) RecordFeedback(ctx context.Context, id string, feedback models.FeedbackRequest) error {
	if feedback.Useful == nil || feedback.Applied == nil {
		return errors.New("useful and applied are required")
	}

	now := db.now().UTC()
	query := `
		UPDATE diagnosis_tickets
		SET feedback_useful = ?, feedback_applied = ?, feedback_comment = ?,
		    feedback_at = ?, updated_at = ?
		WHERE id = ?
	`

	res, err := db.conn.ExecContext(ctx, db.rebind(query),
		*feedback.Useful,
		*feedback.Applied,
		feedback.Comment,
		now,
		now,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to record feedback: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to record feedback: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetFeedback returns the stored feedback fields of a ticket
func (db *DB) GetFeedback(ctx context.Context, id string) (*models.Ticket, error) {
	query := `
		SELECT id, updated_at, feedback_useful, feedback_applied, feedback_comment, feedback_at
		FROM diagnosis_tickets
		WHERE id = ?
	`

	var ticket models.Ticket
	var useful, applied sql.NullBool
	var comment sql.NullString
	var at sql.NullTime

	err := db.conn.QueryRowContext(ctx, db.rebind(query), id).Scan(
		&ticket.ID,
		&ticket.UpdatedAt,
		&useful,
		&applied,
		&comment,
		&at,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}

	if useful.Valid {
		ticket.FeedbackUseful = &useful.Bool
	}
	if applied.Valid {
		ticket.FeedbackApplied = &applied.Bool
	}
	ticket.FeedbackComment = nullableString(comment)
	if at.Valid {
		ticket.FeedbackAt = &at.Time
	}

	return &ticket, nil
}

// rebind rewrites ? placeholders to $n for Postgres
func (db *DB) rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}

	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}
