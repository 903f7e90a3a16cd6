package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/pos-settlement/internal/infrastructure/kafka"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// ConnectPostgres opens and pings a PostgreSQL connection.
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// PostgresJournal stores settlement events and orphaned payments in
// PostgreSQL and publishes each recorded event to Kafka.
type PostgresJournal struct {
	db       *sql.DB
	producer *kafka.Producer
}

func NewPostgresJournal(db *sql.DB, producer *kafka.Producer) *PostgresJournal {
	return &PostgresJournal{db: db, producer: producer}
}

// EnsureSchema creates the journal tables when they do not exist yet.
func (j *PostgresJournal) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS settlement_events (
			id         TEXT PRIMARY KEY,
			event_type TEXT NOT NULL,
			payment_id TEXT,
			data       JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS settlement_events_payment_idx ON settlement_events (payment_id)`,
		`CREATE TABLE IF NOT EXISTS orphaned_payments (
			payment_id      TEXT PRIMARY KEY,
			order_id        TEXT NOT NULL,
			amount_minor    BIGINT NOT NULL,
			invoice_request JSONB NOT NULL,
			status          TEXT NOT NULL,
			attempts        INT NOT NULL DEFAULT 0,
			created_at      TIMESTAMPTZ NOT NULL,
			updated_at      TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := j.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure journal schema: %w", err)
		}
	}
	return nil
}

// Record appends a settlement event and publishes it keyed by payment id
// so consumers see per-payment ordering.
func (j *PostgresJournal) Record(ctx context.Context, eventType, paymentID string, data any) (*Event, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	event := Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		PaymentID: paymentID,
		Data:      jsonData,
		Timestamp: time.Now(),
	}

	_, err = j.db.ExecContext(ctx,
		`INSERT INTO settlement_events (id, event_type, payment_id, data, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		event.ID, event.Type, event.PaymentID, event.Data, event.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert settlement event: %w", err)
	}

	if j.producer != nil {
		if err := j.producer.Publish(ctx, event.PaymentID, event); err != nil {
			return nil, fmt.Errorf("publish settlement event: %w", err)
		}
	}
	return &event, nil
}

// SaveOrphan inserts a pending orphan. A duplicate payment id is left
// untouched.
func (j *PostgresJournal) SaveOrphan(ctx context.Context, o *Orphan) error {
	now := time.Now()
	o.Status = OrphanPending
	o.CreatedAt = now
	o.UpdatedAt = now

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO orphaned_payments (payment_id, order_id, amount_minor, invoice_request, status, attempts, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (payment_id) DO NOTHING`,
		o.PaymentID, o.OrderID, o.AmountMinor, o.InvoiceRequest, o.Status, o.Attempts, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save orphan %s: %w", o.PaymentID, err)
	}
	return nil
}

func (j *PostgresJournal) GetOrphan(ctx context.Context, paymentID string) (*Orphan, error) {
	row := j.db.QueryRowContext(ctx,
		`SELECT payment_id, order_id, amount_minor, invoice_request, status, attempts, created_at, updated_at
		 FROM orphaned_payments WHERE payment_id = $1`,
		paymentID,
	)
	var o Orphan
	err := row.Scan(&o.PaymentID, &o.OrderID, &o.AmountMinor, &o.InvoiceRequest, &o.Status, &o.Attempts, &o.CreatedAt, &o.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (j *PostgresJournal) PendingOrphans(ctx context.Context) ([]Orphan, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT payment_id, order_id, amount_minor, invoice_request, status, attempts, created_at, updated_at
		 FROM orphaned_payments WHERE status = $1 ORDER BY created_at ASC`,
		OrphanPending,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orphans []Orphan
	for rows.Next() {
		var o Orphan
		if err := rows.Scan(&o.PaymentID, &o.OrderID, &o.AmountMinor, &o.InvoiceRequest, &o.Status, &o.Attempts, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		orphans = append(orphans, o)
	}
	return orphans, rows.Err()
}

func (j *PostgresJournal) MarkOrphan(ctx context.Context, paymentID, status string, attempts int) error {
	_, err := j.db.ExecContext(ctx,
		`UPDATE orphaned_payments SET status = $2, attempts = $3, updated_at = $4 WHERE payment_id = $1`,
		paymentID, status, attempts, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("mark orphan %s: %w", paymentID, err)
	}
	return nil
}
