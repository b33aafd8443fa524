package audit

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	ierr "github.com/orderrelay/orderrelay/internal/errors"
	"github.com/orderrelay/orderrelay/internal/logger"
	"github.com/orderrelay/orderrelay/internal/types"
)

const createTableQuery = `
CREATE TABLE IF NOT EXISTS audit_events (
	id           TEXT PRIMARY KEY,
	order_id     TEXT NOT NULL DEFAULT '',
	outcome      TEXT NOT NULL,
	contact_id   TEXT NOT NULL DEFAULT '',
	deal_id      TEXT NOT NULL DEFAULT '',
	error_detail TEXT NOT NULL DEFAULT '',
	payload      BYTEA,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const insertEntryQuery = `
INSERT INTO audit_events (id, order_id, outcome, contact_id, deal_id, error_detail, payload, created_at)
VALUES (:id, :order_id, :outcome, :contact_id, :deal_id, :error_detail, :payload, :created_at)`

type postgresLogger struct {
	db     *sqlx.DB
	logger *logger.Logger
}

// NewPostgresLogger opens the audit database and ensures the events table
// exists. The relay refuses to start with a broken audit target rather than
// silently dropping every record.
func NewPostgresLogger(databaseURL string, logger *logger.Logger) (Logger, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to connect to the audit database").
			Mark(ierr.ErrDatabase)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.Exec(createTableQuery); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to create the audit_events table").
			Mark(ierr.ErrDatabase)
	}

	return &postgresLogger{db: db, logger: logger}, nil
}

func (l *postgresLogger) Record(ctx context.Context, entry *Entry) error {
	if entry.ID == "" {
		entry.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_AUDIT)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	if _, err := l.db.NamedExecContext(ctx, insertEntryQuery, entry); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to insert audit entry").
			Mark(ierr.ErrDatabase)
	}

	return nil
}
