package audit

import (
	"context"
	"time"
)

// Outcome labels the terminal state of a processed webhook event
type Outcome string

const (
	OutcomeSynced    Outcome = "synced"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeFailed    Outcome = "failed"
)

// Entry is one audit record of a processed webhook delivery
type Entry struct {
	ID          string    `db:"id"`
	OrderID     string    `db:"order_id"`
	Outcome     Outcome   `db:"outcome"`
	ContactID   string    `db:"contact_id"`
	DealID      string    `db:"deal_id"`
	ErrorDetail string    `db:"error_detail"`
	Payload     []byte    `db:"payload"`
	CreatedAt   time.Time `db:"created_at"`
}

// Logger records processed events for diagnosis. Recording is strictly
// best-effort: callers log and discard any returned error, it must never
// change the client-visible outcome of a webhook.
type Logger interface {
	Record(ctx context.Context, entry *Entry) error
}

type noopLogger struct{}

// NewNoopLogger returns a Logger that drops every entry, used when the
// audit log is disabled
func NewNoopLogger() Logger {
	return noopLogger{}
}

func (noopLogger) Record(context.Context, *Entry) error { return nil }
