package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/orderrelay/orderrelay/internal/audit"
	"github.com/orderrelay/orderrelay/internal/config"
	"github.com/orderrelay/orderrelay/internal/domain/order"
	"github.com/orderrelay/orderrelay/internal/idempotency"
	"github.com/orderrelay/orderrelay/internal/integration/zoho"
	"github.com/orderrelay/orderrelay/internal/logger"
)

// SyncResult reports what one webhook delivery produced in the CRM
type SyncResult struct {
	OrderID        string
	ContactID      string
	DealID         string
	ContactCreated bool
	Duplicate      bool
}

// SyncService drives the per-event pipeline: decode the order, resolve a
// CRM contact by find-or-create, create a deal linked to it, and audit the
// outcome. Signature verification happens before this service is invoked;
// any error returned here maps to a generic 500 at the HTTP boundary.
type SyncService interface {
	ProcessOrder(ctx context.Context, body []byte) (*SyncResult, error)
}

type syncService struct {
	cfg      *config.Configuration
	crm      zoho.Client
	auditLog audit.Logger
	tracker  idempotency.Tracker
	logger   *logger.Logger
}

// NewSyncService creates the order sync orchestrator
func NewSyncService(
	cfg *config.Configuration,
	crm zoho.Client,
	auditLog audit.Logger,
	tracker idempotency.Tracker,
	logger *logger.Logger,
) SyncService {
	return &syncService{
		cfg:      cfg,
		crm:      crm,
		auditLog: auditLog,
		tracker:  tracker,
		logger:   logger,
	}
}

func (s *syncService) ProcessOrder(ctx context.Context, body []byte) (*SyncResult, error) {
	o, err := order.Parse(body)
	if err != nil {
		s.recordAudit(ctx, &audit.Entry{
			Outcome:     audit.OutcomeFailed,
			ErrorDetail: err.Error(),
			Payload:     body,
		})
		return nil, err
	}

	orderID := o.OrderID()

	if s.tracker.Seen(orderID) {
		s.logger.Infow("suppressing redelivered order", "order_id", orderID)
		s.recordAudit(ctx, &audit.Entry{
			OrderID: orderID,
			Outcome: audit.OutcomeDuplicate,
			Payload: body,
		})
		return &SyncResult{OrderID: orderID, Duplicate: true}, nil
	}

	contact, created, err := s.resolveContact(ctx, o)
	if err != nil {
		s.recordAudit(ctx, &audit.Entry{
			OrderID:     orderID,
			Outcome:     audit.OutcomeFailed,
			ErrorDetail: err.Error(),
			Payload:     body,
		})
		return nil, err
	}

	deal, err := s.crm.CreateDeal(ctx, &zoho.DealCreateRequest{
		Name:        dealName(o),
		Amount:      o.Amount().InexactFloat64(),
		Stage:       s.cfg.Zoho.DealStage,
		ContactID:   contact.ID,
		Description: dealDescription(o),
	})
	if err != nil {
		// No rollback: the contact created above stays in the CRM
		s.recordAudit(ctx, &audit.Entry{
			OrderID:     orderID,
			Outcome:     audit.OutcomeFailed,
			ContactID:   contact.ID,
			ErrorDetail: err.Error(),
			Payload:     body,
		})
		return nil, err
	}

	s.tracker.MarkProcessed(orderID)

	s.recordAudit(ctx, &audit.Entry{
		OrderID:   orderID,
		Outcome:   audit.OutcomeSynced,
		ContactID: contact.ID,
		DealID:    deal.ID,
		Payload:   body,
	})

	s.logger.Infow("order synced to crm",
		"order_id", orderID,
		"contact_id", contact.ID,
		"deal_id", deal.ID,
		"contact_created", created)

	return &SyncResult{
		OrderID:        orderID,
		ContactID:      contact.ID,
		DealID:         deal.ID,
		ContactCreated: created,
	}, nil
}

// resolveContact finds a contact by billing email or creates a new one.
// A search miss and a missing email both lead to exactly one create call.
func (s *syncService) resolveContact(ctx context.Context, o *order.Order) (*zoho.Contact, bool, error) {
	if email := o.Email(); email != "" {
		contact, err := s.crm.SearchContactByEmail(ctx, email)
		if err != nil {
			return nil, false, err
		}
		if contact != nil {
			return contact, false, nil
		}
	}

	contact, err := s.crm.CreateContact(ctx, &zoho.ContactCreateRequest{
		LastName:  o.ContactLastName(),
		FirstName: o.Billing.FirstName,
		Email:     o.Email(),
	})
	if err != nil {
		return nil, false, err
	}

	return contact, true, nil
}

// recordAudit writes a best-effort audit entry. Failures are logged and
// swallowed so the audit log can never change the client-visible outcome.
func (s *syncService) recordAudit(ctx context.Context, entry *audit.Entry) {
	if err := s.auditLog.Record(ctx, entry); err != nil {
		s.logger.Warnw("failed to write audit entry",
			"order_id", entry.OrderID,
			"outcome", entry.Outcome,
			"error", err)
	}
}

func dealName(o *order.Order) string {
	id := o.OrderID()
	if id == "" {
		id = "unknown"
	}
	if name := o.ContactFullName(); name != "" {
		return fmt.Sprintf("Order #%s - %s", id, name)
	}
	return fmt.Sprintf("Order #%s", id)
}

// dealDescription summarizes the line items, e.g. "2x Widget, 1x Gadget"
func dealDescription(o *order.Order) string {
	if len(o.LineItems) == 0 {
		return ""
	}
	items := lo.Map(o.LineItems, func(item order.LineItem, _ int) string {
		return fmt.Sprintf("%dx %s", item.Quantity, item.Name)
	})
	return strings.Join(items, ", ")
}
