package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/example/pos-settlement/internal/backend"
	"github.com/example/pos-settlement/internal/infrastructure/journal"
)

// InvoiceBackend creates invoices on the business-data backend.
type InvoiceBackend interface {
	CreateInvoice(ctx context.Context, req backend.InvoiceRequest) (*backend.Invoice, error)
}

// Reconciler resolves orphaned payments: verified gateway payments whose
// invoice creation failed at settlement time. It retries the journaled
// invoice request until it lands or the attempt budget runs out, at
// which point the orphan is abandoned for manual action.
type Reconciler struct {
	orphans  journal.OrphanStore
	recorder journal.Recorder
	invoices InvoiceBackend

	interval    time.Duration
	maxAttempts int
}

func NewReconciler(orphans journal.OrphanStore, recorder journal.Recorder, invoices InvoiceBackend, interval time.Duration, maxAttempts int) *Reconciler {
	return &Reconciler{
		orphans:     orphans,
		recorder:    recorder,
		invoices:    invoices,
		interval:    interval,
		maxAttempts: maxAttempts,
	}
}

// HandleEvent is the Kafka consumer entry point: a payment.orphaned
// event triggers an immediate reconciliation of that payment.
func (r *Reconciler) HandleEvent(ctx context.Context, key, value []byte) error {
	var event journal.Event
	if err := json.Unmarshal(value, &event); err != nil {
		return err
	}
	if event.Type != journal.EventPaymentOrphaned {
		return nil
	}

	log.Printf("[Reconciler] orphaned payment event: %s", event.PaymentID)
	orphan, err := r.orphans.GetOrphan(ctx, event.PaymentID)
	if err != nil {
		return err
	}
	if orphan == nil || orphan.Status != journal.OrphanPending {
		return nil
	}
	return r.resolve(ctx, *orphan)
}

// Run sweeps the journal on an interval until the context ends. The
// sweep catches orphans whose triggering event was lost.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep retries every pending orphan once.
func (r *Reconciler) Sweep(ctx context.Context) {
	orphans, err := r.orphans.PendingOrphans(ctx)
	if err != nil {
		log.Printf("[Reconciler] list pending orphans: %v", err)
		return
	}
	for _, o := range orphans {
		if err := r.resolve(ctx, o); err != nil {
			log.Printf("[Reconciler] resolve %s: %v", o.PaymentID, err)
		}
	}
}

func (r *Reconciler) resolve(ctx context.Context, o journal.Orphan) error {
	var req backend.InvoiceRequest
	if err := json.Unmarshal(o.InvoiceRequest, &req); err != nil {
		// The payload is unusable; retrying cannot help.
		if markErr := r.orphans.MarkOrphan(ctx, o.PaymentID, journal.OrphanAbandoned, o.Attempts); markErr != nil {
			return markErr
		}
		return fmt.Errorf("unmarshal orphan payload: %w", err)
	}

	attempts := o.Attempts + 1
	inv, err := r.invoices.CreateInvoice(ctx, req)
	if err != nil {
		status := journal.OrphanPending
		if attempts >= r.maxAttempts {
			status = journal.OrphanAbandoned
			log.Printf("[Reconciler] abandoning %s after %d attempts", o.PaymentID, attempts)
		}
		if markErr := r.orphans.MarkOrphan(ctx, o.PaymentID, status, attempts); markErr != nil {
			return markErr
		}
		return fmt.Errorf("retry invoice for %s: %w", o.PaymentID, err)
	}

	if err := r.orphans.MarkOrphan(ctx, o.PaymentID, journal.OrphanResolved, attempts); err != nil {
		return err
	}
	log.Printf("[Reconciler] payment %s reconciled as invoice %s", o.PaymentID, inv.Number)

	if r.recorder != nil {
		_, err = r.recorder.Record(ctx, journal.EventPaymentReconciled, o.PaymentID, map[string]any{
			"invoice_id":     inv.ID,
			"invoice_number": inv.Number,
			"attempts":       attempts,
		})
		if err != nil {
			log.Printf("[Reconciler] record reconciled event: %v", err)
		}
	}
	return nil
}
