// Package audit dispatches best-effort audit events. Delivery is not
// guaranteed: a failed or timed-out write is logged and dropped. Order and
// access mutations never depend on this package.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	EventOrderCreated          = "order.created"
	EventOrderCheckoutAttached = "order.checkout_attached"
	EventOrderFailed           = "order.failed"
	EventNotificationApplied   = "notification.applied"
	EventNotificationOrphaned  = "notification.orphaned"
	EventNotificationDuplicate = "notification.duplicate"
	EventAccessGranted         = "access.granted"
	EventAccessRevoked         = "access.revoked"
)

type Event struct {
	Type          string    `json:"type"`
	InvoiceNumber string    `json:"invoice_number,omitempty"`
	BuyerEmail    string    `json:"buyer_email,omitempty"`
	ProductSlug   string    `json:"product_slug,omitempty"`
	Status        string    `json:"status,omitempty"`
	EventKey      string    `json:"event_key,omitempty"`
	Detail        string    `json:"detail,omitempty"`
	At            time.Time `json:"at"`
}

type Sink interface {
	Write(ctx context.Context, e Event) error
}

// Auditor is what services depend on.
type Auditor interface {
	Dispatch(e Event)
}

type Nop struct{}

func (Nop) Dispatch(Event) {}

type Dispatcher struct {
	sink    Sink
	log     *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup

	// mu orders wg.Add against Close so Add never runs during Wait.
	mu     sync.Mutex
	closed bool
}

func NewDispatcher(sink Sink, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		sink:    sink,
		log:     log,
		timeout: 5 * time.Second,
	}
}

// Dispatch returns immediately; the write happens on its own goroutine.
func (d *Dispatcher) Dispatch(e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.log.Warn("audit dispatcher closed, dropping event", "type", e.Type, "invoice", e.InvoiceNumber)
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.sink.Write(ctx, e); err != nil {
			d.log.Warn("audit write failed", "type", e.Type, "invoice", e.InvoiceNumber, "error", err)
		}
	}()
}

// Close stops accepting events and waits for in-flight writes.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.wg.Wait()
}
