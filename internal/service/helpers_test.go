package service

import (
	"context"
	"sync"
	"testing"

	"doku-template-store/internal/audit"
	"doku-template-store/internal/client"
	"doku-template-store/internal/logging"
	"doku-template-store/internal/model"
	"doku-template-store/internal/repository"
	"doku-template-store/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingAuditor struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recordingAuditor) Dispatch(e audit.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingAuditor) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeDokuClient struct {
	session  *client.CheckoutSession
	err      error
	requests []*model.DokuCheckoutRequest
}

func (f *fakeDokuClient) CreateCheckout(_ context.Context, req *model.DokuCheckoutRequest) (*client.CheckoutSession, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

type stores struct {
	db       *gorm.DB
	orders   repository.OrderRepository
	access   repository.AccessGrantRepository
	events   repository.WebhookEventRepository
	products repository.ProductRepository
	settings repository.SettingsRepository
}

func newStores(t *testing.T) *stores {
	t.Helper()
	db := testutil.NewDB(t)
	return &stores{
		db:       db,
		orders:   repository.NewOrderRepository(db),
		access:   repository.NewAccessGrantRepository(db),
		events:   repository.NewWebhookEventRepository(db),
		products: repository.NewProductRepository(db),
		settings: repository.NewSettingsRepository(db),
	}
}

func (s *stores) createOrder(t *testing.T, invoice, email, slug string) *model.Order {
	t.Helper()
	order := testutil.PendingOrder(invoice, email, slug)
	require.NoError(t, s.orders.Create(context.Background(), nil, order))
	return order
}

func (s *stores) order(t *testing.T, invoice string) *model.Order {
	t.Helper()
	order, err := s.orders.FindByInvoice(context.Background(), nil, invoice)
	require.NoError(t, err)
	return order
}

func (s *stores) count(t *testing.T, m interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.db.Model(m).Count(&n).Error)
	return n
}

var discardLog = logging.Discard()
