package usecase

import (
	"errors"
	"sync"
	"testing"
	"time"

	"lockerhub-backend/internal/domain"
)

type fakeRepo struct {
	m map[string]*domain.Order
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{m: map[string]*domain.Order{}}
}

func (r *fakeRepo) Create(o *domain.Order) error {
	cp := *o
	r.m[o.OrderID] = &cp
	return nil
}

func (r *fakeRepo) GetByID(orderID string) (*domain.Order, bool) {
	o, ok := r.m[orderID]
	if !ok {
		return nil, false
	}
	cp := *o
	return &cp, true
}

func (r *fakeRepo) GetByField(field, value string) (*domain.Order, bool) {
	if value == "" {
		return nil, false
	}
	for _, o := range r.m {
		if o.Payment == nil {
			continue
		}
		switch field {
		case FieldInvoiceID:
			if o.Payment.InvoiceID == value {
				cp := *o
				return &cp, true
			}
		case FieldPaymentID:
			if o.Payment.PaymentID == value {
				cp := *o
				return &cp, true
			}
		}
	}
	return nil, false
}

func (r *fakeRepo) Update(orderID string, patch domain.Patch) error {
	o, ok := r.m[orderID]
	if !ok {
		return errors.New("order not found")
	}
	patch.Apply(o)
	return nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	texts []string
}

func (n *fakeNotifier) Send(text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.texts = append(n.texts, text)
	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.texts)
}

type fakeSMS struct {
	mu   sync.Mutex
	to   []string
	body []string
	fail bool
}

func (s *fakeSMS) SendSMS(to, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("sms gateway down")
	}
	s.to = append(s.to, to)
	s.body = append(s.body, body)
	return nil
}

type fakeEmail struct {
	mu      sync.Mutex
	to      []string
	subject []string
	html    []string
	fail    bool
}

func (e *fakeEmail) SendEmail(to, subject, html string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fail {
		return errors.New("mail gateway down")
	}
	e.to = append(e.to, to)
	e.subject = append(e.subject, subject)
	e.html = append(e.html, html)
	return nil
}

type fakeInvoices struct {
	nextID string
	fail   bool
	calls  int
}

func (f *fakeInvoices) CreateInvoice(req InvoiceRequest) (*Invoice, error) {
	f.calls++
	if f.fail {
		return nil, errors.New("provider unavailable")
	}
	return &Invoice{
		ID:            f.nextID,
		URL:           "https://nowpayments.io/payment/?iid=" + f.nextID,
		PriceAmount:   req.PriceAmount,
		PriceCurrency: req.PriceCurrency,
		PayCurrency:   req.PayCurrency,
	}, nil
}

// waitFor polls for an async notification dispatch to land.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("timed out waiting for notification dispatch")
}

func seedOrder(r *fakeRepo, status domain.OrderStatus) *domain.Order {
	o := &domain.Order{
		OrderID:       "ORD-20260801-TEST01",
		Status:        status,
		ProductID:     "prod-1",
		ProductName:   "Locker Box",
		PriceGbp:      100,
		HubID:         "hub-1",
		HubName:       "Camden Hub",
		HubPostcode:   "NW1 8QL",
		CustomerName:  "Alex",
		CustomerPhone: "07123456789",
		CustomerEmail: "alex@example.com",
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
	_ = r.Create(o)
	return o
}
