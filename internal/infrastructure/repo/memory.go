package repo

import (
	"errors"
	"sync"

	"lockerhub-backend/internal/domain"
	"lockerhub-backend/internal/usecase"
)

// MemoryOrderRepo keeps orders in a map. Secondary lookups scan; the store
// exists for tests and single-node dev runs, not for scale.
type MemoryOrderRepo struct {
	mu sync.RWMutex
	m  map[string]*domain.Order
}

func NewMemoryOrderRepo() *MemoryOrderRepo {
	return &MemoryOrderRepo{m: make(map[string]*domain.Order)}
}

func (r *MemoryOrderRepo) Create(o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.m[o.OrderID]; ok {
		return errors.New("order id already exists")
	}
	cp := *o
	r.m[o.OrderID] = &cp
	return nil
}

func (r *MemoryOrderRepo) GetByID(orderID string) (*domain.Order, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.m[orderID]
	if !ok {
		return nil, false
	}
	cp := *o
	return &cp, true
}

func (r *MemoryOrderRepo) GetByField(field, value string) (*domain.Order, bool) {
	if value == "" {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, o := range r.m {
		if o.Payment == nil {
			continue
		}
		var got string
		switch field {
		case usecase.FieldInvoiceID:
			got = o.Payment.InvoiceID
		case usecase.FieldPaymentID:
			got = o.Payment.PaymentID
		default:
			return nil, false
		}
		if got == value {
			cp := *o
			return &cp, true
		}
	}
	return nil, false
}

func (r *MemoryOrderRepo) Update(orderID string, patch domain.Patch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.m[orderID]
	if !ok {
		return errors.New("order not found")
	}
	patch.Apply(o)
	return nil
}
