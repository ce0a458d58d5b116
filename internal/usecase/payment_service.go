package usecase

import (
	"fmt"
	"strings"
	"time"

	"lockerhub-backend/internal/domain"
)

// InvoiceClient creates hosted crypto-payment invoices with the provider.
type InvoiceClient interface {
	CreateInvoice(req InvoiceRequest) (*Invoice, error)
}

type InvoiceRequest struct {
	PriceAmount    float64
	PriceCurrency  string
	PayCurrency    string
	OrderID        string
	IPNCallbackURL string
	SuccessURL     string
	CancelURL      string
}

type Invoice struct {
	ID            string
	URL           string
	PriceAmount   float64
	PriceCurrency string
	PayCurrency   string
}

type PaymentService struct {
	Repo     OrderRepo
	Invoices InvoiceClient
	Notify   *NotifyRouter
	SiteURL  string
	Now      func() time.Time
}

func (s *PaymentService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

type InvoiceResult struct {
	InvoiceID     string  `json:"invoiceId"`
	PayURL        string  `json:"payUrl"`
	PriceAmount   float64 `json:"priceAmount"`
	PriceCurrency string  `json:"priceCurrency"`
	PayCurrency   string  `json:"payCurrency"`
}

// CreateInvoice opens a provider invoice for the order. An order that
// already holds an open unpaid invoice yields an InvoiceConflictError so
// the existing invoice is reused rather than a second one created.
func (s *PaymentService) CreateInvoice(orderID, network string) (*InvoiceResult, error) {
	payCurrency, err := payCurrencyFor(network)
	if err != nil {
		return nil, err
	}
	o, ok := s.Repo.GetByID(orderID)
	if !ok {
		return nil, ErrNotFound("order")
	}
	if o.Status == domain.OrderPaid {
		return nil, ErrConflict("order already paid")
	}
	if o.PriceGbp <= 0 {
		return nil, ErrValidation("order amount invalid")
	}
	if p := o.Payment; p != nil && p.InvoiceID != "" && invoiceOpen(p) {
		return nil, &InvoiceConflictError{Existing: p}
	}

	inv, err := s.Invoices.CreateInvoice(InvoiceRequest{
		PriceAmount:    o.PriceGbp,
		PriceCurrency:  "GBP",
		PayCurrency:    payCurrency,
		OrderID:        o.OrderID,
		IPNCallbackURL: s.SiteURL + "/api/payments/webhook",
		SuccessURL:     fmt.Sprintf("%s/payment-success.html?orderId=%s", s.SiteURL, o.OrderID),
		CancelURL:      fmt.Sprintf("%s/payment.html?orderId=%s", s.SiteURL, o.OrderID),
	})
	if err != nil {
		return nil, ErrUpstream("invoice creation failed: " + err.Error())
	}

	payment := &domain.Payment{
		Provider:       "nowpayments",
		Network:        network,
		InvoiceID:      inv.ID,
		InvoiceURL:     inv.URL,
		PayCurrency:    inv.PayCurrency,
		PriceAmount:    inv.PriceAmount,
		PriceCurrency:  inv.PriceCurrency,
		ProviderStatus: "invoice_created",
	}
	now := s.now()
	status := domain.AdvanceStatus(o.Status, domain.OrderInvoiced)
	patch := domain.Patch{
		Status:    &status,
		Payment:   &payment,
		UpdatedAt: &now,
	}
	if err := s.Repo.Update(o.OrderID, patch); err != nil {
		return nil, ErrUpstream("could not store invoice: " + err.Error())
	}
	patch.Apply(o)

	if s.Notify != nil {
		text := fmt.Sprintf("💳 Invoice created for <b>%s</b>\nNetwork: %s\nAmount: £%g\nLink: %s",
			o.OrderID, network, o.PriceGbp, inv.URL)
		s.Notify.OrderEvent(o, text)
	}

	return &InvoiceResult{
		InvoiceID:     inv.ID,
		PayURL:        inv.URL,
		PriceAmount:   inv.PriceAmount,
		PriceCurrency: inv.PriceCurrency,
		PayCurrency:   inv.PayCurrency,
	}, nil
}

type ReconcileResult struct {
	AlreadyPaid bool
	Settled     bool
	Order       *domain.Order
}

// Reconcile applies a canonical payment event exactly-once-effective.
// Resolution tries orderId, invoiceId, then paymentId; the first hit wins.
// An already-paid order is a success no-op, which is what makes provider
// webhook redelivery safe. Otherwise the event merges into the stored
// payment block and, on a settled status, flips the order to paid.
func (s *PaymentService) Reconcile(ev domain.PaymentEvent) (*ReconcileResult, error) {
	o := s.resolve(ev)
	if o == nil {
		return nil, ErrNotFound("order")
	}
	if o.Status == domain.OrderPaid {
		return &ReconcileResult{AlreadyPaid: true, Order: o}, nil
	}

	merged := ev.Merge(o.Payment)
	if merged.Network == "" && ev.PayCurrency != "" {
		merged.Network = ev.PayCurrency
	}

	now := s.now()
	patch := domain.Patch{
		Payment:   &merged,
		UpdatedAt: &now,
	}
	settled := ev.Settled()
	if settled {
		status := domain.AdvanceStatus(o.Status, domain.OrderPaid)
		paidAt := &now
		patch.Status = &status
		patch.PaidAt = &paidAt
	}
	if err := s.Repo.Update(o.OrderID, patch); err != nil {
		return nil, ErrUpstream("could not store payment update: " + err.Error())
	}
	patch.Apply(o)

	if settled && s.Notify != nil {
		text := fmt.Sprintf("✅ Order <b>%s</b>\nStatus: Paid\nProduct: %s\nAmount: £%g\nPay: %g %s",
			o.OrderID, o.ProductName, o.PriceGbp, merged.ActuallyPaid, merged.PayCurrency)
		s.Notify.PaymentSettled(o, text)
	}
	return &ReconcileResult{Settled: settled, Order: o}, nil
}

func (s *PaymentService) resolve(ev domain.PaymentEvent) *domain.Order {
	if ev.OrderID != "" {
		if o, ok := s.Repo.GetByID(ev.OrderID); ok {
			return o
		}
	}
	if ev.InvoiceID != "" {
		if o, ok := s.Repo.GetByField(FieldInvoiceID, ev.InvoiceID); ok {
			return o
		}
	}
	if ev.PaymentID != "" {
		if o, ok := s.Repo.GetByField(FieldPaymentID, ev.PaymentID); ok {
			return o
		}
	}
	return nil
}

func payCurrencyFor(network string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(network)) {
	case "TRC20":
		return "USDTTRC20", nil
	case "ERC20":
		return "USDTERC20", nil
	}
	return "", ErrValidation("unsupported network")
}

// invoiceOpen reports whether an existing invoice should block creating
// another one. Terminal provider states free the slot.
func invoiceOpen(p *domain.Payment) bool {
	switch strings.ToLower(p.ProviderStatus) {
	case "expired", "failed", "refunded":
		return false
	}
	return true
}
