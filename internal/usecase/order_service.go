package usecase

import (
	"crypto/rand"
	"fmt"
	"log"
	"strings"
	"time"

	"lockerhub-backend/internal/domain"
)

// Secondary lookup fields supported by OrderRepo.GetByField.
const (
	FieldInvoiceID = "paymentInvoiceId"
	FieldPaymentID = "paymentPaymentId"
)

// OrderRepo is the keyed-record store owning all orders. Update applies a
// partial merge; no multi-field compare-and-swap is assumed, so callers
// structure their writes to stay idempotent regardless of ordering.
type OrderRepo interface {
	Create(o *domain.Order) error
	GetByID(orderID string) (*domain.Order, bool)
	GetByField(field, value string) (*domain.Order, bool)
	Update(orderID string, patch domain.Patch) error
}

type OrderService struct {
	Repo    OrderRepo
	OTP     *OTPService
	Notify  *NotifyRouter
	Email   EmailSender
	SiteURL string
	Now     func() time.Time
}

func (s *OrderService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

type CreateOrderInput struct {
	ProductID       string `json:"productId"`
	ProductName     string `json:"productName"`
	BasePriceGbp    any    `json:"basePriceGbp"`
	PriceGbp        any    `json:"priceGbp"`
	PickupSurcharge any    `json:"pickupSurcharge"`
	PickupOption    string `json:"pickupOption"`
	HubID           string `json:"hubId"`
	HubName         string `json:"hubName"`
	HubPostcode     string `json:"hubPostcode"`
	CustomerName    string `json:"customerName"`
	CustomerPhone   string `json:"customerPhone"`
	CustomerEmail   string `json:"customerEmail"`
	Notes           string `json:"notes"`
}

// Create validates the input, persists a fresh pending order and
// immediately attempts the OTP challenge. Challenge delivery failure is
// logged, not returned: the order stays pending with an
// issued-but-undelivered credential and the customer can re-request.
func (s *OrderService) Create(in CreateOrderInput) (*domain.Order, error) {
	productID := strings.TrimSpace(in.ProductID)
	productName := strings.TrimSpace(in.ProductName)
	hubID := strings.TrimSpace(in.HubID)
	hubName := strings.TrimSpace(in.HubName)
	customerName := strings.TrimSpace(in.CustomerName)
	required := []struct {
		field string
		value string
	}{
		{"productId", productID},
		{"productName", productName},
		{"hubId", hubID},
		{"hubName", hubName},
		{"customerName", customerName},
	}
	for _, r := range required {
		if r.value == "" {
			return nil, ErrValidation("missing field: " + r.field)
		}
	}
	phone := strings.TrimSpace(in.CustomerPhone)
	email := strings.TrimSpace(in.CustomerEmail)
	if phone == "" && email == "" {
		return nil, ErrValidation("at least one contact channel (phone or email) is required")
	}
	total := ParsePrice(in.PriceGbp)
	base := ParsePrice(in.BasePriceGbp)
	surcharge := ParsePrice(in.PickupSurcharge)
	if total <= 0 {
		return nil, ErrValidation("missing field: priceGbp")
	}
	if base > 0 && total < base {
		return nil, ErrValidation("total price below base price")
	}

	now := s.now()
	o := &domain.Order{
		OrderID:            newOrderID(now),
		Status:             domain.OrderPending,
		ProductID:          productID,
		ProductName:        productName,
		BasePriceGbp:       base,
		PriceGbp:           total,
		PickupSurchargeGbp: surcharge,
		PickupOption:       strings.TrimSpace(in.PickupOption),
		HubID:              hubID,
		HubName:            hubName,
		HubPostcode:        strings.TrimSpace(in.HubPostcode),
		CustomerName:       customerName,
		CustomerPhone:      phone,
		CustomerEmail:      email,
		Notes:              strings.TrimSpace(in.Notes),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.OTP.NewCredential(o); err != nil {
		return nil, ErrUpstream("could not issue verification credential: " + err.Error())
	}
	if err := s.Repo.Create(o); err != nil {
		return nil, ErrUpstream("could not store order: " + err.Error())
	}

	if err := s.OTP.Deliver(o); err != nil {
		log.Printf("[create-order] otp delivery failed for %s: %v", o.OrderID, err)
	} else {
		s.OTP.advance(o, domain.OrderOTPPending)
	}

	if s.Notify != nil {
		text := fmt.Sprintf("🆕 New order <b>%s</b>\nStatus: Awaiting verification\n%s", o.OrderID, orderSummary(o))
		s.Notify.OrderEvent(o, text)
	}
	s.sendAwaitingPaymentEmail(o)

	return o, nil
}

func (s *OrderService) sendAwaitingPaymentEmail(o *domain.Order) {
	if s.Email == nil || o.CustomerEmail == "" {
		return
	}
	paymentURL := fmt.Sprintf("%s/payment.html?orderId=%s", s.SiteURL, o.OrderID)
	html := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your order <strong>%s</strong> (%s, £%g) is awaiting payment.</p><p><a href=%q>Pay now</a></p>",
		orNA(o.CustomerName), o.OrderID, o.ProductName, o.PriceGbp, paymentURL)
	subject := fmt.Sprintf("Your LockerHub order %s is awaiting payment", o.OrderID)
	if err := s.Email.SendEmail(o.CustomerEmail, subject, html); err != nil {
		log.Printf("[create-order] awaiting-payment email failed for %s: %v", o.OrderID, err)
	}
}

func (s *OrderService) Get(orderID string) (*domain.Order, error) {
	o, ok := s.Repo.GetByID(orderID)
	if !ok {
		return nil, ErrNotFound("order")
	}
	return o, nil
}

type AdminUpdateInput struct {
	TrackingNumber *string `json:"trackingNumber"`
	Password       *string `json:"password"`
	SendEmail      bool    `json:"sendEmail"`
}

// AdminUpdate touches exactly two staff-editable fields and can trigger a
// collection-ready email. Everything else on the order is off limits here.
func (s *OrderService) AdminUpdate(orderID string, in AdminUpdateInput) (emailSent bool, err error) {
	o, ok := s.Repo.GetByID(orderID)
	if !ok {
		return false, ErrNotFound("order")
	}
	now := s.now()
	patch := domain.Patch{UpdatedAt: &now}
	if in.TrackingNumber != nil {
		v := strings.TrimSpace(*in.TrackingNumber)
		patch.TrackingNumber = &v
	}
	if in.Password != nil {
		v := strings.TrimSpace(*in.Password)
		patch.Password = &v
	}
	if err := s.Repo.Update(orderID, patch); err != nil {
		return false, ErrUpstream("could not update order: " + err.Error())
	}
	patch.Apply(o)

	if in.SendEmail && s.Email != nil && o.CustomerEmail != "" {
		html := fmt.Sprintf(
			"<p>Hi %s,</p><p>Your order <strong>%s</strong> is ready for collection.</p><p><strong>Tracking number:</strong> %s</p><p><strong>Collection code:</strong> %s</p><p>Please retain this information for collection.</p>",
			orNA(o.CustomerName), o.OrderID, orNA(o.TrackingNumber), orNA(o.Password))
		subject := fmt.Sprintf("Your LockerHub order %s", o.OrderID)
		if err := s.Email.SendEmail(o.CustomerEmail, subject, html); err != nil {
			log.Printf("[admin-update] email failed for %s: %v", o.OrderID, err)
		} else {
			emailSent = true
		}
	}
	return emailSent, nil
}

// ParsePrice accepts numbers or loosely formatted strings ("£1,200.50")
// and never returns a negative amount.
func ParsePrice(v any) float64 {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		if n < 0 {
			return 0
		}
		return n
	case int:
		if n < 0 {
			return 0
		}
		return float64(n)
	case string:
		var b strings.Builder
		for _, r := range n {
			if (r >= '0' && r <= '9') || r == '.' {
				b.WriteRune(r)
			}
		}
		var f float64
		if _, err := fmt.Sscanf(b.String(), "%g", &f); err != nil {
			return 0
		}
		return f
	}
	return 0
}

const orderIDAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

func newOrderID(now time.Time) string {
	b := make([]byte, 6)
	_, _ = rand.Read(b)
	suffix := make([]byte, 6)
	for i, c := range b {
		suffix[i] = orderIDAlphabet[int(c)%len(orderIDAlphabet)]
	}
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix)
}
