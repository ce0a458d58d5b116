package domain

import (
	"strings"
	"time"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderOTPPending OrderStatus = "otp_pending"
	OrderVerified   OrderStatus = "verified"
	OrderInvoiced   OrderStatus = "invoiced"
	OrderPaid       OrderStatus = "paid"
)

var statusRank = map[OrderStatus]int{
	OrderPending:    0,
	OrderOTPPending: 1,
	OrderVerified:   2,
	OrderInvoiced:   3,
	OrderPaid:       4,
}

// ParseStatus tolerates free-form legacy strings: anything not recognized
// is treated as pending.
func ParseStatus(s string) OrderStatus {
	st := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := statusRank[st]; ok {
		return st
	}
	return OrderPending
}

func StatusRank(s OrderStatus) int {
	return statusRank[s]
}

// AdvanceStatus moves forward only. A target behind the current status is
// ignored, so a paid order can never regress.
func AdvanceStatus(current, next OrderStatus) OrderStatus {
	if statusRank[next] > statusRank[current] {
		return next
	}
	return current
}

type Order struct {
	OrderID            string      `json:"orderId"`
	Status             OrderStatus `json:"status"`
	ProductID          string      `json:"productId"`
	ProductName        string      `json:"productName"`
	BasePriceGbp       float64     `json:"basePriceGbp"`
	PriceGbp           float64     `json:"priceGbp"`
	PickupSurchargeGbp float64     `json:"pickupSurchargeGbp"`
	PickupOption       string      `json:"pickupOption"`
	HubID              string      `json:"hubId"`
	HubName            string      `json:"hubName"`
	HubPostcode        string      `json:"hubPostcode"`
	CustomerName       string      `json:"customerName"`
	CustomerPhone      string      `json:"customerPhone"`
	CustomerEmail      string      `json:"customerEmail"`
	Notes              string      `json:"notes"`
	TrackingNumber     string      `json:"trackingNumber"`
	Password           string      `json:"password"`
	Payment            *Payment    `json:"payment"`
	OTPCode            string      `json:"-"`
	OTPToken           string      `json:"-"`
	OTPExpiresAt       *time.Time  `json:"otpExpiresAt"`
	OTPVerifiedAt      *time.Time  `json:"otpVerifiedAt"`
	CreatedAt          time.Time   `json:"createdAt"`
	UpdatedAt          time.Time   `json:"updatedAt"`
	PaidAt             *time.Time  `json:"paidAt"`
}

// IsExpedited flags same-day / next-day pickups. Affects notification
// routing only, never the state machine.
func (o *Order) IsExpedited() bool {
	p := strings.ToLower(o.PickupOption)
	return strings.Contains(p, "same") || strings.Contains(p, "next")
}

// Patch is a partial update: nil fields are left untouched by the
// repository. Nullable timestamps and the payment block use a double
// pointer so a patch can distinguish "don't touch" from "set to NULL".
type Patch struct {
	Status         *OrderStatus
	TrackingNumber *string
	Password       *string
	Payment        **Payment
	OTPCode        *string
	OTPToken       *string
	OTPExpiresAt   **time.Time
	OTPVerifiedAt  **time.Time
	PaidAt         **time.Time
	UpdatedAt      *time.Time
}

func (p *Patch) Apply(o *Order) {
	if p.Status != nil {
		o.Status = *p.Status
	}
	if p.TrackingNumber != nil {
		o.TrackingNumber = *p.TrackingNumber
	}
	if p.Password != nil {
		o.Password = *p.Password
	}
	if p.Payment != nil {
		o.Payment = *p.Payment
	}
	if p.OTPCode != nil {
		o.OTPCode = *p.OTPCode
	}
	if p.OTPToken != nil {
		o.OTPToken = *p.OTPToken
	}
	if p.OTPExpiresAt != nil {
		o.OTPExpiresAt = *p.OTPExpiresAt
	}
	if p.OTPVerifiedAt != nil {
		o.OTPVerifiedAt = *p.OTPVerifiedAt
	}
	if p.PaidAt != nil {
		o.PaidAt = *p.PaidAt
	}
	if p.UpdatedAt != nil {
		o.UpdatedAt = *p.UpdatedAt
	}
}
