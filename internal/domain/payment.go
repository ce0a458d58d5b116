package domain

import "strings"

// Payment is the provider-facing block of an order. ProviderStatus carries
// the raw provider vocabulary; TxID is only populated once the provider
// reports final settlement.
type Payment struct {
	Provider       string  `json:"provider"`
	Network        string  `json:"network"`
	InvoiceID      string  `json:"invoiceId"`
	PaymentID      string  `json:"paymentId"`
	InvoiceURL     string  `json:"invoiceUrl,omitempty"`
	PayCurrency    string  `json:"payCurrency"`
	PriceAmount    float64 `json:"priceAmount"`
	PriceCurrency  string  `json:"priceCurrency"`
	PayAmount      float64 `json:"payAmount"`
	ActuallyPaid   float64 `json:"actuallyPaid"`
	TxID           string  `json:"txId"`
	ProviderStatus string  `json:"status"`
}

// PaymentEvent is the canonical shape produced by the webhook normalizer.
// Empty strings and nil floats mean "not carried by this delivery" and must
// not overwrite previously stored values.
type PaymentEvent struct {
	Provider       string
	OrderID        string
	InvoiceID      string
	PaymentID      string
	ProviderStatus string
	PayCurrency    string
	PayAmount      *float64
	ActuallyPaid   *float64
	TxID           string
}

// Settled maps the provider success vocabulary to terminal settlement.
func (e PaymentEvent) Settled() bool {
	switch strings.ToLower(e.ProviderStatus) {
	case "finished", "confirmed", "paid", "completed":
		return true
	}
	return false
}

// Merge folds the event into a prior payment record. Fields present in the
// event overwrite, absent fields are preserved. TxID is written only on a
// settled event so a late non-terminal delivery never erases a recorded
// transaction.
func (e PaymentEvent) Merge(prev *Payment) *Payment {
	p := Payment{}
	if prev != nil {
		p = *prev
	}
	if e.Provider != "" {
		p.Provider = e.Provider
	}
	if e.InvoiceID != "" {
		p.InvoiceID = e.InvoiceID
	}
	if e.PaymentID != "" {
		p.PaymentID = e.PaymentID
	}
	if e.PayCurrency != "" {
		p.PayCurrency = e.PayCurrency
	}
	if e.PayAmount != nil {
		p.PayAmount = *e.PayAmount
	}
	if e.ActuallyPaid != nil {
		p.ActuallyPaid = *e.ActuallyPaid
	}
	if e.ProviderStatus != "" {
		p.ProviderStatus = e.ProviderStatus
	}
	if e.Settled() && e.TxID != "" {
		p.TxID = e.TxID
	}
	return &p
}
