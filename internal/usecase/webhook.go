package usecase

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"hash"

	"lockerhub-backend/internal/domain"
)

// ProviderKind tags the two payload families accepted on the single
// webhook endpoint. Classification is by shape, not by routing parameter.
type ProviderKind string

const (
	ProviderLegacy      ProviderKind = "legacy"
	ProviderNowPayments ProviderKind = "nowpayments"
	ProviderUnsupported ProviderKind = ""
)

// WebhookNormalizer authenticates a raw provider notification and maps it
// to the canonical payment event. An empty secret disables verification
// for that family: that is an explicit configuration opt-out, surfaced at
// startup, not a fallback.
type WebhookNormalizer struct {
	LegacySecret      string
	NowPaymentsSecret string
}

type legacyPayload struct {
	InvoiceID string `json:"invoiceId"`
	OrderID   string `json:"orderId"`
	Status    string `json:"status"`
}

type nowPaymentsPayload struct {
	PaymentID       json.Number `json:"payment_id"`
	InvoiceID       json.Number `json:"invoice_id"`
	OrderID         string      `json:"order_id"`
	PaymentStatus   string      `json:"payment_status"`
	PayCurrency     string      `json:"pay_currency"`
	PayAmount       *float64    `json:"pay_amount"`
	ActuallyPaid    *float64    `json:"actually_paid"`
	TxID            string      `json:"txid"`
	TransactionHash string      `json:"transaction_hash"`
}

// Classify decides the payload family from key presence alone.
func Classify(raw []byte) ProviderKind {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return ProviderUnsupported
	}
	if _, ok := keys["invoiceId"]; ok {
		return ProviderLegacy
	}
	if _, ok := keys["status"]; ok {
		return ProviderLegacy
	}
	if _, ok := keys["payment_id"]; ok {
		return ProviderNowPayments
	}
	if _, ok := keys["order_id"]; ok {
		return ProviderNowPayments
	}
	return ProviderUnsupported
}

// Normalize verifies the family-specific signature over the exact raw body
// bytes, then decodes the variant into the canonical event. A signature
// failure means the order store is never touched.
func (n *WebhookNormalizer) Normalize(raw []byte, legacySig, nowPaymentsSig string) (domain.PaymentEvent, error) {
	if !json.Valid(raw) {
		return domain.PaymentEvent{}, ErrValidation("invalid JSON")
	}
	switch Classify(raw) {
	case ProviderLegacy:
		if !verifyHMAC(raw, n.LegacySecret, legacySig, sha256.New) {
			return domain.PaymentEvent{}, ErrUnauthorized("invalid signature")
		}
		var p legacyPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return domain.PaymentEvent{}, ErrValidation("invalid JSON")
		}
		return domain.PaymentEvent{
			Provider:       string(ProviderLegacy),
			OrderID:        p.OrderID,
			InvoiceID:      p.InvoiceID,
			ProviderStatus: p.Status,
		}, nil

	case ProviderNowPayments:
		if !verifyHMAC(raw, n.NowPaymentsSecret, nowPaymentsSig, sha512.New) {
			return domain.PaymentEvent{}, ErrUnauthorized("invalid signature")
		}
		var p nowPaymentsPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return domain.PaymentEvent{}, ErrValidation("invalid JSON")
		}
		txID := p.TxID
		if txID == "" {
			txID = p.TransactionHash
		}
		return domain.PaymentEvent{
			Provider:       string(ProviderNowPayments),
			OrderID:        p.OrderID,
			InvoiceID:      p.InvoiceID.String(),
			PaymentID:      p.PaymentID.String(),
			ProviderStatus: p.PaymentStatus,
			PayCurrency:    p.PayCurrency,
			PayAmount:      p.PayAmount,
			ActuallyPaid:   p.ActuallyPaid,
			TxID:           txID,
		}, nil
	}
	return domain.PaymentEvent{}, ErrValidation("unsupported payload")
}

// verifyHMAC compares a header-carried hex digest against an HMAC of the
// raw body. An unconfigured secret passes vacuously.
func verifyHMAC(raw []byte, secret, sig string, h func() hash.Hash) bool {
	if secret == "" {
		return true
	}
	if sig == "" {
		return false
	}
	mac := hmac.New(h, []byte(secret))
	mac.Write(raw)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(sig))
}
