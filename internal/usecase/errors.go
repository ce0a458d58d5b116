package usecase

import "lockerhub-backend/internal/domain"

type ErrValidation string

func (e ErrValidation) Error() string { return string(e) }

type ErrNotFound string

func (e ErrNotFound) Error() string { return string(e) + " not found" }

type ErrConflict string

func (e ErrConflict) Error() string { return string(e) }

type ErrUnauthorized string

func (e ErrUnauthorized) Error() string { return string(e) }

type ErrUpstream string

func (e ErrUpstream) Error() string { return string(e) }

// OTP verification failures. Expired and mismatch are client errors with
// distinct messages; verifying before any credential was issued is a
// missing-resource case.
var (
	ErrOTPNotIssued = ErrNotFound("verification code for this order")
	ErrOTPExpired   = ErrValidation("code expired")
	ErrOTPMismatch  = ErrValidation("invalid code")
)

// InvoiceConflictError reports a create-invoice request against an order
// that already holds an open, unpaid invoice. The existing invoice is
// carried so the caller can reuse it instead of paying twice.
type InvoiceConflictError struct {
	Existing *domain.Payment
}

func (e *InvoiceConflictError) Error() string {
	return "order already has an open invoice " + e.Existing.InvoiceID
}
