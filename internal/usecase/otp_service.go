package usecase

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"lockerhub-backend/internal/domain"
)

// SMSSender delivers a one-time code out of band.
type SMSSender interface {
	SendSMS(to, body string) error
}

// EmailSender delivers transactional mail.
type EmailSender interface {
	SendEmail(to, subject, html string) error
}

type OTPMode string

const (
	OTPModeSMS   OTPMode = "sms"
	OTPModeEmail OTPMode = "email"
)

const otpTTL = 10 * time.Minute

// OTPService issues and verifies single-use verification credentials:
// a 6-digit code delivered by SMS, or a signed link token delivered by
// email, selected per deployment. Only the latest issued credential is
// live; both are cleared together when verification succeeds.
type OTPService struct {
	Repo               OrderRepo
	SMS                SMSSender
	Email              EmailSender
	Notify             *NotifyRouter
	Mode               OTPMode
	JWTSecret          string
	SiteURL            string
	DefaultCountryCode string
	Now                func() time.Time
}

func (s *OTPService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// NewCredential stamps a fresh credential onto the order, replacing any
// previous one. The caller persists.
func (s *OTPService) NewCredential(o *domain.Order) error {
	exp := s.now().Add(otpTTL)
	o.OTPExpiresAt = &exp
	o.OTPVerifiedAt = nil
	switch s.Mode {
	case OTPModeEmail:
		tok, err := s.newToken(o.OrderID, exp)
		if err != nil {
			return err
		}
		o.OTPToken = tok
		o.OTPCode = ""
	default:
		o.OTPCode = newOTPCode()
		o.OTPToken = ""
	}
	return nil
}

// Deliver sends the order's current credential over the configured channel.
func (s *OTPService) Deliver(o *domain.Order) error {
	switch s.Mode {
	case OTPModeEmail:
		if o.CustomerEmail == "" {
			return ErrValidation("email address required for OTP")
		}
		link := fmt.Sprintf("%s/verify.html?orderId=%s&token=%s", s.SiteURL, o.OrderID, o.OTPToken)
		html := fmt.Sprintf(
			"<p>Hi %s,</p><p>Confirm your order <strong>%s</strong> by opening this link:</p><p><a href=%q>%s</a></p><p>The link expires in 10 minutes.</p>",
			orNA(o.CustomerName), o.OrderID, link, link)
		if err := s.Email.SendEmail(o.CustomerEmail, fmt.Sprintf("Confirm your LockerHub order %s", o.OrderID), html); err != nil {
			return ErrUpstream("could not send verification email: " + err.Error())
		}
	default:
		phone := domain.NormalizePhone(o.CustomerPhone, s.DefaultCountryCode)
		if phone == "" {
			return ErrValidation("phone number required for OTP")
		}
		body := fmt.Sprintf("Your LockerHub verification code is %s. It expires in 10 minutes.", o.OTPCode)
		if err := s.SMS.SendSMS(phone, body); err != nil {
			return ErrUpstream("could not send verification code: " + err.Error())
		}
	}
	return nil
}

type OTPIssue struct {
	ExpiresAt     time.Time `json:"expiresAt"`
	MaskedContact string    `json:"maskedContact"`
}

// Issue generates and persists a fresh credential for the order, then
// dispatches it. The credential is durably written before delivery is
// attempted, so a delivery failure leaves an issued-but-undelivered
// credential behind; retrying delivery is the caller's business.
func (s *OTPService) Issue(orderID, contactOverride string) (*OTPIssue, error) {
	o, ok := s.Repo.GetByID(orderID)
	if !ok {
		return nil, ErrNotFound("order")
	}
	if contactOverride != "" {
		if s.Mode == OTPModeEmail {
			o.CustomerEmail = contactOverride
		} else {
			o.CustomerPhone = contactOverride
		}
	}
	if err := s.NewCredential(o); err != nil {
		return nil, err
	}

	var masked string
	if s.Mode == OTPModeEmail {
		if o.CustomerEmail == "" {
			return nil, ErrValidation("email address required for OTP")
		}
		masked = domain.MaskEmail(o.CustomerEmail)
	} else {
		phone := domain.NormalizePhone(o.CustomerPhone, s.DefaultCountryCode)
		if phone == "" {
			return nil, ErrValidation("phone number required for OTP")
		}
		o.CustomerPhone = phone
		masked = domain.MaskPhone(phone)
	}

	now := s.now()
	var cleared *time.Time
	patch := domain.Patch{
		OTPCode:       &o.OTPCode,
		OTPToken:      &o.OTPToken,
		OTPExpiresAt:  &o.OTPExpiresAt,
		OTPVerifiedAt: &cleared,
		UpdatedAt:     &now,
	}
	if err := s.Repo.Update(o.OrderID, patch); err != nil {
		return nil, ErrUpstream("could not store verification code: " + err.Error())
	}
	if err := s.Deliver(o); err != nil {
		return nil, err
	}
	s.advance(o, domain.OrderOTPPending)
	return &OTPIssue{ExpiresAt: *o.OTPExpiresAt, MaskedContact: masked}, nil
}

type VerifyResult struct {
	AlreadyVerified bool       `json:"alreadyVerified,omitempty"`
	VerifiedAt      *time.Time `json:"verifiedAt,omitempty"`
}

// Verify checks a numeric code.
func (s *OTPService) Verify(orderID, code string) (*VerifyResult, error) {
	return s.verify(orderID, code, func(o *domain.Order) string { return o.OTPCode })
}

// VerifyLink checks a link token.
func (s *OTPService) VerifyLink(orderID, token string) (*VerifyResult, error) {
	return s.verify(orderID, token, func(o *domain.Order) string { return o.OTPToken })
}

func (s *OTPService) verify(orderID, supplied string, stored func(*domain.Order) string) (*VerifyResult, error) {
	o, ok := s.Repo.GetByID(orderID)
	if !ok {
		return nil, ErrNotFound("order")
	}
	// Repeated verification after success is an idempotent no-op.
	if o.OTPVerifiedAt != nil {
		return &VerifyResult{AlreadyVerified: true, VerifiedAt: o.OTPVerifiedAt}, nil
	}
	want := stored(o)
	if want == "" {
		return nil, ErrOTPNotIssued
	}
	if o.OTPExpiresAt != nil && s.now().After(*o.OTPExpiresAt) {
		return nil, ErrOTPExpired
	}
	if supplied != want {
		return nil, ErrOTPMismatch
	}

	verifiedAt := s.now()
	vp := &verifiedAt
	empty := ""
	var clearedExp *time.Time
	status := domain.AdvanceStatus(o.Status, domain.OrderVerified)
	patch := domain.Patch{
		Status:        &status,
		OTPCode:       &empty,
		OTPToken:      &empty,
		OTPExpiresAt:  &clearedExp,
		OTPVerifiedAt: &vp,
		UpdatedAt:     &verifiedAt,
	}
	if err := s.Repo.Update(o.OrderID, patch); err != nil {
		return nil, ErrUpstream("could not store verification: " + err.Error())
	}
	patch.Apply(o)

	if s.Notify != nil {
		text := fmt.Sprintf("✅ OTP verified for <b>%s</b>\nStatus: Ready for payment\n%s", o.OrderID, orderSummary(o))
		s.Notify.OrderEvent(o, text)
	}
	return &VerifyResult{VerifiedAt: &verifiedAt}, nil
}

func (s *OTPService) advance(o *domain.Order, next domain.OrderStatus) {
	status := domain.AdvanceStatus(o.Status, next)
	if status == o.Status {
		return
	}
	now := s.now()
	_ = s.Repo.Update(o.OrderID, domain.Patch{Status: &status, UpdatedAt: &now})
	o.Status = status
}

func (s *OTPService) newToken(orderID string, exp time.Time) (string, error) {
	claims := jwt.MapClaims{
		"order_id": orderID,
		"exp":      exp.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(s.JWTSecret))
	if err != nil {
		return "", err
	}
	return signed, nil
}

func newOTPCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "000000"
	}
	return fmt.Sprintf("%06d", n.Int64()+100000)
}
