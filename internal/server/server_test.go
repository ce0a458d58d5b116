package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lockerhub-backend/internal/config"
	"lockerhub-backend/internal/domain"
	"lockerhub-backend/internal/infrastructure/repo"
	"lockerhub-backend/internal/usecase"
)

type stubSMS struct{ fail bool }

func (s *stubSMS) SendSMS(to, body string) error {
	if s.fail {
		return errors.New("sms gateway down")
	}
	return nil
}

type stubEmail struct{}

func (e *stubEmail) SendEmail(to, subject, html string) error { return nil }

type stubInvoices struct{}

func (f *stubInvoices) CreateInvoice(req usecase.InvoiceRequest) (*usecase.Invoice, error) {
	return &usecase.Invoice{
		ID:            "inv-100",
		URL:           "https://nowpayments.io/payment/?iid=inv-100",
		PriceAmount:   req.PriceAmount,
		PriceCurrency: req.PriceCurrency,
		PayCurrency:   req.PayCurrency,
	}, nil
}

func newTestServer(mode usecase.OTPMode, legacySecret string) (*Server, *repo.MemoryOrderRepo) {
	r := repo.NewMemoryOrderRepo()
	otp := &usecase.OTPService{
		Repo:               r,
		SMS:                &stubSMS{},
		Email:              &stubEmail{},
		Mode:               mode,
		JWTSecret:          "test-secret",
		SiteURL:            "https://lockerhub.example",
		DefaultCountryCode: "44",
	}
	orders := &usecase.OrderService{
		Repo:    r,
		OTP:     otp,
		Email:   &stubEmail{},
		SiteURL: "https://lockerhub.example",
	}
	payments := &usecase.PaymentService{
		Repo:     r,
		Invoices: &stubInvoices{},
		SiteURL:  "https://lockerhub.example",
	}
	normalizer := &usecase.WebhookNormalizer{LegacySecret: legacySecret}
	return New(config.Config{Env: "test"}, orders, otp, payments, normalizer, nil), r
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var decoded map[string]any
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("%s %s: response is not JSON: %v\n%s", method, path, err, w.Body.String())
		}
	}
	return w.Code, decoded
}

func seed(t *testing.T, r *repo.MemoryOrderRepo, status domain.OrderStatus) *domain.Order {
	t.Helper()
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
	if err := r.Create(o); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return o
}

const createBody = `{
	"productId": "prod-1", "productName": "Locker Box", "priceGbp": 100,
	"hubId": "hub-1", "hubName": "Camden Hub", "hubPostcode": "NW1 8QL",
	"customerName": "Alex", "customerPhone": "07123456789", "customerEmail": "alex@example.com"
}`

func TestCreateAndGetOrder(t *testing.T) {
	s, _ := newTestServer(usecase.OTPModeSMS, "")

	code, body := do(t, s.Handler(), http.MethodPost, "/api/orders", createBody, nil)
	if code != http.StatusOK {
		t.Fatalf("create status = %d, body %v", code, body)
	}
	orderID, _ := body["orderId"].(string)
	if !strings.HasPrefix(orderID, "ORD-") {
		t.Fatalf("orderId = %q", orderID)
	}
	if body["status"] != "otp_pending" {
		t.Errorf("status = %v, want otp_pending", body["status"])
	}

	code, body = do(t, s.Handler(), http.MethodGet, "/api/orders/"+orderID, "", nil)
	if code != http.StatusOK || body["orderId"] != orderID {
		t.Errorf("get: status %d, body %v", code, body)
	}

	code, _ = do(t, s.Handler(), http.MethodGet, "/api/orders/ORD-NOPE", "", nil)
	if code != http.StatusNotFound {
		t.Errorf("unknown order status = %d, want 404", code)
	}

	code, _ = do(t, s.Handler(), http.MethodPost, "/api/orders", `{broken`, nil)
	if code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", code)
	}

	code, _ = do(t, s.Handler(), http.MethodPost, "/api/orders", `{"productId":"prod-1"}`, nil)
	if code != http.StatusBadRequest {
		t.Errorf("incomplete order status = %d, want 400", code)
	}
}

func TestVerifyEndpoint(t *testing.T) {
	s, r := newTestServer(usecase.OTPModeSMS, "")

	_, body := do(t, s.Handler(), http.MethodPost, "/api/orders", createBody, nil)
	orderID := body["orderId"].(string)
	stored, _ := r.GetByID(orderID)

	code, _ := do(t, s.Handler(), http.MethodPost, "/api/orders/"+orderID+"/verify", `{"code":"000000x"}`, nil)
	if code != http.StatusBadRequest {
		t.Errorf("wrong code status = %d, want 400", code)
	}
	code, _ = do(t, s.Handler(), http.MethodPost, "/api/orders/"+orderID+"/verify", `{}`, nil)
	if code != http.StatusBadRequest {
		t.Errorf("missing code status = %d, want 400", code)
	}

	code, body = do(t, s.Handler(), http.MethodPost, "/api/orders/"+orderID+"/verify", `{"code":"`+stored.OTPCode+`"}`, nil)
	if code != http.StatusOK || body["verifiedAt"] == nil {
		t.Fatalf("verify: status %d, body %v", code, body)
	}

	code, body = do(t, s.Handler(), http.MethodPost, "/api/orders/"+orderID+"/verify", `{"code":"`+stored.OTPCode+`"}`, nil)
	if code != http.StatusOK || body["alreadyVerified"] != true {
		t.Errorf("repeat verify: status %d, body %v", code, body)
	}
}

func TestVerifyLinkEndpoint(t *testing.T) {
	s, r := newTestServer(usecase.OTPModeEmail, "")

	_, body := do(t, s.Handler(), http.MethodPost, "/api/orders", createBody, nil)
	orderID := body["orderId"].(string)
	stored, _ := r.GetByID(orderID)
	if stored.OTPToken == "" {
		t.Fatal("no link token issued in email mode")
	}

	code, _ := do(t, s.Handler(), http.MethodGet, "/api/verify-link?orderId="+orderID, "", nil)
	if code != http.StatusBadRequest {
		t.Errorf("missing token status = %d, want 400", code)
	}

	code, body = do(t, s.Handler(), http.MethodGet,
		"/api/verify-link?orderId="+orderID+"&token="+stored.OTPToken, "", nil)
	if code != http.StatusOK || body["ok"] != true {
		t.Fatalf("verify-link: status %d, body %v", code, body)
	}
	after, _ := r.GetByID(orderID)
	if after.Status != domain.OrderVerified {
		t.Errorf("status = %q, want verified", after.Status)
	}
}

func signLegacy(secret, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestWebhookSignatureGate(t *testing.T) {
	s, r := newTestServer(usecase.OTPModeSMS, "hook-secret")
	o := seed(t, r, domain.OrderInvoiced)
	o.Payment = &domain.Payment{Provider: "nowpayments", InvoiceID: "inv-1"}
	_ = r.Update(o.OrderID, domain.Patch{Payment: &o.Payment})

	body := `{"invoiceId":"inv-1","status":"paid"}`

	code, _ := do(t, s.Handler(), http.MethodPost, "/api/payments/webhook", body, nil)
	if code != http.StatusUnauthorized {
		t.Fatalf("unsigned webhook status = %d, want 401", code)
	}
	code, _ = do(t, s.Handler(), http.MethodPost, "/api/payments/webhook", body,
		map[string]string{"x-signature": "deadbeef"})
	if code != http.StatusUnauthorized {
		t.Fatalf("forged webhook status = %d, want 401", code)
	}
	// rejected deliveries never touch the store
	stored, _ := r.GetByID(o.OrderID)
	if stored.Status != domain.OrderInvoiced || stored.PaidAt != nil {
		t.Fatalf("rejected webhook mutated the order: %+v", stored)
	}

	code, _ = do(t, s.Handler(), http.MethodPost, "/api/payments/webhook", body,
		map[string]string{"x-signature": signLegacy("hook-secret", body)})
	if code != http.StatusOK {
		t.Fatalf("signed webhook status = %d, want 200", code)
	}
	stored, _ = r.GetByID(o.OrderID)
	if stored.Status != domain.OrderPaid {
		t.Errorf("status = %q, want paid", stored.Status)
	}
}

func TestWebhookIdempotentAndUnmatched(t *testing.T) {
	s, r := newTestServer(usecase.OTPModeSMS, "")
	o := seed(t, r, domain.OrderInvoiced)
	o.Payment = &domain.Payment{Provider: "nowpayments", InvoiceID: "inv-1"}
	_ = r.Update(o.OrderID, domain.Patch{Payment: &o.Payment})

	body := `{"invoiceId":"inv-1","status":"paid"}`
	code, resp := do(t, s.Handler(), http.MethodPost, "/api/payments/webhook", body, nil)
	if code != http.StatusOK || resp["ok"] != true {
		t.Fatalf("first delivery: status %d, body %v", code, resp)
	}
	code, resp = do(t, s.Handler(), http.MethodPost, "/api/payments/webhook", body, nil)
	if code != http.StatusOK || resp["message"] != "Already paid" {
		t.Fatalf("duplicate delivery: status %d, body %v", code, resp)
	}

	code, resp = do(t, s.Handler(), http.MethodPost, "/api/payments/webhook",
		`{"invoiceId":"inv-unknown","status":"pending"}`, nil)
	if code != http.StatusNotFound {
		t.Errorf("unmatched event status = %d, body %v, want 404", code, resp)
	}

	code, resp = do(t, s.Handler(), http.MethodPost, "/api/payments/webhook", `{"foo":"bar"}`, nil)
	if code != http.StatusBadRequest {
		t.Errorf("unsupported payload status = %d, body %v, want 400", code, resp)
	}
}

func TestCreatePaymentConflict(t *testing.T) {
	s, r := newTestServer(usecase.OTPModeSMS, "")
	o := seed(t, r, domain.OrderVerified)

	code, _ := do(t, s.Handler(), http.MethodPost, "/api/payments",
		`{"orderId":"`+o.OrderID+`","network":"TRC20"}`, nil)
	if code != http.StatusOK {
		t.Fatalf("create payment status = %d", code)
	}

	code, body := do(t, s.Handler(), http.MethodPost, "/api/payments",
		`{"orderId":"`+o.OrderID+`","network":"TRC20"}`, nil)
	if code != http.StatusConflict {
		t.Fatalf("duplicate invoice status = %d, want 409", code)
	}
	if body["invoiceId"] != "inv-100" || body["payUrl"] == nil {
		t.Errorf("conflict does not carry the open invoice: %v", body)
	}

	code, _ = do(t, s.Handler(), http.MethodPost, "/api/payments", `{"orderId":"`+o.OrderID+`"}`, nil)
	if code != http.StatusBadRequest {
		t.Errorf("missing network status = %d, want 400", code)
	}
}

func TestAdminUpdateEndpoint(t *testing.T) {
	s, r := newTestServer(usecase.OTPModeSMS, "")
	o := seed(t, r, domain.OrderPaid)

	code, body := do(t, s.Handler(), http.MethodPost, "/api/admin/orders/"+o.OrderID,
		`{"trackingNumber":"TRK-9","password":"collect-42","sendEmail":true}`, nil)
	if code != http.StatusOK || body["ok"] != true {
		t.Fatalf("admin update: status %d, body %v", code, body)
	}
	if body["emailSent"] != true {
		t.Errorf("emailSent = %v, want true", body["emailSent"])
	}
	stored, _ := r.GetByID(o.OrderID)
	if stored.TrackingNumber != "TRK-9" || stored.Password != "collect-42" {
		t.Errorf("fields not stored: %+v", stored)
	}

	code, _ = do(t, s.Handler(), http.MethodPost, "/api/admin/orders/ORD-NOPE", `{}`, nil)
	if code != http.StatusNotFound {
		t.Errorf("unknown order status = %d, want 404", code)
	}
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(usecase.OTPModeSMS, "")
	req := httptest.NewRequest(http.MethodOptions, "/api/orders", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("missing CORS header")
	}
}
