package nowpayments

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lockerhub-backend/internal/usecase"
)

const invoiceURL = "https://api.nowpayments.io/v1/invoice"

// Client creates hosted NOWPayments invoices.
type Client struct {
	APIKey string
	HTTP   *http.Client
}

type invoiceReq struct {
	PriceAmount     float64 `json:"price_amount"`
	PriceCurrency   string  `json:"price_currency"`
	PayCurrency     string  `json:"pay_currency"`
	OrderID         string  `json:"order_id"`
	IPNCallbackURL  string  `json:"ipn_callback_url"`
	SuccessURL      string  `json:"success_url"`
	CancelURL       string  `json:"cancel_url"`
	IsFeePaidByUser bool    `json:"is_fee_paid_by_user"`
}

type invoiceResp struct {
	ID            json.Number `json:"id"`
	InvoiceURL    string      `json:"invoice_url"`
	PriceAmount   json.Number `json:"price_amount"`
	PriceCurrency string      `json:"price_currency"`
	PayCurrency   string      `json:"pay_currency"`
	Message       string      `json:"message"`
}

func (c *Client) CreateInvoice(req usecase.InvoiceRequest) (*usecase.Invoice, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, fmt.Errorf("nowpayments api key missing")
	}
	raw, err := json.Marshal(invoiceReq{
		PriceAmount:     req.PriceAmount,
		PriceCurrency:   req.PriceCurrency,
		PayCurrency:     req.PayCurrency,
		OrderID:         req.OrderID,
		IPNCallbackURL:  req.IPNCallbackURL,
		SuccessURL:      req.SuccessURL,
		CancelURL:       req.CancelURL,
		IsFeePaidByUser: true,
	})
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequest(http.MethodPost, invoiceURL, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.APIKey)

	hc := c.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := hc.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	var out invoiceResp
	_ = json.Unmarshal(body, &out)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || out.ID.String() == "" || out.InvoiceURL == "" {
		msg := out.Message
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		return nil, fmt.Errorf("nowpayments invoice error: %s", msg)
	}
	amount, _ := out.PriceAmount.Float64()
	return &usecase.Invoice{
		ID:            out.ID.String(),
		URL:           out.InvoiceURL,
		PriceAmount:   amount,
		PriceCurrency: out.PriceCurrency,
		PayCurrency:   out.PayCurrency,
	}, nil
}
