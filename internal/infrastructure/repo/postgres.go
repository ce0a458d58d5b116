package repo

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"lockerhub-backend/internal/domain"
	"lockerhub-backend/internal/usecase"
)

// PostgresOrderRepo stores the flat order record. The payment block lives
// in a JSON column; the two webhook lookup keys get their own indexed
// columns so reconciliation never scans JSON.
type PostgresOrderRepo struct {
	db *sql.DB
}

func NewPostgresOrderRepo(dsn string) (*PostgresOrderRepo, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	r := &PostgresOrderRepo{db: db}
	if err := r.init(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *PostgresOrderRepo) init() error {
	_, err := r.db.Exec(`CREATE TABLE IF NOT EXISTS orders (
		order_id TEXT PRIMARY KEY,
		status TEXT NOT NULL DEFAULT 'pending',
		product_id TEXT,
		product_name TEXT,
		base_price_gbp DOUBLE PRECISION,
		price_gbp DOUBLE PRECISION,
		pickup_surcharge_gbp DOUBLE PRECISION,
		pickup_option TEXT,
		hub_id TEXT,
		hub_name TEXT,
		hub_postcode TEXT,
		customer_name TEXT,
		customer_phone TEXT,
		customer_email TEXT,
		notes TEXT,
		tracking_number TEXT,
		password TEXT,
		payment_payload TEXT,
		payment_invoice_id TEXT,
		payment_payment_id TEXT,
		otp_code TEXT,
		otp_token TEXT,
		otp_expires_at TIMESTAMPTZ,
		otp_verified_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ,
		paid_at TIMESTAMPTZ
	);`)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`CREATE INDEX IF NOT EXISTS orders_payment_invoice_id ON orders (payment_invoice_id);`)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`CREATE INDEX IF NOT EXISTS orders_payment_payment_id ON orders (payment_payment_id);`)
	return err
}

const orderColumns = `order_id, status, product_id, product_name, base_price_gbp, price_gbp,
	pickup_surcharge_gbp, pickup_option, hub_id, hub_name, hub_postcode,
	customer_name, customer_phone, customer_email, notes, tracking_number, password,
	payment_payload, otp_code, otp_token, otp_expires_at, otp_verified_at,
	created_at, updated_at, paid_at`

func (r *PostgresOrderRepo) Create(o *domain.Order) error {
	payload, invoiceID, paymentID := serializePayment(o.Payment)
	_, err := r.db.Exec(`INSERT INTO orders (`+orderColumns+`, payment_invoice_id, payment_payment_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27)`,
		o.OrderID, string(o.Status), o.ProductID, o.ProductName, o.BasePriceGbp, o.PriceGbp,
		o.PickupSurchargeGbp, o.PickupOption, o.HubID, o.HubName, o.HubPostcode,
		o.CustomerName, o.CustomerPhone, o.CustomerEmail, o.Notes, o.TrackingNumber, o.Password,
		payload, o.OTPCode, o.OTPToken, o.OTPExpiresAt, o.OTPVerifiedAt,
		o.CreatedAt, o.UpdatedAt, o.PaidAt, invoiceID, paymentID)
	return err
}

func (r *PostgresOrderRepo) GetByID(orderID string) (*domain.Order, bool) {
	return r.getWhere("order_id = $1", orderID)
}

func (r *PostgresOrderRepo) GetByField(field, value string) (*domain.Order, bool) {
	if value == "" {
		return nil, false
	}
	switch field {
	case usecase.FieldInvoiceID:
		return r.getWhere("payment_invoice_id = $1", value)
	case usecase.FieldPaymentID:
		return r.getWhere("payment_payment_id = $1", value)
	}
	return nil, false
}

func (r *PostgresOrderRepo) getWhere(cond string, arg any) (*domain.Order, bool) {
	row := r.db.QueryRow(`SELECT `+orderColumns+` FROM orders WHERE `+cond+` LIMIT 1`, arg)
	var (
		o       domain.Order
		status  string
		payload sql.NullString
	)
	err := row.Scan(&o.OrderID, &status, &o.ProductID, &o.ProductName, &o.BasePriceGbp, &o.PriceGbp,
		&o.PickupSurchargeGbp, &o.PickupOption, &o.HubID, &o.HubName, &o.HubPostcode,
		&o.CustomerName, &o.CustomerPhone, &o.CustomerEmail, &o.Notes, &o.TrackingNumber, &o.Password,
		&payload, &o.OTPCode, &o.OTPToken, &o.OTPExpiresAt, &o.OTPVerifiedAt,
		&o.CreatedAt, &o.UpdatedAt, &o.PaidAt)
	if err != nil {
		return nil, false
	}
	o.Status = domain.ParseStatus(status)
	if payload.Valid && payload.String != "" {
		var p domain.Payment
		if err := json.Unmarshal([]byte(payload.String), &p); err == nil {
			o.Payment = &p
		}
	}
	return &o, true
}

func (r *PostgresOrderRepo) Update(orderID string, patch domain.Patch) error {
	set := []string{}
	args := []any{}
	add := func(col string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Status != nil {
		add("status", string(*patch.Status))
	}
	if patch.TrackingNumber != nil {
		add("tracking_number", *patch.TrackingNumber)
	}
	if patch.Password != nil {
		add("password", *patch.Password)
	}
	if patch.Payment != nil {
		payload, invoiceID, paymentID := serializePayment(*patch.Payment)
		add("payment_payload", payload)
		add("payment_invoice_id", invoiceID)
		add("payment_payment_id", paymentID)
	}
	if patch.OTPCode != nil {
		add("otp_code", *patch.OTPCode)
	}
	if patch.OTPToken != nil {
		add("otp_token", *patch.OTPToken)
	}
	if patch.OTPExpiresAt != nil {
		add("otp_expires_at", nullableTime(*patch.OTPExpiresAt))
	}
	if patch.OTPVerifiedAt != nil {
		add("otp_verified_at", nullableTime(*patch.OTPVerifiedAt))
	}
	if patch.PaidAt != nil {
		add("paid_at", nullableTime(*patch.PaidAt))
	}
	if patch.UpdatedAt != nil {
		add("updated_at", *patch.UpdatedAt)
	}
	if len(set) == 0 {
		return nil
	}
	args = append(args, orderID)
	q := fmt.Sprintf("UPDATE orders SET %s WHERE order_id = $%d", strings.Join(set, ", "), len(args))
	res, err := r.db.Exec(q, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func serializePayment(p *domain.Payment) (payload, invoiceID, paymentID string) {
	if p == nil {
		return "", "", ""
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", p.InvoiceID, p.PaymentID
	}
	return string(b), p.InvoiceID, p.PaymentID
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
