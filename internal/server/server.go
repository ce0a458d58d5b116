package server

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"lockerhub-backend/internal/config"
	"lockerhub-backend/internal/infrastructure/bank"
	"lockerhub-backend/internal/usecase"
)

type Server struct {
	cfg        config.Config
	orders     *usecase.OrderService
	otp        *usecase.OTPService
	payments   *usecase.PaymentService
	normalizer *usecase.WebhookNormalizer
	bank       *bank.Details
	engine     *gin.Engine
}

func New(cfg config.Config, orders *usecase.OrderService, otp *usecase.OTPService,
	payments *usecase.PaymentService, normalizer *usecase.WebhookNormalizer, bankDetails *bank.Details) *Server {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{
		cfg:        cfg,
		orders:     orders,
		otp:        otp,
		payments:   payments,
		normalizer: normalizer,
		bank:       bankDetails,
		engine:     gin.Default(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	s.engine.Use(cors())
	api := s.engine.Group("/api")
	api.POST("/orders", s.handleCreateOrder)
	api.GET("/orders/:orderId", s.handleGetOrder)
	api.POST("/orders/:orderId/otp", s.handleRequestOTP)
	api.POST("/orders/:orderId/verify", s.handleVerifyOTP)
	api.GET("/verify-link", s.handleVerifyLink)
	api.POST("/payments", s.handleCreatePayment)
	api.POST("/payments/webhook", s.handlePaymentWebhook)
	api.POST("/admin/orders/:orderId", s.handleAdminUpdate)
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "*")
		c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) handleCreateOrder(c *gin.Context) {
	var in usecase.CreateOrderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	o, err := s.orders.Create(in)
	if err != nil {
		s.fail(c, err)
		return
	}
	resp := gin.H{"orderId": o.OrderID, "status": o.Status}
	if s.bank != nil {
		resp["bankDetails"] = s.bank
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleGetOrder(c *gin.Context) {
	o, err := s.orders.Get(c.Param("orderId"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (s *Server) handleRequestOTP(c *gin.Context) {
	var in struct {
		Phone string `json:"phone"`
		Email string `json:"email"`
	}
	_ = c.ShouldBindJSON(&in)
	override := strings.TrimSpace(in.Phone)
	if override == "" {
		override = strings.TrimSpace(in.Email)
	}
	issue, err := s.otp.Issue(c.Param("orderId"), override)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "expiresAt": issue.ExpiresAt, "maskedContact": issue.MaskedContact})
}

func (s *Server) handleVerifyOTP(c *gin.Context) {
	var in struct {
		Code string `json:"code"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || strings.TrimSpace(in.Code) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing code"})
		return
	}
	res, err := s.otp.Verify(c.Param("orderId"), strings.TrimSpace(in.Code))
	s.respondVerify(c, res, err)
}

func (s *Server) handleVerifyLink(c *gin.Context) {
	orderID := strings.TrimSpace(c.Query("orderId"))
	token := strings.TrimSpace(c.Query("token"))
	if orderID == "" || token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing orderId or token"})
		return
	}
	res, err := s.otp.VerifyLink(orderID, token)
	s.respondVerify(c, res, err)
}

func (s *Server) respondVerify(c *gin.Context, res *usecase.VerifyResult, err error) {
	if err != nil {
		s.fail(c, err)
		return
	}
	if res.AlreadyVerified {
		c.JSON(http.StatusOK, gin.H{"ok": true, "alreadyVerified": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "verifiedAt": res.VerifiedAt})
}

func (s *Server) handleCreatePayment(c *gin.Context) {
	var in struct {
		OrderID string `json:"orderId"`
		Network string `json:"network"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || in.OrderID == "" || in.Network == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing orderId or network"})
		return
	}
	res, err := s.payments.CreateInvoice(in.OrderID, in.Network)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handlePaymentWebhook(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid body"})
		return
	}
	ev, err := s.normalizer.Normalize(raw,
		c.GetHeader("x-signature"),
		c.GetHeader("x-nowpayments-sig"))
	if err != nil {
		s.fail(c, err)
		return
	}
	res, err := s.payments.Reconcile(ev)
	if err != nil {
		s.fail(c, err)
		return
	}
	if res.AlreadyPaid {
		c.JSON(http.StatusOK, gin.H{"ok": true, "message": "Already paid"})
		return
	}
	if !res.Settled {
		c.JSON(http.StatusOK, gin.H{"ok": true, "status": "ignored"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleAdminUpdate(c *gin.Context) {
	var in usecase.AdminUpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	orderID := c.Param("orderId")
	emailSent, err := s.orders.AdminUpdate(orderID, in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "orderId": orderID, "emailSent": emailSent})
}

// fail maps usecase errors to HTTP statuses. Client errors keep their
// specific message; anything unexpected is logged and surfaced as a
// generic server error.
func (s *Server) fail(c *gin.Context, err error) {
	var (
		validation   usecase.ErrValidation
		notFound     usecase.ErrNotFound
		conflict     usecase.ErrConflict
		unauthorized usecase.ErrUnauthorized
		upstream     usecase.ErrUpstream
		invConflict  *usecase.InvoiceConflictError
	)
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &invConflict):
		c.JSON(http.StatusConflict, gin.H{
			"error":     "order already has an open invoice",
			"invoiceId": invConflict.Existing.InvoiceID,
			"payUrl":    invConflict.Existing.InvoiceURL,
		})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &unauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.As(err, &upstream):
		log.Printf("[server] upstream error: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		log.Printf("[server] internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
