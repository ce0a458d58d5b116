package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"

	"github.com/joho/godotenv"

	"lockerhub-backend/internal/config"
	"lockerhub-backend/internal/infrastructure/bank"
	"lockerhub-backend/internal/infrastructure/notify"
	"lockerhub-backend/internal/infrastructure/nowpayments"
	"lockerhub-backend/internal/infrastructure/repo"
	"lockerhub-backend/internal/server"
	"lockerhub-backend/internal/usecase"
)

func main() {
	_ = godotenv.Load()
	_ = godotenv.Load(".env.local")
	envDefaults := config.EnvDefaults()

	env := flag.String("env", envDefaults.Env, "")
	port := flag.Int("port", envDefaults.Port, "")
	dbURL := flag.String("db", envDefaults.DatabaseURL, "")
	otpMode := flag.String("otp-mode", envDefaults.OTPMode, "")
	flag.Parse()

	cfg := envDefaults
	cfg.Env = *env
	cfg.Port = *port
	cfg.DatabaseURL = *dbURL
	cfg.OTPMode = *otpMode

	if cfg.WebhookSecret == "" {
		log.Println("[startup] PAYMENT_WEBHOOK_SECRET unset: legacy webhook signature verification disabled")
	}
	if cfg.NowPaymentsIPNSecret == "" {
		log.Println("[startup] NOWPAYMENTS_IPN_SECRET unset: NOWPayments signature verification disabled")
	}

	var orderRepo usecase.OrderRepo
	if cfg.DatabaseURL != "" {
		pg, err := repo.NewPostgresOrderRepo(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("[startup] postgres: %v", err)
		}
		orderRepo = pg
	} else {
		log.Println("[startup] DATABASE_URL unset: using in-memory order store")
		orderRepo = repo.NewMemoryOrderRepo()
	}

	router := &usecase.NotifyRouter{
		Orders:     telegramChannel("orders", cfg.TelegramToken, cfg.TelegramChatID),
		Fast:       telegramChannel("fast", cfg.TelegramFastToken, cfg.TelegramFastChatID),
		PaymentOps: telegramChannel("payment-ops", cfg.TelegramPaymentToken, cfg.TelegramPaymentChatID),
	}

	email := &notify.SendGridClient{
		APIKey:   cfg.SendGridAPIKey,
		From:     cfg.SendGridFrom,
		FromName: cfg.SendGridFromName,
	}
	sms := &notify.TwilioClient{
		AccountSID:          cfg.TwilioAccountSID,
		AuthToken:           cfg.TwilioAuthToken,
		MessagingServiceSID: cfg.TwilioMessagingServiceSID,
		FromNumber:          cfg.TwilioFromNumber,
	}

	otp := &usecase.OTPService{
		Repo:               orderRepo,
		SMS:                sms,
		Email:              email,
		Notify:             router,
		Mode:               usecase.OTPMode(cfg.OTPMode),
		JWTSecret:          cfg.JWTSecret,
		SiteURL:            cfg.SiteURL,
		DefaultCountryCode: cfg.DefaultCountryCode,
	}
	orders := &usecase.OrderService{
		Repo:    orderRepo,
		OTP:     otp,
		Notify:  router,
		Email:   email,
		SiteURL: cfg.SiteURL,
	}
	payments := &usecase.PaymentService{
		Repo:     orderRepo,
		Invoices: &nowpayments.Client{APIKey: cfg.NowPaymentsAPIKey},
		Notify:   router,
		SiteURL:  cfg.SiteURL,
	}
	normalizer := &usecase.WebhookNormalizer{
		LegacySecret:      cfg.WebhookSecret,
		NowPaymentsSecret: cfg.NowPaymentsIPNSecret,
	}

	srv := server.New(cfg, orders, otp, payments, normalizer, bank.Load(cfg.BankDetailsPath))

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("[startup] listening on %s (env=%s, otp-mode=%s)", addr, cfg.Env, cfg.OTPMode)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		log.Fatalf("[startup] server: %v", err)
	}
}

func telegramChannel(name, token string, chatID int64) usecase.Notifier {
	if token == "" || chatID == 0 {
		log.Printf("[startup] telegram %s channel not configured", name)
		return nil
	}
	ch, err := notify.NewTelegramChannel(token, chatID)
	if err != nil {
		log.Printf("[startup] telegram %s channel unavailable: %v", name, err)
		return nil
	}
	return ch
}
