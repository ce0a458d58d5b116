package config

import (
	"os"
	"strconv"
)

type Config struct {
	Env                string
	Port               int
	DatabaseURL        string
	SiteURL            string
	DefaultCountryCode string
	OTPMode            string
	JWTSecret          string
	BankDetailsPath    string

	WebhookSecret        string
	NowPaymentsAPIKey    string
	NowPaymentsIPNSecret string

	TelegramToken         string
	TelegramChatID        int64
	TelegramFastToken     string
	TelegramFastChatID    int64
	TelegramPaymentToken  string
	TelegramPaymentChatID int64

	SendGridAPIKey   string
	SendGridFrom     string
	SendGridFromName string

	TwilioAccountSID          string
	TwilioAuthToken           string
	TwilioMessagingServiceSID string
	TwilioFromNumber          string
}

func Default() Config {
	return Config{
		Env:                "dev",
		Port:               5000,
		SiteURL:            "http://localhost:5000",
		DefaultCountryCode: "44",
		OTPMode:            "sms",
		SendGridFromName:   "LockerHub",
		BankDetailsPath:    "./data/bank.json",
	}
}

func EnvDefaults() Config {
	return fromEnv(Default())
}

func fromEnv(c Config) Config {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	i64 := func(key string, dst *int64) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				*dst = n
			}
		}
	}
	str("LOCKERHUB_ENV", &c.Env)
	if v := os.Getenv("LOCKERHUB_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Port = p
		}
	}
	str("DATABASE_URL", &c.DatabaseURL)
	str("SITE_URL", &c.SiteURL)
	str("DEFAULT_COUNTRY_CODE", &c.DefaultCountryCode)
	str("OTP_MODE", &c.OTPMode)
	str("JWT_SECRET", &c.JWTSecret)
	str("BANK_DETAILS_PATH", &c.BankDetailsPath)

	str("PAYMENT_WEBHOOK_SECRET", &c.WebhookSecret)
	str("NOWPAYMENTS_API_KEY", &c.NowPaymentsAPIKey)
	str("NOWPAYMENTS_IPN_SECRET", &c.NowPaymentsIPNSecret)

	str("TELEGRAM_BOT_TOKEN", &c.TelegramToken)
	i64("TELEGRAM_CHAT_ID", &c.TelegramChatID)
	c.TelegramFastToken = c.TelegramToken
	c.TelegramFastChatID = c.TelegramChatID
	c.TelegramPaymentToken = c.TelegramToken
	c.TelegramPaymentChatID = c.TelegramChatID
	str("TELEGRAM_FAST_BOT_TOKEN", &c.TelegramFastToken)
	i64("TELEGRAM_FAST_CHAT_ID", &c.TelegramFastChatID)
	str("TELEGRAM_PAYMENT_BOT_TOKEN", &c.TelegramPaymentToken)
	i64("TELEGRAM_PAYMENT_CHAT_ID", &c.TelegramPaymentChatID)

	str("SENDGRID_API_KEY", &c.SendGridAPIKey)
	str("SENDGRID_FROM", &c.SendGridFrom)
	str("SENDGRID_FROM_NAME", &c.SendGridFromName)

	str("TWILIO_ACCOUNT_SID", &c.TwilioAccountSID)
	str("TWILIO_AUTH_TOKEN", &c.TwilioAuthToken)
	str("TWILIO_MESSAGING_SERVICE_SID", &c.TwilioMessagingServiceSID)
	str("TWILIO_FROM_NUMBER", &c.TwilioFromNumber)
	return c
}
