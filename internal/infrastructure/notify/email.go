package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const sendgridURL = "https://api.sendgrid.com/v3/mail/send"

// SendGridClient sends transactional mail through the SendGrid v3 API.
type SendGridClient struct {
	APIKey   string
	From     string
	FromName string
	HTTP     *http.Client
}

type sendgridReq struct {
	Personalizations []sendgridPersonalization `json:"personalizations"`
	From             sendgridAddress           `json:"from"`
	Subject          string                    `json:"subject"`
	Content          []sendgridContent         `json:"content"`
}

type sendgridPersonalization struct {
	To []sendgridAddress `json:"to"`
}

type sendgridAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendgridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func (c *SendGridClient) SendEmail(to, subject, html string) error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("sendgrid api key missing")
	}
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("recipient missing")
	}
	raw, err := json.Marshal(sendgridReq{
		Personalizations: []sendgridPersonalization{{To: []sendgridAddress{{Email: to}}}},
		From:             sendgridAddress{Email: c.From, Name: c.FromName},
		Subject:          subject,
		Content:          []sendgridContent{{Type: "text/html", Value: html}},
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, sendgridURL, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	hc := c.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sendgrid error: %d %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
