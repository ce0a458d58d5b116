package notify

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TwilioClient sends SMS through the Twilio Messages API. Either a
// messaging service SID or a from number must be configured.
type TwilioClient struct {
	AccountSID          string
	AuthToken           string
	MessagingServiceSID string
	FromNumber          string
	HTTP                *http.Client
}

func (c *TwilioClient) SendSMS(to, body string) error {
	if c.AccountSID == "" || c.AuthToken == "" {
		return fmt.Errorf("twilio credentials missing")
	}
	if c.MessagingServiceSID == "" && c.FromNumber == "" {
		return fmt.Errorf("twilio sender missing: configure a messaging service or from number")
	}
	form := url.Values{}
	form.Set("To", to)
	form.Set("Body", body)
	if c.MessagingServiceSID != "" {
		form.Set("MessagingServiceSid", c.MessagingServiceSID)
	} else {
		form.Set("From", c.FromNumber)
	}

	endpoint := fmt.Sprintf("https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json", c.AccountSID)
	req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.AccountSID, c.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

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
		var payload struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &payload)
		if payload.Message == "" {
			payload.Message = strings.TrimSpace(string(body))
		}
		return fmt.Errorf("twilio error: %d %s", resp.StatusCode, payload.Message)
	}
	return nil
}
