package domain

import "strings"

// NormalizePhone brings a customer phone number to international form.
// A leading + is kept verbatim, 00 is treated as the international prefix,
// a national trunk 0 is replaced with the default country code, anything
// else just gains a +.
func NormalizePhone(phone, defaultCountryCode string) string {
	v := strings.TrimSpace(phone)
	if v == "" {
		return ""
	}
	if strings.HasPrefix(v, "+") {
		return v
	}
	var b strings.Builder
	for _, r := range v {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}
	switch {
	case strings.HasPrefix(digits, "00"):
		return "+" + digits[2:]
	case strings.HasPrefix(digits, "0"):
		return "+" + defaultCountryCode + digits[1:]
	}
	return "+" + digits
}

// MaskPhone keeps the first 4 and last 2 characters visible.
func MaskPhone(phone string) string {
	if len(phone) <= 6 {
		return phone
	}
	return phone[:4] + strings.Repeat("*", len(phone)-6) + phone[len(phone)-2:]
}

// MaskEmail keeps the first 2 characters of the local part, the domain
// stays unmasked.
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return email
	}
	local, dom := email[:at], email[at:]
	if len(local) <= 2 {
		return local + dom
	}
	return local[:2] + strings.Repeat("*", len(local)-2) + dom
}
