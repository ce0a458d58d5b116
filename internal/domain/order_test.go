package domain

import "testing"

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want OrderStatus
	}{
		{"pending", OrderPending},
		{"otp_pending", OrderOTPPending},
		{"verified", OrderVerified},
		{"invoiced", OrderInvoiced},
		{"paid", OrderPaid},
		{"PAID", OrderPaid},
		{"  verified ", OrderVerified},
		{"awaiting payment", OrderPending},
		{"", OrderPending},
		{"legacy-free-form", OrderPending},
	}
	for _, tt := range tests {
		if got := ParseStatus(tt.in); got != tt.want {
			t.Errorf("ParseStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAdvanceStatusIsMonotonic(t *testing.T) {
	all := []OrderStatus{OrderPending, OrderOTPPending, OrderVerified, OrderInvoiced, OrderPaid}
	for _, from := range all {
		for _, to := range all {
			got := AdvanceStatus(from, to)
			if StatusRank(got) < StatusRank(from) {
				t.Errorf("AdvanceStatus(%q, %q) = %q moved backward", from, to, got)
			}
			if StatusRank(to) > StatusRank(from) && got != to {
				t.Errorf("AdvanceStatus(%q, %q) = %q, want %q", from, to, got, to)
			}
		}
	}
	if got := AdvanceStatus(OrderPaid, OrderPending); got != OrderPaid {
		t.Errorf("paid order regressed to %q", got)
	}
}

func TestIsExpedited(t *testing.T) {
	tests := []struct {
		option string
		want   bool
	}{
		{"Same Day", true},
		{"Next Day", true},
		{"next-day delivery", true},
		{"SAME DAY PICKUP", true},
		{"Standard (3-5 days)", false},
		{"", false},
	}
	for _, tt := range tests {
		o := &Order{PickupOption: tt.option}
		if got := o.IsExpedited(); got != tt.want {
			t.Errorf("IsExpedited(%q) = %v, want %v", tt.option, got, tt.want)
		}
	}
}
