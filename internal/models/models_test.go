package models

import "testing"

func ptr(v float64) *float64 { return &v }

func TestOptionContract_Premium(t *testing.T) {
	tests := []struct {
		name string
		mark float64
		last float64
		want float64
	}{
		{"mark preferred", 205, 199, 205},
		{"fallback to last when mark zero", 0, 199, 199},
		{"both zero", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := OptionContract{MarkPrice: tt.mark, LastPrice: tt.last}
			if got := c.Premium(); got != tt.want {
				t.Errorf("Premium() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOptionContract_Validate(t *testing.T) {
	valid := OptionContract{
		Symbol:      "BTC-140825-95000-C",
		StrikePrice: 95000,
		OptionType:  Call,
		ExpiryDate:  "2025-08-14",
		MarkPrice:   180,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid contract rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*OptionContract)
	}{
		{"empty symbol", func(c *OptionContract) { c.Symbol = "" }},
		{"bad type", func(c *OptionContract) { c.OptionType = "straddle" }},
		{"zero strike", func(c *OptionContract) { c.StrikePrice = 0 }},
		{"negative mark", func(c *OptionContract) { c.MarkPrice = -1 }},
		{"negative bid", func(c *OptionContract) { c.BidPrice = -1 }},
		{"missing expiry", func(c *OptionContract) { c.ExpiryDate = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestReferenceSnapshot_ResetIfStale(t *testing.T) {
	snap := ReferenceSnapshot{
		AMOpen:         ptr(100000),
		PMOpen:         ptr(101000),
		LastUpdateDate: "2025-08-13",
	}

	if cleared := snap.ResetIfStale("2025-08-14"); !cleared {
		t.Error("expected reset for stale date")
	}
	if snap.AMOpen != nil || snap.PMOpen != nil {
		t.Error("both slots must be nil after rollover reset")
	}
}

func TestReferenceSnapshot_ResetIfStale_SameDay(t *testing.T) {
	snap := ReferenceSnapshot{
		AMOpen:         ptr(100000),
		LastUpdateDate: "2025-08-14",
	}

	if cleared := snap.ResetIfStale("2025-08-14"); cleared {
		t.Error("same-day snapshot must not be cleared")
	}
	if snap.AMOpen == nil {
		t.Error("AM open must survive same-day check")
	}
}

func TestReferenceSnapshot_HasAMOpen(t *testing.T) {
	tests := []struct {
		name string
		snap ReferenceSnapshot
		want bool
	}{
		{"captured today", ReferenceSnapshot{AMOpen: ptr(100000), LastUpdateDate: "2025-08-14"}, true},
		{"captured yesterday", ReferenceSnapshot{AMOpen: ptr(100000), LastUpdateDate: "2025-08-13"}, false},
		{"never captured", ReferenceSnapshot{}, false},
		{"date only, no price", ReferenceSnapshot{LastUpdateDate: "2025-08-14"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.snap.HasAMOpen("2025-08-14"); got != tt.want {
				t.Errorf("HasAMOpen = %v, want %v", got, tt.want)
			}
		})
	}
}
