// Package models defines the core domain entities: option contracts,
// reference snapshots, and decisions.
package models

import "errors"

// OptionType distinguishes calls from puts.
type OptionType string

const (
	Call OptionType = "call"
	Put  OptionType = "put"
)

// Greeks holds option sensitivities fetched on a best-effort basis.
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
	IV    float64 `json:"iv,omitempty"`
}

// OptionContract represents a single listed option from the exchange.
// The symbol (e.g. "BTC-14AUG25-95000-C") is the source of truth for
// strike and type; the structured fields are parsed from it.
type OptionContract struct {
	Symbol       string     `json:"symbol"`
	ProductID    int64      `json:"product_id"`
	StrikePrice  float64    `json:"strike_price"`
	OptionType   OptionType `json:"option_type"`
	ExpiryDate   string     `json:"expiry_date"`
	MarkPrice    float64    `json:"mark_price"`
	LastPrice    float64    `json:"last_price"`
	BidPrice     float64    `json:"bid_price"`
	AskPrice     float64    `json:"ask_price"`
	Volume       float64    `json:"volume"`
	OpenInterest float64    `json:"open_interest"`
	Greeks       *Greeks    `json:"greeks,omitempty"`
}

// Premium returns the contract's tradable premium: mark price, falling
// back to last price when the mark is absent or zero.
func (c *OptionContract) Premium() float64 {
	if c.MarkPrice > 0 {
		return c.MarkPrice
	}
	return c.LastPrice
}

// Validate checks option contract field constraints.
func (c *OptionContract) Validate() error {
	if c.Symbol == "" {
		return errors.New("option symbol must not be empty")
	}
	if c.OptionType != Call && c.OptionType != Put {
		return errors.New("option type must be call or put")
	}
	if c.StrikePrice <= 0 {
		return errors.New("strike price must be positive")
	}
	if c.MarkPrice < 0 {
		return errors.New("mark price must not be negative")
	}
	if c.LastPrice < 0 {
		return errors.New("last price must not be negative")
	}
	if c.BidPrice < 0 {
		return errors.New("bid price must not be negative")
	}
	if c.AskPrice < 0 {
		return errors.New("ask price must not be negative")
	}
	if c.ExpiryDate == "" {
		return errors.New("expiry date must not be empty")
	}
	return nil
}
