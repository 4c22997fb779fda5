// Package delta provides a client for the Delta Exchange products API.
package delta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/marketsentry/btcsentry/internal/models"
)

// Error classes surfaced by the client. Callers classify with errors.Is;
// every failure is either a transport problem or unexpected data.
var (
	ErrNetwork = errors.New("network error")
	ErrParse   = errors.New("parse error")
)

// Client provides access to the Delta Exchange API.
type Client struct {
	apiURL         string
	productSymbol  string
	httpClient     *http.Client
	maxRetries     int
	retryDelayBase time.Duration
}

// product mirrors one entry of the /v2/products response. Price fields
// arrive as strings and are parsed on demand.
type product struct {
	ID             int64   `json:"id"`
	Symbol         string  `json:"symbol"`
	ProductType    string  `json:"product_type"`
	MarkPrice      string  `json:"mark_price"`
	LastPrice      string  `json:"last_price"`
	BestBidPrice   string  `json:"best_bid_price"`
	BestAskPrice   string  `json:"best_ask_price"`
	Volume         float64 `json:"volume"`
	OpenInterest   string  `json:"open_interest"`
	SettlementTime string  `json:"settlement_time"`
}

type productsResponse struct {
	Success bool      `json:"success"`
	Result  []product `json:"result"`
}

// NewClient creates a new Delta Exchange client.
func NewClient(apiURL, productSymbol string, timeout time.Duration, maxRetries int, retryDelayBase time.Duration) *Client {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}
	return &Client{
		apiURL:        apiURL,
		productSymbol: productSymbol,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}
}

// SpotPrice fetches the current spot mark price for the configured
// product symbol.
func (c *Client) SpotPrice(ctx context.Context) (float64, error) {
	products, err := c.fetchProducts(ctx)
	if err != nil {
		return 0, err
	}

	for _, p := range products {
		if p.Symbol == c.productSymbol && p.ProductType == "spot" {
			if price, ok := parsePrice(p.MarkPrice); ok {
				return price, nil
			}
		}
	}

	// Fallback when the exact spot product is missing from the listing.
	for _, p := range products {
		if strings.Contains(p.Symbol, c.productSymbol) {
			if price, ok := parsePrice(p.MarkPrice); ok {
				return price, nil
			}
		}
	}

	return 0, fmt.Errorf("%w: spot product %s not found", ErrParse, c.productSymbol)
}

// OptionsChain fetches all options settling on expiryDate (YYYY-MM-DD),
// sorted by strike. Malformed entries are skipped, never fatal. An empty
// chain is a valid result.
func (c *Client) OptionsChain(ctx context.Context, expiryDate string) ([]models.OptionContract, error) {
	products, err := c.fetchProducts(ctx)
	if err != nil {
		return nil, err
	}

	var chain []models.OptionContract
	for _, p := range products {
		if p.ProductType != "options" {
			continue
		}
		if !strings.HasPrefix(p.SettlementTime, expiryDate) {
			continue
		}

		strike, optionType, err := ParseOptionSymbol(p.Symbol)
		if err != nil {
			continue
		}

		mark, _ := parsePrice(p.MarkPrice)
		last, _ := parsePrice(p.LastPrice)
		bid, _ := parsePrice(p.BestBidPrice)
		ask, _ := parsePrice(p.BestAskPrice)
		oi, _ := parsePrice(p.OpenInterest)

		chain = append(chain, models.OptionContract{
			Symbol:       p.Symbol,
			ProductID:    p.ID,
			StrikePrice:  strike,
			OptionType:   optionType,
			ExpiryDate:   expiryDate,
			MarkPrice:    mark,
			LastPrice:    last,
			BidPrice:     bid,
			AskPrice:     ask,
			Volume:       p.Volume,
			OpenInterest: oi,
		})
	}

	sort.Slice(chain, func(i, j int) bool {
		return chain[i].StrikePrice < chain[j].StrikePrice
	})

	return chain, nil
}

type greeksResponse struct {
	Result struct {
		Delta             string `json:"delta"`
		Gamma             string `json:"gamma"`
		Theta             string `json:"theta"`
		Vega              string `json:"vega"`
		ImpliedVolatility string `json:"implied_volatility"`
	} `json:"result"`
}

// Greeks fetches sensitivities for a specific product. Best-effort:
// callers should treat any error as "greeks unavailable".
func (c *Client) Greeks(ctx context.Context, productID int64) (*models.Greeks, error) {
	resp, err := c.doRequest(ctx, fmt.Sprintf("%s/v2/products/%d/greeks", c.apiURL, productID))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var gr greeksResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return nil, fmt.Errorf("%w: failed to decode greeks: %v", ErrParse, err)
	}

	g := &models.Greeks{}
	g.Delta, _ = parseSigned(gr.Result.Delta)
	g.Gamma, _ = parseSigned(gr.Result.Gamma)
	g.Theta, _ = parseSigned(gr.Result.Theta)
	g.Vega, _ = parseSigned(gr.Result.Vega)
	g.IV, _ = parseSigned(gr.Result.ImpliedVolatility)
	return g, nil
}

// ParseOptionSymbol extracts strike and type from an option symbol of
// the form "BTC-14AUG25-95000-C" or "...-P". The symbol is the source
// of truth for these fields.
func ParseOptionSymbol(symbol string) (float64, models.OptionType, error) {
	parts := strings.Split(symbol, "-")
	if len(parts) < 4 {
		return 0, "", fmt.Errorf("%w: malformed option symbol %q", ErrParse, symbol)
	}

	strike, err := strconv.ParseFloat(parts[2], 64)
	if err != nil || strike <= 0 {
		return 0, "", fmt.Errorf("%w: invalid strike in symbol %q", ErrParse, symbol)
	}

	switch parts[3] {
	case "C":
		return strike, models.Call, nil
	case "P":
		return strike, models.Put, nil
	default:
		return 0, "", fmt.Errorf("%w: unknown option type in symbol %q", ErrParse, symbol)
	}
}

func (c *Client) fetchProducts(ctx context.Context) ([]product, error) {
	resp, err := c.doRequest(ctx, c.apiURL+"/v2/products")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var pr productsResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("%w: failed to decode products: %v", ErrParse, err)
	}

	return pr.Result, nil
}

// doRequest performs an HTTP GET with linear-backoff retry on transport
// failures and 5xx responses.
func (c *Client) doRequest(ctx context.Context, urlStr string) (*http.Response, error) {
	var lastErr error

	for i := 0; i < c.maxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrNetwork, ctx.Err())
			case <-time.After(c.retryDelayBase * time.Duration(i+1)):
			}
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrNetwork, ctx.Err())
			case <-time.After(c.retryDelayBase * time.Duration(i+1)):
			}
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("%w: unexpected status %d", ErrNetwork, resp.StatusCode)
		}

		return resp, nil
	}

	return nil, fmt.Errorf("%w: max retries exceeded: %v", ErrNetwork, lastErr)
}

func parsePrice(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func parseSigned(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
