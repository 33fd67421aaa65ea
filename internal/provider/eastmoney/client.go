// Package eastmoney implements the primary price provider on top of the
// Eastmoney kline endpoint.
package eastmoney

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/xldl/etf-rotor/internal/market"
	"github.com/xldl/etf-rotor/pkg/httputil"
	"github.com/xldl/etf-rotor/pkg/logger"
)

const providerName = "eastmoney"

// Client fetches daily klines from Eastmoney.
// SSOT: Eastmoney API calls happen only in this client.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates an Eastmoney client. baseURL defaults to the public
// endpoint when empty.
func NewClient(httpClient *httputil.Client, log *logger.Logger, baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://push2his.eastmoney.com"
	}
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    baseURL,
	}
}

// Name implements provider.Provider.
func (c *Client) Name() string {
	return providerName
}

type klineResponse struct {
	Data *struct {
		Code   string   `json:"code"`
		Klines []string `json:"klines"`
	} `json:"data"`
}

// FetchDaily returns forward-adjusted daily bars for symbol in [from, to].
func (c *Client) FetchDaily(ctx context.Context, symbol string, from, to time.Time) ([]market.PriceBar, error) {
	params := url.Values{}
	params.Set("secid", secID(symbol))
	params.Set("fields1", "f1,f2,f3,f4,f5,f6")
	params.Set("fields2", "f51,f52,f53,f54,f55,f56")
	params.Set("klt", "101") // daily
	params.Set("fqt", "1")   // forward adjusted
	params.Set("beg", from.Format("20060102"))
	params.Set("end", to.Format("20060102"))

	fullURL := fmt.Sprintf("%s/api/qt/stock/kline/get?%s", c.baseURL, params.Encode())

	body, err := c.httpClient.GetBody(ctx, fullURL,
		"User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
		"Referer", "https://quote.eastmoney.com/",
	)
	if err != nil {
		return nil, &market.ProviderError{
			Provider: providerName, Symbol: symbol, Transient: true, Err: err,
		}
	}

	bars, err := parseKlines(body)
	if err != nil {
		return nil, &market.ProviderError{
			Provider: providerName, Symbol: symbol, Transient: false, Err: err,
		}
	}
	if len(bars) == 0 {
		return nil, &market.ProviderError{
			Provider: providerName, Symbol: symbol, Transient: false,
			Err: fmt.Errorf("no klines returned"),
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"count":  len(bars),
	}).Debug("Fetched daily bars")
	return bars, nil
}

// parseKlines decodes the kline payload. Each entry is a comma-joined
// record: date,open,close,high,low,volume.
func parseKlines(body []byte) ([]market.PriceBar, error) {
	var resp klineResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("response has no data section")
	}

	bars := make([]market.PriceBar, 0, len(resp.Data.Klines))
	for _, line := range resp.Data.Klines {
		fields := strings.Split(line, ",")
		if len(fields) < 6 {
			continue
		}

		date, err := time.Parse("2006-01-02", fields[0])
		if err != nil {
			continue
		}

		open, err1 := strconv.ParseFloat(fields[1], 64)
		closePx, err2 := strconv.ParseFloat(fields[2], 64)
		high, err3 := strconv.ParseFloat(fields[3], 64)
		low, err4 := strconv.ParseFloat(fields[4], 64)
		volume, err5 := strconv.ParseInt(fields[5], 10, 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
			continue
		}

		bars = append(bars, market.PriceBar{
			Date:   date,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePx,
			Volume: volume,
		})
	}
	return bars, nil
}

// secID maps an exchange code to Eastmoney's market-prefixed ID.
// Shanghai-listed funds (5xxxxx) and stocks (6xxxxx) use market 1,
// Shenzhen (1xxxxx, 0xxxxx, 3xxxxx) uses market 0.
func secID(symbol string) string {
	if strings.HasPrefix(symbol, "5") || strings.HasPrefix(symbol, "6") || strings.HasPrefix(symbol, "9") {
		return "1." + symbol
	}
	return "0." + symbol
}
