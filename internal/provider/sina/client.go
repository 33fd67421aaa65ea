// Package sina implements the fallback price provider, scraping the Sina
// Finance daily history table.
package sina

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/xldl/etf-rotor/internal/market"
	"github.com/xldl/etf-rotor/pkg/httputil"
	"github.com/xldl/etf-rotor/pkg/logger"
)

const providerName = "sina"

// Client scrapes daily history from Sina Finance.
// SSOT: Sina Finance requests happen only in this client.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a Sina client. baseURL defaults to the public site
// when empty.
func NewClient(httpClient *httputil.Client, log *logger.Logger, baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://money.finance.sina.com.cn"
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

// FetchDaily scrapes the history table for symbol and returns bars in
// [from, to], date ascending.
func (c *Client) FetchDaily(ctx context.Context, symbol string, from, to time.Time) ([]market.PriceBar, error) {
	params := url.Values{}
	params.Set("symbol", exchangeSymbol(symbol))
	params.Set("begin_date", from.Format("20060102"))
	params.Set("end_date", to.Format("20060102"))

	fullURL := fmt.Sprintf("%s/quotes_service/view/vMS_FundHistory.php?%s", c.baseURL, params.Encode())

	body, err := c.httpClient.GetBody(ctx, fullURL,
		"User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
		"Referer", "https://finance.sina.com.cn/",
	)
	if err != nil {
		return nil, &market.ProviderError{
			Provider: providerName, Symbol: symbol, Transient: true, Err: err,
		}
	}

	bars, err := parseHistoryTable(body)
	if err != nil {
		return nil, &market.ProviderError{
			Provider: providerName, Symbol: symbol, Transient: false, Err: err,
		}
	}

	filtered := bars[:0]
	for _, b := range bars {
		if b.Date.Before(from) || b.Date.After(to) {
			continue
		}
		filtered = append(filtered, b)
	}
	if len(filtered) == 0 {
		return nil, &market.ProviderError{
			Provider: providerName, Symbol: symbol, Transient: false,
			Err: fmt.Errorf("no rows in range"),
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"count":  len(filtered),
	}).Debug("Scraped daily bars")
	return filtered, nil
}

// parseHistoryTable extracts bars from the first table whose header row
// starts with a date column. Sina lists newest rows first; output is
// re-sorted ascending.
func parseHistoryTable(body []byte) ([]market.PriceBar, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	var bars []market.PriceBar
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 6 {
			return
		}

		date, err := time.Parse("2006-01-02", text(cells.Eq(0)))
		if err != nil {
			return // header or malformed row
		}

		open, err1 := parseFloat(text(cells.Eq(1)))
		high, err2 := parseFloat(text(cells.Eq(2)))
		low, err3 := parseFloat(text(cells.Eq(3)))
		closePx, err4 := parseFloat(text(cells.Eq(4)))
		volume, err5 := parseVolume(text(cells.Eq(5)))
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
			return
		}

		bars = append(bars, market.PriceBar{
			Date:   date,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePx,
			Volume: volume,
		})
	})

	if len(bars) == 0 {
		return nil, fmt.Errorf("no data rows found")
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

func text(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}

func parseVolume(s string) (int64, error) {
	return strconv.ParseInt(strings.ReplaceAll(s, ",", ""), 10, 64)
}

// exchangeSymbol prefixes the code with its exchange: sh for Shanghai,
// sz for Shenzhen. Same split as the Eastmoney market ID.
func exchangeSymbol(symbol string) string {
	if strings.HasPrefix(symbol, "5") || strings.HasPrefix(symbol, "6") || strings.HasPrefix(symbol, "9") {
		return "sh" + symbol
	}
	return "sz" + symbol
}
