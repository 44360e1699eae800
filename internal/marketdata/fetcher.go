// Package marketdata adapts an intraday time-series HTTP feed into Quote
// values and the bracket-order transform the core matching triad consumes
// as ordinary incoming orders. The HTTP transport is resty-based with
// retry backoff, and outbound requests are token-bucket rate limited via
// golang.org/x/time/rate.
package marketdata

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const alphaVantageTimeLayout = "2006-01-02 15:04:05"

// Fetcher retrieves a symbol's recent minute bars. The core engine never
// depends on this interface directly; only cmd/vantage wires an adapter
// into the order-submission path.
type Fetcher interface {
	FetchMinuteSeries(ctx context.Context, symbol string) ([]Quote, error)
}

// rawMinuteData mirrors AlphaVantageResponse's TIME_SERIES_INTRADAY shape,
// with every numeric field left as a string so it decodes straight into
// decimal.Decimal instead of float64.
type rawMinuteData struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

type rawResponse struct {
	TimeSeries map[string]rawMinuteData `json:"Time Series (1min)"`
}

// HTTPAdapter polls an Alpha-Vantage-shaped intraday endpoint with bounded
// retry and a token-bucket rate limit on outbound requests.
type HTTPAdapter struct {
	http    *resty.Client
	limiter *rate.Limiter
	apiKey  string
}

// NewHTTPAdapter builds an adapter against baseURL (override for tests;
// empty uses the real Alpha Vantage host) authenticated with apiKey,
// retrying a failed fetch up to three times with a 2-second backoff before
// giving up.
func NewHTTPAdapter(baseURL, apiKey string) *HTTPAdapter {
	if baseURL == "" {
		baseURL = "https://www.alphavantage.co"
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(2 * time.Second).
		SetRetryMaxWaitTime(10 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		})

	return &HTTPAdapter{
		http:    client,
		limiter: rate.NewLimiter(rate.Every(time.Second), 5),
		apiKey:  apiKey,
	}
}

// FetchMinuteSeries fetches and parses the most recent intraday bars for
// symbol, sorted oldest first. A persistent failure (exhausted retries) is
// returned to the caller, which logs at ERROR and proceeds on the next
// scheduled tick rather than treating it as fatal.
func (a *HTTPAdapter) FetchMinuteSeries(ctx context.Context, symbol string) ([]Quote, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("marketdata: rate limiter: %w", err)
	}

	var payload rawResponse
	resp, err := a.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"function": "TIME_SERIES_INTRADAY",
			"symbol":   symbol,
			"interval": "1min",
			"apikey":   a.apiKey,
		}).
		SetResult(&payload).
		Get("/query")
	if err != nil {
		return nil, fmt.Errorf("marketdata: fetch %s: %w", symbol, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("marketdata: fetch %s: status %d", symbol, resp.StatusCode())
	}

	quotes := make([]Quote, 0, len(payload.TimeSeries))
	for ts, bar := range payload.TimeSeries {
		q, perr := parseQuote(symbol, ts, bar)
		if perr != nil {
			log.Warn().Err(perr).Str("symbol", symbol).Str("bar", ts).Msg("skipping malformed bar")
			continue
		}
		quotes = append(quotes, q)
	}
	sort.Slice(quotes, func(i, j int) bool { return quotes[i].Timestamp.Before(quotes[j].Timestamp) })
	return quotes, nil
}

func parseQuote(symbol, ts string, bar rawMinuteData) (Quote, error) {
	t, err := time.Parse(alphaVantageTimeLayout, ts)
	if err != nil {
		return Quote{}, fmt.Errorf("parse timestamp %q: %w", ts, err)
	}
	open, err := decimal.NewFromString(bar.Open)
	if err != nil {
		return Quote{}, fmt.Errorf("parse open: %w", err)
	}
	high, err := decimal.NewFromString(bar.High)
	if err != nil {
		return Quote{}, fmt.Errorf("parse high: %w", err)
	}
	low, err := decimal.NewFromString(bar.Low)
	if err != nil {
		return Quote{}, fmt.Errorf("parse low: %w", err)
	}
	closePrice, err := decimal.NewFromString(bar.Close)
	if err != nil {
		return Quote{}, fmt.Errorf("parse close: %w", err)
	}
	volume, err := decimal.NewFromString(bar.Volume)
	if err != nil {
		return Quote{}, fmt.Errorf("parse volume: %w", err)
	}
	return Quote{
		Symbol:    symbol,
		Timestamp: t.UTC(),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
	}, nil
}
