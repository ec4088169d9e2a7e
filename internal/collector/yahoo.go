package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"ETFPal/internal/model"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooFetcher implements Fetcher using the Yahoo Finance chart API.
type YahooFetcher struct {
	BaseURL   string
	Client    *http.Client
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(proxyURL string) *YahooFetcher {
	return &YahooFetcher{
		BaseURL: yahooBaseURL,
		Client:  newHTTPClient(proxyURL),
		SymbolMap: map[string]string{
			"NDX":   "^NDX",
			"SPX":   "^GSPC",
			"SP500": "^GSPC",
		},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[strings.ToUpper(symbol)]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from the Yahoo Finance chart API.
// Prices are pointers because Yahoo sends null for holidays.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketTime int64  `json:"regularMarketTime"`
				ExchangeTimezone  string `json:"exchangeTimezoneName"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open  []*float64 `json:"open"`
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func yahooInterval(cadence model.Cadence) (interval, rng string, err error) {
	switch cadence {
	case model.CadenceWeekly:
		return "1wk", "2y", nil
	case model.CadenceMonthly:
		return "1mo", "5y", nil
	default:
		return "", "", fmt.Errorf("no price series for cadence %q", cadence)
	}
}

func (f *YahooFetcher) FetchSeries(ctx context.Context, symbol string, cadence model.Cadence) (model.PriceSeries, error) {
	interval, rng, err := yahooInterval(cadence)
	if err != nil {
		return model.PriceSeries{}, err
	}

	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		strings.TrimRight(f.BaseURL, "/"), url.PathEscape(f.yahooSymbol(symbol)), interval, rng)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return model.PriceSeries{}, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayload))
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("yahoo read body: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return model.PriceSeries{}, fmt.Errorf("yahoo: %w", ErrRateLimited)
	case resp.StatusCode != http.StatusOK:
		return model.PriceSeries{}, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, truncate(body, 200))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return model.PriceSeries{}, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return model.PriceSeries{}, fmt.Errorf("%w: yahoo: %s", ErrInvalidPayload, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return model.PriceSeries{}, fmt.Errorf("%w: yahoo: no data returned", ErrInvalidPayload)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	loc := time.UTC
	if result.Meta.ExchangeTimezone != "" {
		if l, err := time.LoadLocation(result.Meta.ExchangeTimezone); err == nil {
			loc = l
		}
	}

	records := make([]model.PriceRecord, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		o, c := at(quote.Open, i), at(quote.Close, i)
		if !o.Valid && !c.Valid {
			continue // holiday rows carry no prices at all
		}
		t := time.Unix(ts, 0).In(loc)
		records = append(records, model.PriceRecord{
			PeriodStart: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
			Open:        o,
			Close:       c,
		})
	}

	series := model.NewPriceSeries(symbol, records)
	if result.Meta.RegularMarketTime > 0 {
		series.Refreshed = time.Unix(result.Meta.RegularMarketTime, 0).In(loc).Format("2006-01-02")
	}
	return series, nil
}

func at(vals []*float64, i int) decimal.NullDecimal {
	if i >= len(vals) || vals[i] == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromFloat(*vals[i]).Round(4))
}
