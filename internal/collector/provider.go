package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ETFPal/internal/model"
)

// maxPayload bounds how much of a provider response is read.
const maxPayload = 8 << 20

// ProviderFetcher reads Alpha Vantage style payloads from a data provider
// that selects the series with ?etf={SYMBOL}_{cadence}.
type ProviderFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewProviderFetcher creates a new fetcher with optional proxy support.
func NewProviderFetcher(baseURL, apiKey, proxyURL string) *ProviderFetcher {
	return &ProviderFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  newHTTPClient(proxyURL),
	}
}

func (f *ProviderFetcher) Name() string { return "provider" }

func (f *ProviderFetcher) FetchSeries(ctx context.Context, symbol string, cadence model.Cadence) (model.PriceSeries, error) {
	if _, err := seriesKey(cadence); err != nil {
		return model.PriceSeries{}, err
	}

	q := url.Values{}
	q.Set("etf", fmt.Sprintf("%s_%s", strings.ToUpper(symbol), cadence))
	endpoint := f.BaseURL + "/?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.PriceSeries{}, err
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("fetch %s %s: %w", symbol, cadence, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayload))
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("read %s %s: %w", symbol, cadence, err)
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return model.PriceSeries{}, fmt.Errorf("fetch %s %s: %w (status %d)", symbol, cadence, ErrRateLimited, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return model.PriceSeries{}, fmt.Errorf("fetch %s %s: status %d, body: %s", symbol, cadence, resp.StatusCode, truncate(body, 200))
	}

	series, err := ParseTimeSeries(symbol, body, cadence)
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("fetch %s %s: %w", symbol, cadence, err)
	}
	return series, nil
}

func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
