package collector

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"ETFPal/internal/model"
)

var (
	// ErrInvalidPayload means the provider answered with something that is
	// not a usable time series.
	ErrInvalidPayload = errors.New("invalid time series payload")
	// ErrRateLimited means the provider asked us to slow down.
	ErrRateLimited = errors.New("provider rate limit")
)

const (
	fieldOpen  = "1. open"
	fieldClose = "4. close"
)

// seriesKey returns the payload key holding the series for cadence.
func seriesKey(cadence model.Cadence) (string, error) {
	switch cadence {
	case model.CadenceWeekly:
		return "Weekly Time Series", nil
	case model.CadenceMonthly:
		return "Monthly Time Series", nil
	default:
		return "", fmt.Errorf("no price series for cadence %q", cadence)
	}
}

// ParseTimeSeries decodes an Alpha Vantage style payload:
//
//	{"Meta Data": {"3. Last Refreshed": "2024-06-07"},
//	 "Weekly Time Series": {"2024-06-07": {"1. open": "450.1", "4. close": "455.2"}}}
//
// Payloads carrying "Error Message" or missing the series are rejected with
// ErrInvalidPayload, a "Note" or "Information" with ErrRateLimited. Prices that
// do not parse are kept as invalid records so streak scans stop at them.
// Entries whose date key does not parse are dropped.
func ParseTimeSeries(symbol string, payload []byte, cadence model.Cadence) (model.PriceSeries, error) {
	key, err := seriesKey(cadence)
	if err != nil {
		return model.PriceSeries{}, err
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(payload, &top); err != nil {
		return model.PriceSeries{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	if msg, ok := top["Error Message"]; ok {
		return model.PriceSeries{}, fmt.Errorf("%w: %s", ErrInvalidPayload, rawText(msg))
	}
	for _, k := range []string{"Note", "Information"} {
		if msg, ok := top[k]; ok {
			return model.PriceSeries{}, fmt.Errorf("%w: %s", ErrRateLimited, rawText(msg))
		}
	}

	raw, ok := top[key]
	if !ok {
		return model.PriceSeries{}, fmt.Errorf("%w: missing %q", ErrInvalidPayload, key)
	}
	var entries map[string]map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return model.PriceSeries{}, fmt.Errorf("%w: %q is not an object: %v", ErrInvalidPayload, key, err)
	}

	records := make([]model.PriceRecord, 0, len(entries))
	for day, fields := range entries {
		start, err := time.Parse("2006-01-02", day)
		if err != nil {
			continue
		}
		records = append(records, model.PriceRecord{
			PeriodStart: start,
			Open:        parsePrice(fields[fieldOpen]),
			Close:       parsePrice(fields[fieldClose]),
		})
	}

	series := model.NewPriceSeries(symbol, records)
	if meta, ok := top["Meta Data"]; ok {
		var m map[string]json.RawMessage
		if json.Unmarshal(meta, &m) == nil {
			series.Refreshed = rawText(m["3. Last Refreshed"])
		}
	}
	return series, nil
}

// parsePrice accepts a JSON string or number. Anything else is invalid.
func parsePrice(raw json.RawMessage) decimal.NullDecimal {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return decimal.NullDecimal{}
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func rawText(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}
