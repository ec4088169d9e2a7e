package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ETFPal/internal/model"
)

func TestProviderFetcher_FetchSeries(t *testing.T) {
	var gotETF, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotETF = r.URL.Query().Get("etf")
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(weeklyPayload))
	}))
	defer srv.Close()

	f := NewProviderFetcher(srv.URL+"/", "secret", "")
	s, err := f.FetchSeries(context.Background(), "qqq", model.CadenceWeekly)
	require.NoError(t, err)

	assert.Equal(t, "QQQ_weekly", gotETF)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, "provider", f.Name())
}

func TestProviderFetcher_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"too many requests", http.StatusTooManyRequests, `{}`, ErrRateLimited},
		{"rate limit note", http.StatusOK, `{"Note": "slow down"}`, ErrRateLimited},
		{"error message", http.StatusOK, `{"Error Message": "bad symbol"}`, ErrInvalidPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewProviderFetcher(srv.URL, "", "").FetchSeries(context.Background(), "SPY", model.CadenceMonthly)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestProviderFetcher_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewProviderFetcher(srv.URL, "", "").FetchSeries(context.Background(), "SPY", model.CadenceWeekly)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestProviderFetcher_CanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(weeklyPayload))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewProviderFetcher(srv.URL, "", "").FetchSeries(ctx, "SPY", model.CadenceWeekly)
	assert.ErrorIs(t, err, context.Canceled)
}
