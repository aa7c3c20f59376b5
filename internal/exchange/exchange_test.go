package exchange

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Options{APIKey: "test-key", BaseURL: srv.URL}, zerolog.Nop())
}

func TestFetchUSDRateSuccess(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/test-key/latest/USD" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"result":"success","conversion_rates":{"BRL":5.25,"EUR":0.9}}`))
	})

	rate, err := client.FetchUSDRate(context.Background(), "BRL")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !rate.Equal(decimal.RequireFromString("5.25")) {
		t.Fatalf("expected 5.25, got %s", rate)
	}
}

func TestFetchUSDRateMissingKey(t *testing.T) {
	client := NewClient(Options{}, zerolog.Nop())
	if _, err := client.FetchUSDRate(context.Background(), "BRL"); err == nil {
		t.Fatal("expected error without an api key")
	}
}

func TestFetchUSDRateAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":"error","error-type":"invalid-key"}`))
	})

	_, err := client.FetchUSDRate(context.Background(), "BRL")
	if err == nil {
		t.Fatal("expected error for unsuccessful result")
	}
}

func TestFetchUSDRateServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	if _, err := client.FetchUSDRate(context.Background(), "BRL"); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}

func TestFetchUSDRateMissingCurrency(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":"success","conversion_rates":{"EUR":0.9}}`))
	})

	if _, err := client.FetchUSDRate(context.Background(), "BRL"); err == nil {
		t.Fatal("expected error when requested currency is absent")
	}
}

func TestRateAbsentUntilSet(t *testing.T) {
	var r Rate
	if _, ok := r.Get(); ok {
		t.Fatal("fresh rate must report absent")
	}
	if r.Ptr() != nil {
		t.Fatal("fresh rate pointer must be nil")
	}

	r.Set(decimal.NewFromInt(5))
	v, ok := r.Get()
	if !ok || !v.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected 5 after set, got %s/%v", v, ok)
	}
	if p := r.Ptr(); p == nil || !p.Equal(decimal.NewFromInt(5)) {
		t.Fatal("pointer must reflect the stored rate")
	}
}

type stubFetcher struct {
	rate decimal.Decimal
	err  error
}

func (s *stubFetcher) FetchUSDRate(ctx context.Context, currency string) (decimal.Decimal, error) {
	return s.rate, s.err
}

func TestRefresherStoresFetchedRate(t *testing.T) {
	var r Rate
	f := &stubFetcher{rate: decimal.RequireFromString("5.10")}
	ref := NewRefresher(f, &r, "BRL", zerolog.Nop())

	if err := ref.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	v, ok := r.Get()
	if !ok || !v.Equal(decimal.RequireFromString("5.10")) {
		t.Fatalf("expected stored rate, got %s/%v", v, ok)
	}
}

func TestRefresherKeepsPreviousRateOnFailure(t *testing.T) {
	var r Rate
	r.Set(decimal.RequireFromString("5.10"))

	f := &stubFetcher{err: errors.New("exchange down")}
	ref := NewRefresher(f, &r, "BRL", zerolog.Nop())

	if err := ref.Tick(context.Background()); err != nil {
		t.Fatalf("refresh failure must not abort the schedule: %v", err)
	}
	v, ok := r.Get()
	if !ok || !v.Equal(decimal.RequireFromString("5.10")) {
		t.Fatalf("previous rate must survive a failed refresh, got %s/%v", v, ok)
	}
}
