package market

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testClient(baseURL string) *Client {
	return NewClient(Options{
		BaseURL:       baseURL,
		Token:         "token",
		Timeout:       time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
	}, noopLogger())
}

func TestListItemsSuccess(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{"item_id": 11, "title": "a"},
				{"item_id": 12, "title": "b"},
				{"title": "no id"},
			},
		})
	}))
	defer srv.Close()

	ids, err := testClient(srv.URL).ListItems(context.Background(), "pmax=50")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 2 || ids[0] != 11 || ids[1] != 12 {
		t.Fatalf("expected [11 12], got %v", ids)
	}
	if gotAuth != "Bearer token" {
		t.Fatalf("expected bearer auth, got %q", gotAuth)
	}
}

func TestRetryExhaustionAfterThreeServerErrors(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).ListItems(context.Background(), ""); err == nil {
		t.Fatal("exhausted retries must return an error")
	}
	if attempts != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", attempts)
	}
}

func TestClientErrorIsNotRetried(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).FetchItem(context.Background(), 5); err == nil {
		t.Fatal("4xx must fail")
	}
	if attempts != 1 {
		t.Fatalf("4xx must not be retried, got %d attempts", attempts)
	}
}

func TestMalformedPayloadIsNotRetried(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).ListItems(context.Background(), ""); err == nil {
		t.Fatal("malformed payload must fail")
	}
	if attempts != 1 {
		t.Fatalf("malformed payload must not be retried, got %d attempts", attempts)
	}
}

func TestFetchItemDecodesPartialPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/riot/77" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"item": map[string]any{
				"item_id":        77,
				"title":          "stacked account",
				"price":          25.5,
				"price_currency": "usd",
				"valorantInventory": map[string]any{
					"WeaponSkins": []string{"aaa", "bbb"},
					"KnifesSkins": []string{"ccc"},
				},
			},
		})
	}))
	defer srv.Close()

	detail, err := testClient(srv.URL).FetchItem(context.Background(), 77)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if detail.Title != "stacked account" || detail.Price != 25.5 {
		t.Fatalf("unexpected detail %+v", detail)
	}
	if detail.Region != "" || detail.Level != 0 {
		t.Fatalf("missing fields must default to zero values, got %+v", detail)
	}
	if got := detail.SkinIDs(); len(got) != 3 || got[2] != "ccc" {
		t.Fatalf("expected merged skin list of 3, got %v", got)
	}
	if detail.WeaponSkinCount() != 2 || detail.KnifeSkinCount() != 1 {
		t.Fatalf("unexpected skin counts %d/%d", detail.WeaponSkinCount(), detail.KnifeSkinCount())
	}
}

func TestRecoveryAfterTransientServerError(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"items": []map[string]any{{"item_id": 1}}})
	}))
	defer srv.Close()

	ids, err := testClient(srv.URL).ListItems(context.Background(), "")
	if err != nil {
		t.Fatalf("third attempt should succeed: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected 1 id, got %v", ids)
	}
}
