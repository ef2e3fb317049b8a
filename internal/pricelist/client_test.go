package pricelist

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchPriceList_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Fatalf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/api/pricelist" {
			t.Fatalf("path = %s, want /api/pricelist", r.URL.Path)
		}

		items := []Item{
			{Code: 1, Name: "Milk", Price: 1.5, Kind: "PERISHABLE", DaysToExpiry: 3},
			{Code: 2, Name: "Rice", Price: 3, Kind: "NONPERISHABLE"},
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(items); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	items, code, retry, err := client.FetchPriceList(ctx)
	if err != nil {
		t.Fatalf("FetchPriceList error: %v", err)
	}
	if code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", code, http.StatusOK)
	}
	if retry != 0 {
		t.Fatalf("retryAfter = %v, want 0", retry)
	}
	if len(items) != 2 || items[0].Code != 1 || items[1].Name != "Rice" {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestFetchPriceList_TooManyRequests(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	items, code, retry, err := client.FetchPriceList(ctx)
	if err != nil {
		t.Fatalf("FetchPriceList error: %v", err)
	}
	if items != nil {
		t.Fatalf("expected nil items for 429, got %+v", items)
	}
	if code != http.StatusTooManyRequests {
		t.Fatalf("status code = %d, want %d", code, http.StatusTooManyRequests)
	}
	if retry < 5*time.Second {
		t.Fatalf("retryAfter = %v, want at least 5s", retry)
	}
}

func TestFetchPriceList_NoContent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	items, code, _, err := client.FetchPriceList(ctx)
	if err != nil {
		t.Fatalf("FetchPriceList error: %v", err)
	}
	if items != nil {
		t.Fatalf("expected nil items for 204, got %+v", items)
	}
	if code != http.StatusNoContent {
		t.Fatalf("status code = %d, want %d", code, http.StatusNoContent)
	}
}

func TestFetchPriceList_NotConfigured(t *testing.T) {
	var client *Client

	_, _, _, err := client.FetchPriceList(context.Background())
	if err == nil {
		t.Fatalf("expected error for unconfigured client")
	}
}
