package quote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
)

func TestGetPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stock/price" {
			t.Errorf("path=%s want=/stock/price", r.URL.Path)
		}
		if got := r.URL.Query().Get("code"); got != "600000" {
			t.Errorf("code=%s want=600000", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":0,"data":{"code":"600000","open":9.4,"close":9.55,"low":9.3,"high":9.6}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL)
	price, err := c.GetPrice(context.Background(), "600000")
	if err != nil {
		t.Fatalf("get price: %v", err)
	}
	if price.Close.Cmp(decimal.RequireFromString("9.55")) != 0 {
		t.Fatalf("close=%s want=9.55", price.Close.String())
	}
}

func TestGetPriceBusinessError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":1001,"msg":"unknown stock"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL)
	_, err := c.GetPrice(context.Background(), "XXXX")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("err=%v want *StatusError", err)
	}
	if statusErr.Code != 1001 {
		t.Fatalf("code=%d want=1001", statusErr.Code)
	}
}

func TestGetPriceHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL)
	_, err := c.GetPrice(context.Background(), "600000")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err=%v want *APIError", err)
	}
	if apiErr.Status != http.StatusInternalServerError {
		t.Fatalf("status=%d want=500", apiErr.Status)
	}
}

func TestGetMarketStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/exchange/SSE/market/status" {
			t.Errorf("path=%s want=/exchange/SSE/market/status", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":0,"data":"MarketOpen"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL)
	status, err := c.GetMarketStatus(context.Background(), "SSE")
	if err != nil {
		t.Fatalf("get market status: %v", err)
	}
	if status != MarketOpen {
		t.Fatalf("status=%s want=%s", status, MarketOpen)
	}
}
