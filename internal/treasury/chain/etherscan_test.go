package chain

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestAccountBalance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("module") != "account" || q.Get("action") != "balance" || q.Get("tag") != "latest" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		if q.Get("apikey") != "test-key" {
			t.Errorf("apikey = %q", q.Get("apikey"))
		}
		w.Header().Set("Content-Type", "application/json")
		// 1.5 ETH in wei
		w.Write([]byte(`{"status":"1","message":"OK","result":"1500000000000000000"}`))
	}))
	defer srv.Close()

	es := NewEtherscan(srv.URL, "test-key", time.Second)
	got, err := es.AccountBalance(context.Background(), testDestination)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !got.Equal(eth("1.5")) {
		t.Fatalf("balance = %s, want 1.5", got)
	}
}

func TestAccountBalanceAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"0","message":"NOTOK","result":"Max rate limit reached"}`))
	}))
	defer srv.Close()

	es := NewEtherscan(srv.URL, "test-key", time.Second)
	if _, err := es.AccountBalance(context.Background(), testDestination); err == nil {
		t.Fatal("want error on status 0")
	}
}

func TestWeiConversions(t *testing.T) {
	cases := []struct {
		eth string
		wei string
	}{
		{"1", "1000000000000000000"},
		{"0.4985", "498500000000000000"},
		{"0.000000000000000001", "1"},
		{"0", "0"},
	}
	for _, tc := range cases {
		wei, _ := new(big.Int).SetString(tc.wei, 10)
		if got := ETHToWei(eth(tc.eth)); got.Cmp(wei) != 0 {
			t.Fatalf("ETHToWei(%s) = %s, want %s", tc.eth, got, tc.wei)
		}
		if got := WeiToETH(wei); !got.Equal(eth(tc.eth)) {
			t.Fatalf("WeiToETH(%s) = %s, want %s", tc.wei, got, tc.eth)
		}
	}

	// sub-wei precision truncates toward zero
	if got := ETHToWei(decimal.RequireFromString("0.0000000000000000015")); got.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("truncation got %s, want 1", got)
	}
}
