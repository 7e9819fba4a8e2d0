package price

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func jsonFeed(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func binanceSource(url string) Source {
	src := DefaultSources()[0]
	src.URL = url
	return src
}

func TestCurrentStartsWithSeed(t *testing.T) {
	o := NewOracle(nil, time.Second, time.Minute)
	q := o.Current()
	if !q.Price.Equal(DefaultSeed) {
		t.Fatalf("seed price = %s, want %s", q.Price, DefaultSeed)
	}
	if q.Source != "static" {
		t.Fatalf("seed source = %q, want static", q.Source)
	}
}

func TestRefreshFirstSaneSourceWins(t *testing.T) {
	first := jsonFeed(t, `{"price":"3421.55"}`)
	second := jsonFeed(t, `{"price":"9999.99"}`)

	o := NewOracle([]Source{
		binanceSource(first.URL),
		binanceSource(second.URL),
	}, time.Second, time.Minute)
	o.Refresh(context.Background())

	q := o.Current()
	if !q.Price.Equal(decimal.RequireFromString("3421.55")) {
		t.Fatalf("price = %s, want 3421.55", q.Price)
	}
	if q.Source != "Binance" {
		t.Fatalf("source = %q, want Binance", q.Source)
	}
	if q.UpdatedAt.IsZero() {
		t.Fatal("UpdatedAt should be set after a successful refresh")
	}
}

func TestRefreshSkipsInsaneValues(t *testing.T) {
	// the band is exclusive at both ends: 100 and 100000 themselves are out
	for _, body := range []string{
		`{"price":"0"}`,
		`{"price":"50"}`,
		`{"price":"100"}`,
		`{"price":"100000"}`,
		`{"price":"500000"}`,
	} {
		bad := jsonFeed(t, body)
		good := jsonFeed(t, `{"price":"3500.00"}`)

		o := NewOracle([]Source{
			binanceSource(bad.URL),
			binanceSource(good.URL),
		}, time.Second, time.Minute)
		o.Refresh(context.Background())

		q := o.Current()
		if !q.Price.Equal(decimal.RequireFromString("3500.00")) {
			t.Fatalf("body %s: price = %s, want fallback 3500.00", body, q.Price)
		}
	}
}

func TestRefreshKeepsLastQuoteWhenAllSourcesFail(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer down.Close()
	garbage := jsonFeed(t, `not json`)

	o := NewOracle([]Source{
		binanceSource(down.URL),
		binanceSource(garbage.URL),
	}, time.Second, time.Minute)

	before := o.Current()
	o.Refresh(context.Background())
	after := o.Current()

	if !after.Price.Equal(before.Price) || after.Source != before.Source {
		t.Fatalf("quote changed on total failure: %+v -> %+v", before, after)
	}
}

func TestDefaultSourceParsers(t *testing.T) {
	sources := DefaultSources()
	cases := []struct {
		name string
		body string
		want string
	}{
		{"Binance", `{"symbol":"ETHUSDT","price":"3411.12000000"}`, "3411.12"},
		{"CoinGecko", `{"ethereum":{"usd":3411.12}}`, "3411.12"},
		{"Coinbase", `{"data":{"base":"ETH","currency":"USD","amount":"3411.12"}}`, "3411.12"},
	}
	for i, tc := range cases {
		if sources[i].Name != tc.name {
			t.Fatalf("source %d = %q, want %q", i, sources[i].Name, tc.name)
		}
		got, err := sources[i].Parse([]byte(tc.body))
		if err != nil {
			t.Fatalf("%s parse: %v", tc.name, err)
		}
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Fatalf("%s = %s, want %s", tc.name, got, tc.want)
		}
	}
}
