package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestRESTClient(handler http.HandlerFunc) (*BybitRESTClient, *httptest.Server) {
	srv := httptest.NewServer(handler)
	client := &BybitRESTClient{
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
		Retry:      RetryConfig{MaxRetries: 0},
	}
	return client, srv
}

func TestGetTicker(t *testing.T) {
	client, srv := newTestRESTClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v5/market/tickers" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("category"); got != "spot" {
			t.Fatalf("unexpected category: %s", got)
		}
		w.Write([]byte(`{
			"retCode":0,"retMsg":"OK",
			"result":{"category":"spot","list":[
				{"symbol":"BTCUSDT","lastPrice":"65123.5","price24hPcnt":"0.0234"}
			]}
		}`))
	})
	defer srv.Close()

	ticker, err := client.GetTicker(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("GetTicker err: %v", err)
	}
	if ticker.Symbol != "BTCUSDT" || ticker.LastPrice != 65123.5 {
		t.Fatalf("unexpected ticker: %+v", ticker)
	}
	if ticker.FetchedAt.IsZero() {
		t.Fatalf("FetchedAt not set")
	}
}

func TestGetTickerRetCodeError(t *testing.T) {
	client, srv := newTestRESTClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"retCode":10001,"retMsg":"params error","result":{}}`))
	})
	defer srv.Close()

	if _, err := client.GetTicker(context.Background(), "BTCUSDT"); err == nil {
		t.Fatalf("expected retCode error")
	}
}

func TestGetTickerEmptyList(t *testing.T) {
	client, srv := newTestRESTClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{"category":"spot","list":[]}}`))
	})
	defer srv.Close()

	if _, err := client.GetTicker(context.Background(), "NOSUCH"); err == nil {
		t.Fatalf("expected empty list error")
	}
}

func TestServerTimeAndPing(t *testing.T) {
	client, srv := newTestRESTClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v5/market/time" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{"timeSecond":"1688639403","timeNano":"1688639403423213947"}}`))
	})
	defer srv.Close()

	ts, err := client.ServerTime(context.Background())
	if err != nil {
		t.Fatalf("ServerTime err: %v", err)
	}
	if ts.Unix() != 1688639403 {
		t.Fatalf("unexpected server time: %v", ts)
	}
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping err: %v", err)
	}
}

func TestGetTickerHTTPError(t *testing.T) {
	client, srv := newTestRESTClient(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	})
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := client.GetTicker(ctx, "BTCUSDT"); err == nil {
		t.Fatalf("expected http status error")
	}
}
