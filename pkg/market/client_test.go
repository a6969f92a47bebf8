package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

const validKlineBody = `[[1700000000000,"100.0","110.0","95.0","105.0","1234.5"],[1700003600000,"105.0","112.0","104.0","108.0","987.6"]]`

func newKlineServer(t *testing.T, status int, body string, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestClient_FetchRaw_Failover(t *testing.T) {
	var hitsA, hitsB, hitsC, hitsD atomic.Int32
	bad1 := newKlineServer(t, http.StatusInternalServerError, "oops", &hitsA)
	defer bad1.Close()
	bad2 := newKlineServer(t, http.StatusBadGateway, "oops", &hitsB)
	defer bad2.Close()
	good := newKlineServer(t, http.StatusOK, validKlineBody, &hitsC)
	defer good.Close()
	spare := newKlineServer(t, http.StatusOK, validKlineBody, &hitsD)
	defer spare.Close()

	client := NewClient(zap.NewNop(), []string{bad1.URL, bad2.URL, good.URL, spare.URL}, time.Second)

	raw, err := client.FetchRaw(context.Background(), "ethusdt", "1h", 0)
	if err != nil {
		t.Fatalf("FetchRaw() error = %v", err)
	}
	if string(raw) != validKlineBody {
		t.Errorf("FetchRaw() body = %q, want upstream body verbatim", raw)
	}
	if hitsA.Load() != 1 || hitsB.Load() != 1 || hitsC.Load() != 1 {
		t.Errorf("mirror hits = %d/%d/%d, want 1/1/1", hitsA.Load(), hitsB.Load(), hitsC.Load())
	}
	// first success stops the failover chain
	if hitsD.Load() != 0 {
		t.Errorf("spare mirror was hit %d times, want 0", hitsD.Load())
	}
}

func TestClient_FetchRaw_AllMirrorsFail(t *testing.T) {
	bad1 := newKlineServer(t, http.StatusInternalServerError, "oops", nil)
	defer bad1.Close()
	bad2 := newKlineServer(t, http.StatusNotFound, "missing", nil)
	defer bad2.Close()

	client := NewClient(zap.NewNop(), []string{bad1.URL, bad2.URL}, time.Second)

	_, err := client.FetchRaw(context.Background(), "ETHUSDT", "1h", 100)
	if err == nil {
		t.Fatal("FetchRaw() expected error when every mirror fails")
	}
	if !strings.Contains(err.Error(), "all 2 kline mirrors failed") {
		t.Errorf("FetchRaw() error = %v, want aggregate mirror failure", err)
	}
}

func TestClient_FetchRaw_MalformedBodySkipsMirror(t *testing.T) {
	// 2xx with a non-kline payload must not be treated as success
	malformed := newKlineServer(t, http.StatusOK, `{"msg":"maintenance"}`, nil)
	defer malformed.Close()
	good := newKlineServer(t, http.StatusOK, validKlineBody, nil)
	defer good.Close()

	client := NewClient(zap.NewNop(), []string{malformed.URL, good.URL}, time.Second)

	raw, err := client.FetchRaw(context.Background(), "ETHUSDT", "1h", 0)
	if err != nil {
		t.Fatalf("FetchRaw() error = %v", err)
	}
	if string(raw) != validKlineBody {
		t.Errorf("FetchRaw() body = %q, want body from the second mirror", raw)
	}
}

func TestClient_FetchRaw_TimeoutCountsAsFailure(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		_, _ = w.Write([]byte(validKlineBody))
	}))
	defer slow.Close()
	good := newKlineServer(t, http.StatusOK, validKlineBody, nil)
	defer good.Close()

	client := NewClient(zap.NewNop(), []string{slow.URL, good.URL}, 100*time.Millisecond)

	raw, err := client.FetchRaw(context.Background(), "ETHUSDT", "1h", 0)
	if err != nil {
		t.Fatalf("FetchRaw() error = %v", err)
	}
	if string(raw) != validKlineBody {
		t.Errorf("FetchRaw() body = %q, want body from the fallback mirror", raw)
	}
}

func TestClient_FetchRaw_InvalidInterval(t *testing.T) {
	client := NewClient(zap.NewNop(), []string{"http://127.0.0.1:1"}, time.Second)
	if _, err := client.FetchRaw(context.Background(), "ETHUSDT", "2h", 0); err == nil {
		t.Fatal("FetchRaw() expected error for interval outside the whitelist")
	}
}

func TestClient_Fetch(t *testing.T) {
	good := newKlineServer(t, http.StatusOK, validKlineBody, nil)
	defer good.Close()

	client := NewClient(zap.NewNop(), []string{good.URL}, time.Second)

	candles, err := client.Fetch(context.Background(), "ETHUSDT", "1h", 0)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("Fetch() returned %d candles, want 2", len(candles))
	}
	first := candles[0]
	if first.Time != 1700000000 {
		t.Errorf("candle time = %d, want seconds timestamp 1700000000", first.Time)
	}
	if first.Open != 100 || first.High != 110 || first.Low != 95 || first.Close != 105 {
		t.Errorf("candle OHLC = %+v, want 100/110/95/105", first)
	}
}

func TestParseCandles_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not a list", `{"a":1}`},
		{"empty list", `[]`},
		{"short row", `[[1700000000000,"100.0"]]`},
		{"non-numeric price", `[[1700000000000,"abc","110.0","95.0","105.0"]]`},
		{"numeric instead of string price", `[[1700000000000,100.0,110.0,95.0,105.0]]`},
		{"string open time", `[["t","100.0","110.0","95.0","105.0"]]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseCandles([]byte(tt.body)); err == nil {
				t.Errorf("ParseCandles(%s) expected error", tt.body)
			}
		})
	}
}

func TestDefaultLimit(t *testing.T) {
	tests := []struct {
		interval string
		want     int
	}{
		{"1m", 300},
		{"5m", 300},
		{"15m", 300},
		{"1h", 500},
		{"4h", 500},
		{"1d", 365},
		{"2h", 500},
	}
	for _, tt := range tests {
		if got := DefaultLimit(tt.interval); got != tt.want {
			t.Errorf("DefaultLimit(%q) = %d, want %d", tt.interval, got, tt.want)
		}
	}
}
