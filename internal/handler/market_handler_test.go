package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/xiannn/fitlog/internal/config"
	"github.com/xiannn/fitlog/internal/service"
	"github.com/xiannn/fitlog/pkg/market"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testKlineBody = `[[1700000000000,"100.0","110.0","95.0","105.0","1.0"],[1700003600000,"105.0","112.0","104.0","108.0","1.0"]]`

// memStore is an in-memory service.Storage for handler tests.
type memStore struct {
	data map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, ok := m.data[key]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return value, nil
}

func (m *memStore) Put(ctx context.Context, key string, value []byte) error {
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memStore) Subscribe(key string, fn func()) {}

func newMarketHandlerFixture(t *testing.T, mirrors []string) *MarketHandler {
	t.Helper()

	conf := &config.Config{
		Market: config.MarketConf{
			Symbol:          "ETHUSDT",
			Mirrors:         mirrors,
			DefaultInterval: "1h",
		},
	}
	logger := zap.NewNop()
	storage := newMemStore()
	client := market.NewClient(logger, mirrors, time.Second)
	logs := service.NewLogService(logger, storage)
	marketService := service.NewMarketService(logger, conf, client, service.NewIndicatorService(), storage, logs)

	return NewMarketHandler(logger, marketService, client)
}

func doRequest(t *testing.T, h echo.HandlerFunc, target string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h(c); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	return rec
}

func TestMarketHandler_Klines(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("symbol"); got != "ETHUSDT" {
			t.Errorf("upstream symbol = %q, want ETHUSDT", got)
		}
		_, _ = w.Write([]byte(testKlineBody))
	}))
	defer upstream.Close()

	h := newMarketHandlerFixture(t, []string{upstream.URL})

	rec := doRequest(t, h.Klines, "/api/klines?interval=1h")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	// the upstream body passes through untouched
	if rec.Body.String() != testKlineBody {
		t.Errorf("body = %q, want upstream body verbatim", rec.Body.String())
	}
	if got := rec.Header().Get("Cache-Control"); got != "public, max-age=10" {
		t.Errorf("Cache-Control = %q, want public, max-age=10", got)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestMarketHandler_Klines_InvalidInterval(t *testing.T) {
	h := newMarketHandlerFixture(t, []string{"http://127.0.0.1:1"})

	rec := doRequest(t, h.Klines, "/api/klines?interval=7m")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "invalid interval") {
		t.Errorf("body = %q, want invalid interval", rec.Body.String())
	}
}

func TestMarketHandler_Klines_UpstreamFailed(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer down.Close()

	h := newMarketHandlerFixture(t, []string{down.URL})

	rec := doRequest(t, h.Klines, "/api/klines?interval=1h")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "upstream failed") {
		t.Errorf("body = %q, want upstream failed", rec.Body.String())
	}
}

func TestMarketHandler_Overview(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(testKlineBody))
	}))
	defer upstream.Close()

	h := newMarketHandlerFixture(t, []string{upstream.URL})

	rec := doRequest(t, h.Overview, "/api/market/overview?interval=1h")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, field := range []string{`"symbol"`, `"candles"`, `"signal"`, `"disclaimer"`} {
		if !strings.Contains(body, field) {
			t.Errorf("overview body misses %s: %s", field, body)
		}
	}
}

func TestMarketHandler_Overview_UpstreamDown(t *testing.T) {
	h := newMarketHandlerFixture(t, []string{"http://127.0.0.1:1"})

	rec := doRequest(t, h.Overview, "/api/market/overview?interval=1h")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestMarketHandler_Intervals(t *testing.T) {
	h := newMarketHandlerFixture(t, []string{"http://127.0.0.1:1"})

	rec := doRequest(t, h.Intervals, "/api/market/intervals")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, interval := range []string{"1m", "5m", "15m", "1h", "4h", "1d"} {
		if !strings.Contains(body, interval) {
			t.Errorf("intervals body misses %s: %s", interval, body)
		}
	}
}
