package metaclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/vfg2006/ad-performance-sync/internal/config"
)

type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.waits...)
}

func newTestConfig(url string) *config.Config {
	return &config.Config{
		Meta: config.Meta{
			URL:                 url,
			AppID:               "app",
			AppSecret:           "secret",
			LongLivedToken:      "tok",
			RequestTimeout:      time.Second,
			PageLimit:           2,
			MaxPages:            100,
			MaxGenericRetries:   2,
			MaxRateLimitRetries: 3,
			RateLimitBaseDelay:  30 * time.Second,
			GenericRetryDelay:   2 * time.Second,
			InterPageDelay:      500 * time.Millisecond,
			InterRequestDelay:   2 * time.Second,
			BreakerMaxRequests:  1,
			BreakerInterval:     time.Minute,
			BreakerTimeout:      time.Minute,
			BreakerMinRequests:  1000,
			BreakerFailureRatio: 0.6,
		},
	}
}

// newTestClient sobe um servidor de teste e devolve cliente, fetcher e o gravador de esperas.
func newTestClient(t *testing.T, handler http.HandlerFunc) (*MetaClient, *Fetcher, *sleepRecorder, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := newTestConfig(server.URL)
	tm := NewTokenManager(cfg, server.Client())
	client := NewClient(cfg, tm, server.Client())
	rec := &sleepRecorder{}

	return client, NewFetcher(client, cfg.Meta, rec.sleep), rec, server
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
