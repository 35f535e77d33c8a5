package meta

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfg2006/ad-performance-sync/infrastructure/integrator/meta/metaclient"
	"github.com/vfg2006/ad-performance-sync/internal/config"
	"github.com/vfg2006/ad-performance-sync/internal/domain"
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

func (s *sleepRecorder) count(d time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, w := range s.waits {
		if w == d {
			n++
		}
	}
	return n
}

func newTestIntegrator(t *testing.T, handler http.HandlerFunc) (*MetaIntegrator, *sleepRecorder, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{
		Meta: config.Meta{
			URL:                 server.URL,
			LongLivedToken:      "tok",
			RequestTimeout:      time.Second,
			PageLimit:           500,
			MaxPages:            100,
			MaxGenericRetries:   1,
			MaxRateLimitRetries: 3,
			RateLimitBaseDelay:  30 * time.Second,
			GenericRetryDelay:   2 * time.Second,
			InterPageDelay:      500 * time.Millisecond,
			InterRequestDelay:   3 * time.Second,
			BreakerMaxRequests:  1,
			BreakerInterval:     time.Minute,
			BreakerTimeout:      time.Minute,
			BreakerMinRequests:  1000,
			BreakerFailureRatio: 0.6,
		},
	}

	tm := metaclient.NewTokenManager(cfg, server.Client())
	client := metaclient.NewClient(cfg, tm, server.Client())
	rec := &sleepRecorder{}
	fetcher := metaclient.NewFetcher(client, cfg.Meta, rec.sleep)

	return New(cfg, client, fetcher), rec, server
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestFetchPerformanceRows(t *testing.T) {
	var serverURL string
	integrator, _, server := newTestIntegrator(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/act_123/insights":
			assert.Equal(t, "ad", r.URL.Query().Get("level"))
			assert.Equal(t, "1", r.URL.Query().Get("time_increment"))
			assert.Equal(t, `{"since":"2024-03-01","until":"2024-03-03"}`, r.URL.Query().Get("time_range"))
			writeJSON(w, http.StatusOK, fmt.Sprintf(`{"data":[
				{"ad_id":"ad1","ad_name":"Ad 1","adset_id":"as1","campaign_id":"c1","impressions":"100","clicks":"4","spend":"12.346",
				 "actions":[{"action_type":"lead","value":"2"},{"action_type":"lead","value":"1"}],
				 "action_values":[{"action_type":"purchase","value":"50.5"}],"date_start":"2024-03-01","date_stop":"2024-03-01"}
			],"paging":{"next":"%s/next"}}`, serverURL))
		case "/next":
			writeJSON(w, http.StatusOK, `{"data":[
				{"ad_id":"ad2","adset_id":"as1","campaign_id":"c1","impressions":"","clicks":"","spend":"","date_start":"2024-03-02"}
			]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	serverURL = server.URL

	window := domain.NewDateWindow(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC))
	rows, err := integrator.FetchPerformanceRows(context.Background(), "123", window)

	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "ad1", rows[0].AdID)
	assert.Equal(t, int64(100), rows[0].Impressions)
	assert.Equal(t, int64(4), rows[0].Clicks)
	assert.Equal(t, 12.35, rows[0].Spend)
	assert.Equal(t, 3.0, rows[0].Actions["lead"])
	assert.Equal(t, 50.5, rows[0].ActionValues["purchase"])
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), rows[0].Date)

	assert.Equal(t, "ad2", rows[1].AdID)
	assert.Zero(t, rows[1].Impressions)
}

func TestFetchPerformanceRows_FalhaDescartaParcial(t *testing.T) {
	var serverURL string
	integrator, _, server := newTestIntegrator(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/act_123/insights" {
			writeJSON(w, http.StatusOK, fmt.Sprintf(`{"data":[{"ad_id":"ad1","date_start":"2024-03-01"}],"paging":{"next":"%s/next"}}`, serverURL))
			return
		}
		w.Header().Set("Retry-After", "45")
		writeJSON(w, http.StatusBadRequest, `{"error":{"message":"limit","code":80000}}`)
	})
	serverURL = server.URL

	window := domain.NewDateWindow(time.Now().AddDate(0, 0, -1), time.Now())
	rows, err := integrator.FetchPerformanceRows(context.Background(), "act_123", window)

	assert.Nil(t, rows)
	upstream, ok := domain.AsUpstreamError(err)
	require.True(t, ok)
	assert.Equal(t, domain.UpstreamRateLimited, upstream.Kind)
	assert.Equal(t, 45*time.Second, upstream.RetryAfter)
	assert.Equal(t, "insights", upstream.Collection)
}

func TestFetchPerformanceRows_ErroGenerico(t *testing.T) {
	integrator, _, _ := newTestIntegrator(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, `{"error":{"message":"unknown","code":2}}`)
	})

	window := domain.NewDateWindow(time.Now().AddDate(0, 0, -1), time.Now())
	_, err := integrator.FetchPerformanceRows(context.Background(), "123", window)

	upstream, ok := domain.AsUpstreamError(err)
	require.True(t, ok)
	assert.Equal(t, domain.UpstreamTransient, upstream.Kind)
}

func TestFetchPerformanceRows_LimiteDePaginasNaoGravaParcial(t *testing.T) {
	var serverURL string
	integrator, _, server := newTestIntegrator(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/act_123/insights":
			writeJSON(w, http.StatusOK, fmt.Sprintf(`{"data":[{"ad_id":"ad1","campaign_id":"c1","date_start":"2024-03-01"}],"paging":{"next":"%s/next"}}`, serverURL))
		case "/next":
			writeJSON(w, http.StatusOK, `{"data":[{"ad_id":"ad2","campaign_id":"c1","date_start":"2024-03-02"}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	serverURL = server.URL
	integrator.cfg.Meta.MaxPages = 1

	window := domain.NewDateWindow(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC))
	rows, err := integrator.FetchPerformanceRows(context.Background(), "123", window)

	assert.Nil(t, rows)
	upstream, ok := domain.AsUpstreamError(err)
	require.True(t, ok)
	assert.Equal(t, domain.UpstreamIncomplete, upstream.Kind)
	assert.ErrorIs(t, err, metaclient.ErrPageLimitReached)
}

func TestFetchPerformanceRows_LinhaInvalidaFalhaABusca(t *testing.T) {
	integrator, _, _ := newTestIntegrator(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":[
			{"ad_id":"ad1","campaign_id":"c1","impressions":"10","date_start":"2024-03-01"},
			{"ad_id":"ad2","campaign_id":"c1","impressions":"abc","date_start":"2024-03-02"}
		]}`)
	})

	window := domain.NewDateWindow(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC))
	rows, err := integrator.FetchPerformanceRows(context.Background(), "123", window)

	assert.Nil(t, rows)
	upstream, ok := domain.AsUpstreamError(err)
	require.True(t, ok)
	assert.Equal(t, domain.UpstreamIncomplete, upstream.Kind)
	assert.Contains(t, err.Error(), "1 de 2 linhas inválidas")
}
