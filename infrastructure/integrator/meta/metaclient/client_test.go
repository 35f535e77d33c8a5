package metaclient

import (
	"context"
	"net/http"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gobreaker "github.com/sony/gobreaker/v2"
	metadomain "github.com/vfg2006/ad-performance-sync/infrastructure/integrator/meta/domain"
)

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		header string
		want   time.Duration
		wantOK bool
	}{
		{name: "Vazio", header: "", wantOK: false},
		{name: "Segundos", header: "120", want: 2 * time.Minute, wantOK: true},
		{name: "Data HTTP", header: now.Add(90 * time.Second).Format(http.TimeFormat), want: 90 * time.Second, wantOK: true},
		{name: "Data HTTP no passado", header: now.Add(-time.Minute).Format(http.TimeFormat), want: 0, wantOK: true},
		{name: "Inválido", header: "amanhã", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseRetryAfter(tt.header, now)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRetryHintFromHeaders_BusinessUseCase(t *testing.T) {
	header := http.Header{}
	header.Set("X-Business-Use-Case-Usage", `{"123":[{"type":"ads_insights","call_count":100,"estimated_time_to_regain_access":3},{"type":"ads_management","estimated_time_to_regain_access":1}]}`)

	got, ok := retryHintFromHeaders(header, time.Now())

	require.True(t, ok)
	assert.Equal(t, 3*time.Minute, got)

	header.Set("Retry-After", "10")
	got, ok = retryHintFromHeaders(header, time.Now())
	require.True(t, ok)
	assert.Equal(t, 10*time.Second, got)
}

func TestAPIError_Classificacao(t *testing.T) {
	rate := newAPIError(http.StatusBadRequest, nil, &metadomain.ErrorDetails{Code: 80000, Message: "BUC"}, time.Now())
	assert.True(t, IsRateLimited(rate))
	assert.False(t, IsTokenExpired(rate))

	_, ok := RetryHint(rate)
	assert.False(t, ok)

	expired := newAPIError(http.StatusUnauthorized, nil, &metadomain.ErrorDetails{Code: 190}, time.Now())
	assert.True(t, IsTokenExpired(expired))
	assert.False(t, IsRateLimited(expired))

	empty := newAPIError(http.StatusBadGateway, nil, nil, time.Now())
	assert.Equal(t, http.StatusText(http.StatusBadGateway), empty.Message)
}

func TestMetaClient_GraphURL(t *testing.T) {
	client, _, _, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	got := client.GraphURL("/act_1/campaigns", url.Values{"fields": {"id,name"}})

	parsed, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/act_1/campaigns", parsed.Scheme+"://"+parsed.Host+parsed.Path)
	assert.Equal(t, "tok", parsed.Query().Get("access_token"))
	assert.Equal(t, "id,name", parsed.Query().Get("fields"))
}

func TestMetaClient_PostBatch(t *testing.T) {
	requests := []metadomain.BatchRequest{
		{Method: http.MethodGet, RelativeURL: "act_1/campaigns"},
		{Method: http.MethodGet, RelativeURL: "act_1/adsets"},
	}

	tests := []struct {
		name      string
		response  func(w http.ResponseWriter)
		wantItems int
		wantErr   error
		wantAPI   bool
	}{
		{
			name: "Sub-respostas na mesma ordem",
			response: func(w http.ResponseWriter) {
				writeJSON(w, http.StatusOK, `[{"code":200,"body":"{\"data\":[]}"},{"code":400,"headers":[{"name":"Retry-After","value":"5"}],"body":"{}"}]`)
			},
			wantItems: 2,
		},
		{
			name: "Quantidade diferente de sub-respostas",
			response: func(w http.ResponseWriter) {
				writeJSON(w, http.StatusOK, `[{"code":200,"body":"{}"}]`)
			},
			wantErr: ErrBatchFormat,
		},
		{
			name: "Resposta nula",
			response: func(w http.ResponseWriter) {
				writeJSON(w, http.StatusOK, `null`)
			},
			wantErr: ErrBatchFormat,
		},
		{
			name: "Corpo não decodificável",
			response: func(w http.ResponseWriter) {
				writeJSON(w, http.StatusOK, `oops`)
			},
			wantErr: ErrBatchFormat,
		},
		{
			name: "Erro no nível superior com status 200",
			response: func(w http.ResponseWriter) {
				writeJSON(w, http.StatusOK, `{"error":{"message":"limit","code":17}}`)
			},
			wantAPI: true,
		},
		{
			name: "Throttling no POST",
			response: func(w http.ResponseWriter) {
				writeJSON(w, http.StatusTooManyRequests, `{"error":{"message":"limit","code":4}}`)
			},
			wantAPI: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.NoError(t, r.ParseForm())
				assert.Equal(t, "tok", r.PostForm.Get("access_token"))
				assert.Contains(t, r.PostForm.Get("batch"), "act_1/adsets")
				tt.response(w)
			})

			items, err := client.PostBatch(context.Background(), requests)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantAPI:
				assert.True(t, IsRateLimited(err))
			default:
				require.NoError(t, err)
				require.Len(t, items, tt.wantItems)
				assert.Equal(t, 200, items[0].Code)
				assert.Equal(t, "5", items[1].Header("Retry-After"))
			}
		})
	}
}

func TestMetaClient_CircuitBreakerAbre(t *testing.T) {
	var calls int32
	client, _, _, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusServiceUnavailable, `{}`)
	})
	client.Cfg.Meta.BreakerMinRequests = 2
	client.Cfg.Meta.BreakerFailureRatio = 0.5
	client.breaker = newBreaker(client.Cfg.Meta)

	for i := 0; i < 2; i++ {
		_, err := client.GetPage(context.Background(), server.URL+"/x")
		require.Error(t, err)
	}

	_, err := client.GetPage(context.Background(), server.URL+"/x")

	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestMetaClient_ThrottlingNaoAbreBreaker(t *testing.T) {
	var calls int32
	client, _, _, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusTooManyRequests, `{"error":{"code":4}}`)
	})
	client.Cfg.Meta.BreakerMinRequests = 1
	client.Cfg.Meta.BreakerFailureRatio = 0.1
	client.breaker = newBreaker(client.Cfg.Meta)

	for i := 0; i < 3; i++ {
		_, err := client.GetPage(context.Background(), server.URL+"/x")
		assert.True(t, IsRateLimited(err))
	}

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}
