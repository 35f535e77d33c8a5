package metaclient

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfg2006/ad-performance-sync/pkg/retry"
)

type item struct {
	ID string `json:"id"`
}

func TestFetchAll_Paginacao(t *testing.T) {
	var serverURL string
	_, fetcher, rec, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/items":
			writeJSON(w, http.StatusOK, fmt.Sprintf(`{"data":[{"id":"1"},{"id":"2"}],"paging":{"next":"%s/items2"}}`, serverURL))
		case "/items2":
			writeJSON(w, http.StatusOK, `{"data":[{"id":"3"}],"paging":{}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	serverURL = server.URL

	result := FetchAll[item](context.Background(), fetcher, server.URL+"/items", 100, 2)

	require.True(t, result.Success)
	require.NoError(t, result.Err)
	assert.Equal(t, 2, result.Pages)
	assert.Equal(t, []item{{ID: "1"}, {ID: "2"}, {ID: "3"}}, result.Records)
	assert.Equal(t, []time.Duration{500 * time.Millisecond}, rec.recorded())
}

func TestFetchAll_Retentativas(t *testing.T) {
	tests := []struct {
		name          string
		responses     []func(w http.ResponseWriter)
		wantSuccess   bool
		wantCalls     int32
		wantWaits     []time.Duration
		wantRecords   int
		wantRateLimit bool
	}{
		{
			name: "Throttling sem dica usa espera linear e depois dica do Retry-After",
			responses: []func(w http.ResponseWriter){
				func(w http.ResponseWriter) {
					writeJSON(w, http.StatusBadRequest, `{"error":{"message":"User request limit reached","code":17}}`)
				},
				func(w http.ResponseWriter) {
					w.Header().Set("Retry-After", "7")
					writeJSON(w, http.StatusBadRequest, `{"error":{"message":"BUC","code":80004}}`)
				},
				func(w http.ResponseWriter) {
					writeJSON(w, http.StatusOK, `{"data":[{"id":"1"}]}`)
				},
			},
			wantSuccess: true,
			wantCalls:   3,
			wantWaits:   []time.Duration{30 * time.Second, 7 * time.Second},
			wantRecords: 1,
		},
		{
			name: "Throttling esgotado após 1 + 3 tentativas",
			responses: []func(w http.ResponseWriter){
				func(w http.ResponseWriter) {
					writeJSON(w, http.StatusTooManyRequests, `{"error":{"message":"too many","code":4}}`)
				},
			},
			wantSuccess:   false,
			wantCalls:     4,
			wantWaits:     []time.Duration{30 * time.Second, 60 * time.Second, 90 * time.Second},
			wantRateLimit: true,
		},
		{
			name: "Erro genérico esgotado após 1 + 2 tentativas",
			responses: []func(w http.ResponseWriter){
				func(w http.ResponseWriter) {
					writeJSON(w, http.StatusInternalServerError, `{"error":{"message":"unknown","code":1}}`)
				},
			},
			wantSuccess: false,
			wantCalls:   3,
			wantWaits:   []time.Duration{2 * time.Second, 2 * time.Second},
		},
		{
			name: "Erro de throttling no corpo de uma resposta 200",
			responses: []func(w http.ResponseWriter){
				func(w http.ResponseWriter) {
					writeJSON(w, http.StatusOK, `{"error":{"message":"Application request limit reached","code":4}}`)
				},
				func(w http.ResponseWriter) {
					writeJSON(w, http.StatusOK, `{"data":[{"id":"1"},{"id":"2"}]}`)
				},
			},
			wantSuccess: true,
			wantCalls:   2,
			wantWaits:   []time.Duration{30 * time.Second},
			wantRecords: 2,
		},
		{
			name: "Corpo inválido é tratado como falha genérica",
			responses: []func(w http.ResponseWriter){
				func(w http.ResponseWriter) {
					writeJSON(w, http.StatusOK, `<html>`)
				},
				func(w http.ResponseWriter) {
					writeJSON(w, http.StatusOK, `{"data":[]}`)
				},
			},
			wantSuccess: true,
			wantCalls:   2,
			wantWaits:   []time.Duration{2 * time.Second},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			_, fetcher, rec, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				n := atomic.AddInt32(&calls, 1)
				idx := int(n) - 1
				if idx >= len(tt.responses) {
					idx = len(tt.responses) - 1
				}
				tt.responses[idx](w)
			})

			result := FetchAll[item](context.Background(), fetcher, server.URL+"/items", 100, 2)

			assert.Equal(t, tt.wantSuccess, result.Success)
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
			assert.Equal(t, tt.wantWaits, rec.recorded())
			assert.Len(t, result.Records, tt.wantRecords)
			if !tt.wantSuccess {
				require.Error(t, result.Err)
				var exhausted *retry.ExhaustedError
				assert.ErrorAs(t, result.Err, &exhausted)
				assert.Equal(t, tt.wantRateLimit, IsRateLimited(result.Err))
			}
		})
	}
}

func TestFetchAll_FalhaMantemParcial(t *testing.T) {
	var serverURL string
	_, fetcher, _, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/items" {
			writeJSON(w, http.StatusOK, fmt.Sprintf(`{"data":[{"id":"1"}],"paging":{"next":"%s/broken"}}`, serverURL))
			return
		}
		writeJSON(w, http.StatusBadGateway, `{}`)
	})
	serverURL = server.URL

	result := FetchAll[item](context.Background(), fetcher, server.URL+"/items", 100, 0)

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Pages)
	assert.Equal(t, []item{{ID: "1"}}, result.Records)
}

func TestFetchAll_TokenExpiradoNaoRetenta(t *testing.T) {
	var dataCalls, refreshCalls int32
	_, fetcher, rec, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/access_token" {
			atomic.AddInt32(&refreshCalls, 1)
			writeJSON(w, http.StatusOK, `{"access_token":"novo","expires_in":5184000}`)
			return
		}
		atomic.AddInt32(&dataCalls, 1)
		writeJSON(w, http.StatusBadRequest, `{"error":{"message":"Error validating access token","type":"OAuthException","code":190,"error_subcode":463}}`)
	})

	result := FetchAll[item](context.Background(), fetcher, server.URL+"/items", 100, 2)

	assert.False(t, result.Success)
	assert.True(t, IsTokenExpired(result.Err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&dataCalls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshCalls))
	assert.Empty(t, rec.recorded())
}

func TestFetchAll_LimiteDePaginas(t *testing.T) {
	var serverURL string
	_, fetcher, _, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, fmt.Sprintf(`{"data":[{"id":"x"}],"paging":{"next":"%s/items"}}`, serverURL))
	})
	serverURL = server.URL

	result := FetchAll[item](context.Background(), fetcher, server.URL+"/items", 3, 2)

	assert.False(t, result.Success)
	assert.True(t, result.Truncated)
	assert.ErrorIs(t, result.Err, ErrPageLimitReached)
	assert.Equal(t, 3, result.Pages)
	assert.Len(t, result.Records, 3)
}

func TestFetchAll_UltimaPaginaNoLimite(t *testing.T) {
	var serverURL string
	calls := 0
	_, fetcher, _, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			writeJSON(w, http.StatusOK, fmt.Sprintf(`{"data":[{"id":"a"}],"paging":{"next":"%s/items?after=1"}}`, serverURL))
			return
		}
		writeJSON(w, http.StatusOK, `{"data":[{"id":"b"}]}`)
	})
	serverURL = server.URL

	result := FetchAll[item](context.Background(), fetcher, server.URL+"/items", 2, 0)

	assert.True(t, result.Success)
	assert.False(t, result.Truncated)
	assert.NoError(t, result.Err)
	assert.Len(t, result.Records, 2)
}

func TestFetchAll_TimeoutPorRequisicao(t *testing.T) {
	_, fetcher, _, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		writeJSON(w, http.StatusOK, `{"data":[]}`)
	})
	fetcher.client.(*MetaClient).Cfg.Meta.RequestTimeout = 20 * time.Millisecond

	result := FetchAll[item](context.Background(), fetcher, server.URL+"/items", 100, 0)

	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Err, ErrRequestTimeout)
}

func TestFetchAll_ContextoCancelado(t *testing.T) {
	_, fetcher, _, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":[]}`)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := FetchAll[item](ctx, fetcher, server.URL+"/items", 100, 2)

	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Err, context.Canceled)
}
