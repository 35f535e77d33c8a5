package metaclient

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateTokenExpiration(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresIn int64
		want      time.Time
	}{
		{name: "Token de 60 dias desconta um dia", expiresIn: 60 * 24 * 3600, want: now.Add(59 * 24 * time.Hour)},
		{name: "Token curto usa metade do prazo", expiresIn: 3600, want: now.Add(30 * time.Minute)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculateTokenExpiration(tt.expiresIn, now))
		})
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "1 dias, 2 horas e 3 minutos", FormatDuration(26*3600+3*60))
}

func TestTokenManager_RefreshToken(t *testing.T) {
	var gotExchange string
	client, _, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oauth/access_token", r.URL.Path)
		gotExchange = r.URL.Query().Get("fb_exchange_token")
		assert.Equal(t, "fb_exchange_token", r.URL.Query().Get("grant_type"))
		writeJSON(w, http.StatusOK, `{"access_token":"novo","token_type":"bearer","expires_in":5184000}`)
	})
	tm := client.TokenManager
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tm.now = func() time.Time { return now }

	require.NoError(t, tm.RefreshToken())

	assert.Equal(t, "tok", gotExchange)
	assert.Equal(t, "novo", tm.AccessToken())
	assert.Equal(t, now.Add(59*24*time.Hour), tm.ExpiresAt())
}

func TestTokenManager_RefreshTokenExpirado(t *testing.T) {
	client, _, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"error":{"message":"Session has expired","type":"OAuthException","code":190,"error_subcode":463}}`)
	})

	err := client.TokenManager.RefreshToken()

	require.Error(t, err)
	assert.True(t, IsTokenExpired(err))
	assert.Contains(t, err.Error(), "reautorizar")
	assert.Equal(t, "tok", client.TokenManager.AccessToken())
}

func TestTokenManager_EnsureValidToken(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		expiresAt   time.Time
		wantRefresh int32
	}{
		{name: "Sem expiração conhecida não renova", expiresAt: time.Time{}, wantRefresh: 0},
		{name: "Expira em 10 dias não renova", expiresAt: now.Add(10 * 24 * time.Hour), wantRefresh: 0},
		{name: "Expira em 2 horas renova", expiresAt: now.Add(2 * time.Hour), wantRefresh: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var refreshes int32
			client, _, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&refreshes, 1)
				writeJSON(w, http.StatusOK, `{"access_token":"novo","expires_in":5184000}`)
			})
			tm := client.TokenManager
			tm.now = func() time.Time { return now }
			tm.setToken("tok", tt.expiresAt)

			require.NoError(t, tm.EnsureValidToken())
			assert.Equal(t, tt.wantRefresh, atomic.LoadInt32(&refreshes))
		})
	}
}

func TestTokenManager_InitTokenValidaExistente(t *testing.T) {
	expires := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	client, _, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/debug_token", r.URL.Path)
		assert.Equal(t, "app|secret", r.URL.Query().Get("access_token"))
		writeJSON(w, http.StatusOK, `{"data":{"is_valid":true,"expires_at":1893456000}}`)
	})

	client.TokenManager.InitToken(context.Background())

	assert.Equal(t, expires.Add(-24*time.Hour), client.TokenManager.ExpiresAt().UTC())
}

func TestTokenManager_StopAutoRefreshIdempotente(t *testing.T) {
	client, _, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	tm := client.TokenManager

	done := make(chan struct{})
	go func() {
		tm.StartAutoRefresh(context.Background())
		close(done)
	}()

	tm.StopAutoRefresh()
	tm.StopAutoRefresh()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("auto refresh não encerrou")
	}
}
