package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vfg2006/ad-performance-sync/pkg/apiErrors"
	"golang.org/x/time/rate"
)

// RateLimiter limita requisições por usuário com um token bucket por chave.
type RateLimiter struct {
	limiters map[string]*rateLimiterEntry
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	now      func() time.Time
}

type rateLimiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewRateLimiter permite reqsPerWindow requisições por janela, com rajada do mesmo tamanho.
func NewRateLimiter(reqsPerWindow int, window time.Duration) *RateLimiter {
	if reqsPerWindow <= 0 {
		reqsPerWindow = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*rateLimiterEntry),
		rate:     rate.Every(window / time.Duration(reqsPerWindow)),
		burst:    reqsPerWindow,
		now:      time.Now,
	}
}

// Reserve consome um token da chave; se não houver, devolve quanto falta para o próximo.
func (rl *RateLimiter) Reserve(key string) (bool, time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	entry, exists := rl.limiters[key]
	if !exists {
		entry = &rateLimiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = entry
	}
	entry.lastAccess = now
	limiter := entry.limiter
	rl.mu.Unlock()

	reservation := limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return false, 0
	}

	delay := reservation.DelayFrom(now)
	if delay > 0 {
		reservation.CancelAt(now)
		return false, delay
	}

	return true, 0
}

// Cleanup remove chaves sem acesso há mais de idle.
func (rl *RateLimiter) Cleanup(idle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	threshold := rl.now().Add(-idle)
	for key, entry := range rl.limiters {
		if entry.lastAccess.Before(threshold) {
			delete(rl.limiters, key)
		}
	}
}

// StartCleanup remove periodicamente chaves ociosas até ctx ser cancelado.
func (rl *RateLimiter) StartCleanup(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Cleanup(idle)
		}
	}
}

// RateLimitByUser aplica o limiter por usuário autenticado; sem claims, pela origem da requisição.
func RateLimitByUser(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.RemoteAddr
			if claims, ok := ClaimsFromContext(r.Context()); ok {
				key = "user:" + strconv.Itoa(claims.UserID)
			}

			allowed, retryAfter := rl.Reserve(key)
			if !allowed {
				logrus.WithFields(logrus.Fields{
					"key":         key,
					"path":        r.URL.Path,
					"retry_after": retryAfter.String(),
				}).Warn("Limite de sincronizações manuais atingido")

				apiErrors.WriteRetryableError(w, apiErrors.ErrTooManySyncRequests,
					"Muitas solicitações de sincronização, tente novamente mais tarde", nil, retryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
