package metaclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	metadomain "github.com/vfg2006/ad-performance-sync/infrastructure/integrator/meta/domain"
	"github.com/vfg2006/ad-performance-sync/internal/config"
	"github.com/vfg2006/ad-performance-sync/pkg/metrics"
	"github.com/vfg2006/ad-performance-sync/pkg/retry"
)

const (
	PolicyRateLimit = "rate_limit"
	PolicyGeneric   = "generic"
)

// PageGetter é a única dependência HTTP do fetcher.
type PageGetter interface {
	GetPage(ctx context.Context, rawURL string) ([]byte, error)
}

// FetchResult carrega tudo o que foi acumulado; em falha Records tem o parcial e Err a causa.
// Truncated marca a parada por limite de páginas com mais dados disponíveis.
type FetchResult[T any] struct {
	Records   []T
	Success   bool
	Truncated bool
	Err       error
	Pages     int
}

// Fetcher segue os cursores "next" aplicando duas políticas de retentativa independentes.
type Fetcher struct {
	client PageGetter
	cfg    config.Meta
	sleep  retry.Sleeper
}

func NewFetcher(client PageGetter, cfg config.Meta, sleep retry.Sleeper) *Fetcher {
	if sleep == nil {
		sleep = retry.Sleep
	}
	return &Fetcher{client: client, cfg: cfg, sleep: sleep}
}

// Sleep expõe o sleeper injetado para pausas entre requisições de quem usa o fetcher.
func (f *Fetcher) Sleep(ctx context.Context, d time.Duration) error {
	return f.sleep(ctx, d)
}

// RateLimitPolicy espera a dica do Meta ou base × k, até MaxRateLimitRetries.
func (f *Fetcher) RateLimitPolicy() retry.Policy {
	return retry.Policy{
		Name:       PolicyRateLimit,
		MaxRetries: f.cfg.MaxRateLimitRetries,
		Classify:   IsRateLimited,
		Backoff:    retry.HintOr(RetryHint, retry.Linear(f.cfg.RateLimitBaseDelay)),
	}
}

// genericPolicy cobre rede, timeout, 5xx e corpo inválido. Token expirado e
// cancelamento do contexto do chamador nunca são retentados.
func (f *Fetcher) genericPolicy(ctx context.Context, maxRetries int) retry.Policy {
	return retry.Policy{
		Name:       PolicyGeneric,
		MaxRetries: maxRetries,
		Classify: func(err error) bool {
			if ctx.Err() != nil || IsTokenExpired(err) {
				return false
			}
			return !errors.Is(err, context.Canceled)
		},
		Backoff: retry.Fixed(f.cfg.GenericRetryDelay),
	}
}

func (f *Fetcher) runner(ctx context.Context, maxGenericRetries int, fields logrus.Fields) *retry.Runner {
	return retry.New(f.sleep, f.RateLimitPolicy(), f.genericPolicy(ctx, maxGenericRetries)).
		OnRetry(func(policy string, attempt int, wait time.Duration, err error) {
			metrics.FetchRetries.WithLabelValues(policy).Inc()
			logrus.WithFields(fields).WithFields(logrus.Fields{
				"policy":  policy,
				"attempt": attempt,
				"wait":    wait.String(),
			}).WithError(err).Warn("meta: retentando requisição")
		})
}

// Do executa uma única chamada com as mesmas políticas usadas entre páginas.
func (f *Fetcher) Do(ctx context.Context, maxGenericRetries int, fields logrus.Fields, fn func(ctx context.Context) error) error {
	return f.runner(ctx, maxGenericRetries, fields).Do(ctx, fn)
}

// FetchAll acumula todas as páginas a partir de rawURL. Atingir maxPages com
// cursor pendente é falha (ErrPageLimitReached): o parcial nunca passa por completo.
func FetchAll[T any](ctx context.Context, f *Fetcher, rawURL string, maxPages, maxGenericRetries int) FetchResult[T] {
	result := FetchResult[T]{Success: true}
	next := rawURL

	for next != "" {
		if maxPages > 0 && result.Pages >= maxPages {
			logrus.WithFields(logrus.Fields{
				"pages":   result.Pages,
				"records": len(result.Records),
			}).Error("meta: limite de páginas atingido, resultado truncado")
			return truncated(result)
		}

		if result.Pages > 0 {
			if err := f.sleep(ctx, f.cfg.InterPageDelay); err != nil {
				result.Success = false
				result.Err = err
				return result
			}
		}

		pageURL := next
		var page metadomain.Page[T]
		err := f.Do(ctx, maxGenericRetries, logrus.Fields{"page": result.Pages + 1}, func(ctx context.Context) error {
			body, err := f.client.GetPage(ctx, pageURL)
			if err != nil {
				return err
			}

			page = metadomain.Page[T]{}
			if err := json.Unmarshal(body, &page); err != nil {
				return fmt.Errorf("%w: %v", ErrDecode, err)
			}

			if !page.Error.IsEmpty() {
				return newAPIError(http.StatusOK, nil, page.Error, time.Now())
			}

			return nil
		})
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"page":    result.Pages + 1,
				"records": len(result.Records),
			}).WithError(err).Error("meta: falha ao buscar página")

			result.Success = false
			result.Err = err
			return result
		}

		result.Records = append(result.Records, page.Data...)
		result.Pages++
		next = page.Paging.Next
	}

	return result
}

func truncated[T any](result FetchResult[T]) FetchResult[T] {
	result.Success = false
	result.Truncated = true
	result.Err = ErrPageLimitReached
	return result
}
