// Package metrics expõe as métricas Prometheus da sincronização de anúncios.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ad_sync_runs_total",
			Help: "Execuções de sincronização por modo e resultado",
		},
		[]string{"mode", "result"},
	)

	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ad_sync_duration_seconds",
			Help:    "Duração das execuções de sincronização",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"mode"},
	)

	RecordsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ad_sync_records_written_total",
			Help: "Registros de performance gravados",
		},
	)

	RowsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ad_sync_rows_dropped_total",
			Help: "Linhas descartadas por pertencerem a campanhas ausentes",
		},
	)

	SyncErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ad_sync_errors_total",
			Help: "Erros de sincronização por categoria",
		},
		[]string{"category"},
	)

	ScheduledAccounts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ad_sync_scheduled_accounts_total",
			Help: "Contas processadas pelo agendador por resultado",
		},
		[]string{"result"},
	)

	FetchRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meta_fetch_retries_total",
			Help: "Retentativas de requisições à Graph API por política",
		},
		[]string{"policy"},
	)

	BatchFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "meta_batch_fallbacks_total",
			Help: "Vezes em que o batch foi abandonado em favor de buscas sequenciais",
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Estado do circuit breaker (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Transições de estado do circuit breaker",
		},
		[]string{"name", "from", "to"},
	)
)

func Handler() http.Handler {
	return promhttp.Handler()
}
