package handler

import (
	"net/http"

	"github.com/vfg2006/ad-performance-sync/internal/api/handler/router"
	"github.com/vfg2006/ad-performance-sync/internal/usecases/account"
	"github.com/vfg2006/ad-performance-sync/internal/usecases/syncing"
	"github.com/vfg2006/ad-performance-sync/pkg/metrics"
	"github.com/vfg2006/ad-performance-sync/pkg/middleware"
)

func Healthcheck() []router.Route {
	return []router.Route{
		{
			Path:    "/healthcheck",
			Method:  http.MethodGet,
			Handler: HealthcheckHandler(),
		},
		{
			Path:    "/metrics",
			Method:  http.MethodGet,
			Handler: metrics.Handler(),
		},
	}
}

func AdAccounts(service account.AccountService) []router.Route {
	return []router.Route{
		{
			Path:        "/v1/accounts",
			Method:      http.MethodGet,
			Handler:     AdAccountList(service),
			Middlewares: []func(http.Handler) http.Handler{middleware.AdminOrSupervisor()},
		},
	}
}

func AdSync(service syncing.Syncer, limiter *middleware.RateLimiter) []router.Route {
	return []router.Route{
		{
			Path:    "/v1/adAccount/:id/sync",
			Method:  http.MethodPost,
			Handler: SyncAdAccount(service),
			Middlewares: []func(http.Handler) http.Handler{
				middleware.AllRoles(),
				middleware.RateLimitByUser(limiter),
			},
		},
		{
			Path:        "/v1/adAccount/:id/sync/state",
			Method:      http.MethodGet,
			Handler:     GetAdAccountSyncState(service),
			Middlewares: []func(http.Handler) http.Handler{middleware.AllRoles()},
		},
	}
}

func CronJobs(services CronJobServices) []router.Route {
	return []router.Route{
		{
			Path:        "/v1/cron/:type/run",
			Method:      http.MethodPost,
			Handler:     RunCronJob(services),
			Middlewares: []func(http.Handler) http.Handler{middleware.AdminOnly()},
		},
		{
			Path:        "/v1/cron/status",
			Method:      http.MethodGet,
			Handler:     GetCronStatus(services),
			Middlewares: []func(http.Handler) http.Handler{middleware.AdminOrSupervisor()},
		},
	}
}
