package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/justinas/alice"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/ad-performance-sync/internal/api/handler"
	"github.com/vfg2006/ad-performance-sync/internal/api/handler/router"
	"github.com/vfg2006/ad-performance-sync/internal/config"
	"github.com/vfg2006/ad-performance-sync/internal/scheduler"
	"github.com/vfg2006/ad-performance-sync/internal/usecases/account"
	"github.com/vfg2006/ad-performance-sync/internal/usecases/authenticating"
	"github.com/vfg2006/ad-performance-sync/internal/usecases/syncing"
	"github.com/vfg2006/ad-performance-sync/pkg/middleware"
)

type Server struct {
	httpServer        *http.Server
	manualSyncLimiter *middleware.RateLimiter
}

func New(
	config *config.Config,
	authenticator authenticating.Authenticator,
	accountService account.AccountService,
	syncer syncing.Syncer,
	adPerformanceSyncService *scheduler.AdPerformanceSyncService,
) (*Server, error) {
	cronServices := handler.CronJobServices{
		AdPerformanceSyncService: adPerformanceSyncService,
	}

	manualSyncLimiter := middleware.NewRateLimiter(
		config.RateLimit.ManualSyncRequests,
		config.RateLimit.ManualSyncWindow,
	)

	rt := router.New(
		router.WithRoutes(handler.Healthcheck()...),
		router.WithRoutes(handler.AdAccounts(accountService)...),
		router.WithRoutes(handler.AdSync(syncer, manualSyncLimiter)...),
		router.WithRoutes(handler.CronJobs(cronServices)...),
	)
	logrus.WithField("routes", rt.Paths()).Debug("Rotas registradas")

	middlewares := []alice.Constructor{
		middleware.LogPanicMiddleware(),
		middleware.LoggingMiddleware(),
		middleware.Cors(config.Server.AllowedOrigins),
		middleware.AuthMiddleware(authenticator),
	}

	handler := alice.New(middlewares...).Then(rt)

	srv := &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port),
			Handler:           handler,
			ReadHeaderTimeout: 2 * time.Second,
		},
		manualSyncLimiter: manualSyncLimiter,
	}

	return srv, nil
}

func (s Server) Run(ctx context.Context) error {
	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	defer stopCleanup()
	go s.manualSyncLimiter.StartCleanup(cleanupCtx, 5*time.Minute, 30*time.Minute)

	go func() {
		logrus.WithFields(logrus.Fields{
			"address": s.httpServer.Addr,
		}).Info("Servidor iniciando")

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Error("Erro durante a execução do servidor")
		}
	}()

	// Canal para aguardar sinais de término
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	// Aguardar pelo sinal ou pelo cancelamento do contexto
	select {
	case <-done:
		logrus.Info("Sinal de interrupção recebido")
	case <-ctx.Done():
		logrus.Info("Contexto de aplicação cancelado")
	}

	// Define timeout para desligamento
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Log de início do desligamento
	logrus.WithFields(logrus.Fields{
		"timeout": "15s",
	}).Info("Iniciando desligamento gracioso do servidor")

	if err := s.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Erro durante o desligamento do servidor")
		return err
	}

	logrus.Info("Servidor desligado com sucesso")
	return nil
}

func (s Server) Shutdown(ctx context.Context) error {
	logrus.Info("Executando operações de limpeza antes do desligamento")

	err := s.httpServer.Shutdown(ctx)
	if err != nil {
		return err
	}

	logrus.Info("Servidor HTTP desligado com sucesso")
	return nil
}
