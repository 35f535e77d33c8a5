package main

import (
	"context"
	"net/http"
	"os"
	"path"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vfg2006/ad-performance-sync/infrastructure/database/postgres"
	"github.com/vfg2006/ad-performance-sync/infrastructure/integrator/meta"
	"github.com/vfg2006/ad-performance-sync/infrastructure/integrator/meta/metaclient"
	"github.com/vfg2006/ad-performance-sync/infrastructure/repository"
	"github.com/vfg2006/ad-performance-sync/internal/api"
	"github.com/vfg2006/ad-performance-sync/internal/config"
	"github.com/vfg2006/ad-performance-sync/internal/scheduler"
	"github.com/vfg2006/ad-performance-sync/internal/usecases/account"
	"github.com/vfg2006/ad-performance-sync/internal/usecases/authenticating"
	"github.com/vfg2006/ad-performance-sync/internal/usecases/syncing"
)

func main() {
	// Inicializa configuração de logs
	configureLogger()

	cfg, err := config.NewConfig()
	if err != nil {
		logrus.Fatal(err)
	}

	// Define o nível de log com base na configuração
	logLevel, err := logrus.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		logrus.Warnf("Nível de log inválido: %s, usando 'info'", cfg.App.LogLevel)
		logLevel = logrus.InfoLevel
	}
	logrus.SetLevel(logLevel)
	logrus.Infof("Nível de log configurado para: %s", logLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgConn := pgconn(ctx, cfg.Database)
	defer pgConn.Close()

	accountRepo := repository.NewAccountRepository(pgConn)
	performanceRepo := repository.NewPerformanceRecordRepository(pgConn)
	syncStateRepo := repository.NewSyncStateRepository(pgConn)

	authenticator := authenticating.NewService(cfg)

	httpClient := &http.Client{}

	tokenManager := metaclient.NewTokenManager(cfg, httpClient)
	tokenManager.InitToken(ctx)
	go tokenManager.StartAutoRefresh(ctx)
	defer tokenManager.StopAutoRefresh()

	metaClient := metaclient.NewClient(cfg, tokenManager, httpClient)
	fetcher := metaclient.NewFetcher(metaClient, cfg.Meta, nil)
	metaIntegrator := meta.New(cfg, metaClient, fetcher)

	syncService := syncing.NewService(
		cfg,
		accountRepo,
		metaIntegrator,
		performanceRepo,
		syncStateRepo,
		syncing.NewAccountLocks(),
	)

	accountService := account.NewService(accountRepo)

	// Agendador diário; compartilha os locks por conta com o endpoint manual
	adPerformanceSyncService := scheduler.NewAdPerformanceSyncService(accountRepo, syncService, cfg)
	if err := adPerformanceSyncService.Start(ctx); err != nil {
		logrus.WithError(err).Error("Erro ao iniciar o agendador de sincronização de performance")
	} else {
		logrus.Info("Agendador de sincronização de performance iniciado com sucesso")
	}

	server, err := api.New(
		cfg,
		authenticator,
		accountService,
		syncService,
		adPerformanceSyncService,
	)
	if err != nil {
		logrus.Fatal(err)
	}

	if err := server.Run(ctx); err != nil {
		logrus.Error(err)
	}
}

// configureLogger configura o formato e comportamento dos logs
func configureLogger() {
	_, file, _, _ := runtime.Caller(0)
	dir := path.Dir(file)
	os.Chdir(dir)

	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
}

// pgconn cria uma conexão com o banco de dados
func pgconn(ctx context.Context, dbConfig config.Database) *postgres.Connection {
	conn, err := postgres.NewConnection(ctx, dbConfig)
	if err != nil {
		logrus.WithError(err).Fatal("Erro ao conectar ao PostgreSQL")
	}

	err = conn.Ping(ctx)
	if err != nil {
		logrus.WithError(err).Fatal("Erro ao testar conexão com PostgreSQL")
	}

	logrus.Info("Conexão com PostgreSQL estabelecida com sucesso")
	return conn
}
