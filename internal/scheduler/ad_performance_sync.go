package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/ad-performance-sync/infrastructure/repository"
	"github.com/vfg2006/ad-performance-sync/internal/config"
	"github.com/vfg2006/ad-performance-sync/internal/domain"
	"github.com/vfg2006/ad-performance-sync/internal/usecases/syncing"
	"github.com/vfg2006/ad-performance-sync/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// AdPerformanceSyncConfig representa a configuração do agendador de performance
type AdPerformanceSyncConfig struct {
	CronSchedule          string
	MaxConcurrentAccounts int
	SyncEnabled           bool
}

// SyncSummary resume uma rodada do agendador sobre todas as contas ativas
type SyncSummary struct {
	Accounts    int `json:"accounts"`
	Succeeded   int `json:"succeeded"`
	Failed      int `json:"failed"`
	Skipped     int `json:"skipped"`
	RateLimited int `json:"rate_limited"`
	Records     int `json:"records"`
}

// AdPerformanceSyncService agenda a sincronização de performance de todas as contas ativas
type AdPerformanceSyncService struct {
	scheduler           *gocron.Scheduler
	config              AdPerformanceSyncConfig
	accountRepo         repository.AccountRepository
	syncer              syncing.Syncer
	baseCtx             context.Context
	syncRunning         bool
	syncMutex           sync.Mutex
	lastSyncStartedAt   time.Time
	lastSyncCompletedAt time.Time
	lastSummary         SyncSummary
}

func NewAdPerformanceSyncService(
	accountRepo repository.AccountRepository,
	syncer syncing.Syncer,
	appConfig *config.Config,
) *AdPerformanceSyncService {
	syncConfig := AdPerformanceSyncConfig{
		CronSchedule:          appConfig.AdSync.CronSchedule,
		MaxConcurrentAccounts: appConfig.AdSync.MaxConcurrentAccounts,
		SyncEnabled:           appConfig.AdSync.Enabled,
	}
	if syncConfig.MaxConcurrentAccounts <= 0 {
		syncConfig.MaxConcurrentAccounts = 1
	}

	logrus.WithFields(logrus.Fields{
		"cron_schedule":           syncConfig.CronSchedule,
		"max_concurrent_accounts": syncConfig.MaxConcurrentAccounts,
		"sync_enabled":            syncConfig.SyncEnabled,
	}).Info("Configuração do agendador de performance carregada")

	return &AdPerformanceSyncService{
		scheduler:   gocron.NewScheduler(time.Local),
		config:      syncConfig,
		accountRepo: accountRepo,
		syncer:      syncer,
		baseCtx:     context.Background(),
	}
}

// Start inicia o agendador
func (s *AdPerformanceSyncService) Start(ctx context.Context) error {
	s.baseCtx = ctx

	if !s.config.SyncEnabled {
		logrus.Info("Sincronização agendada de performance desabilitada por configuração")
		return nil
	}

	logrus.WithField("cron", s.config.CronSchedule).Info("Iniciando agendador de sincronização de performance")

	_, err := s.scheduler.Cron(s.config.CronSchedule).Do(func() {
		s.syncAllAccounts(ctx)
	})
	if err != nil {
		return fmt.Errorf("erro ao agendar sincronização de performance: %w", err)
	}

	s.scheduler.StartAsync()

	go func() {
		<-ctx.Done()
		logrus.Info("Parando agendador de sincronização de performance")
		s.scheduler.Stop()
	}()

	return nil
}

// syncAllAccounts roda uma rodada completa; devolve false se outra já estava em andamento
func (s *AdPerformanceSyncService) syncAllAccounts(ctx context.Context) (SyncSummary, bool) {
	if !s.claimRound() {
		logrus.Info("Sincronização de performance já em andamento, ignorando")
		return SyncSummary{}, false
	}
	return s.runRound(ctx), true
}

// claimRound marca a rodada como em andamento; quem recebe true deve chamar runRound.
func (s *AdPerformanceSyncService) claimRound() bool {
	s.syncMutex.Lock()
	defer s.syncMutex.Unlock()

	if s.syncRunning {
		return false
	}
	s.syncRunning = true
	s.lastSyncStartedAt = time.Now()
	return true
}

// runRound executa uma rodada já reservada por claimRound e a libera ao final.
func (s *AdPerformanceSyncService) runRound(ctx context.Context) SyncSummary {
	defer func() {
		s.syncMutex.Lock()
		s.syncRunning = false
		s.syncMutex.Unlock()
	}()

	startTime := time.Now()
	logrus.Info("Iniciando sincronização de performance para todas as contas ativas")

	accounts, err := s.accountRepo.ListAccounts(ctx, []domain.AdAccountStatus{domain.AdAccountStatusActive})
	if err != nil {
		logrus.WithError(err).Error("Erro ao buscar contas para sincronização de performance")
		return SyncSummary{}
	}

	summary := s.syncAccounts(ctx, accounts)

	logrus.WithFields(logrus.Fields{
		"duration":     time.Since(startTime).String(),
		"accounts":     summary.Accounts,
		"succeeded":    summary.Succeeded,
		"failed":       summary.Failed,
		"skipped":      summary.Skipped,
		"rate_limited": summary.RateLimited,
		"records":      summary.Records,
	}).Info("Sincronização de performance concluída")

	s.syncMutex.Lock()
	s.lastSyncCompletedAt = time.Now()
	s.lastSummary = summary
	s.syncMutex.Unlock()

	return summary
}

// syncAccounts sincroniza as contas com no máximo MaxConcurrentAccounts em paralelo.
// Falha de uma conta não interrompe as demais.
func (s *AdPerformanceSyncService) syncAccounts(ctx context.Context, accounts []*domain.AdAccount) SyncSummary {
	var (
		mu      sync.Mutex
		summary = SyncSummary{Accounts: len(accounts)}
	)

	g := new(errgroup.Group)
	g.SetLimit(s.config.MaxConcurrentAccounts)

	for _, account := range accounts {
		if account.ExternalID == "" {
			logrus.WithField("account_id", account.ID).Warn("Conta sem external_id. Pulando.")
			mu.Lock()
			summary.Skipped++
			mu.Unlock()
			continue
		}

		g.Go(func() error {
			result := s.syncAccount(ctx, account)

			mu.Lock()
			defer mu.Unlock()
			switch result.outcome {
			case outcomeSuccess:
				summary.Succeeded++
				summary.Records += result.records
			case outcomeSkipped:
				summary.Skipped++
			case outcomeRateLimited:
				summary.RateLimited++
				summary.Failed++
			default:
				summary.Failed++
			}
			return nil
		})
	}

	_ = g.Wait()
	return summary
}

const (
	outcomeSuccess     = "success"
	outcomeFailed      = "failed"
	outcomeSkipped     = "skipped"
	outcomeRateLimited = "rate_limited"
)

type accountResult struct {
	outcome string
	records int
}

func (s *AdPerformanceSyncService) syncAccount(ctx context.Context, account *domain.AdAccount) accountResult {
	fields := logrus.Fields{
		"account_id":   account.ID,
		"external_id":  account.ExternalID,
		"account_name": account.DisplayName(),
	}

	if ctx.Err() != nil {
		metrics.ScheduledAccounts.WithLabelValues(outcomeSkipped).Inc()
		return accountResult{outcome: outcomeSkipped}
	}

	resp, err := s.syncer.SyncAccount(ctx, account, false)
	if err != nil {
		outcome := outcomeFailed
		switch {
		case errors.Is(err, syncing.ErrSyncInProgress):
			outcome = outcomeSkipped
		case errors.Is(err, syncing.ErrRateLimitExceeded):
			outcome = outcomeRateLimited
		}

		metrics.ScheduledAccounts.WithLabelValues(outcome).Inc()
		logrus.WithFields(fields).WithError(err).WithField("outcome", outcome).Warn("Erro ao sincronizar performance da conta")
		return accountResult{outcome: outcome}
	}

	metrics.ScheduledAccounts.WithLabelValues(outcomeSuccess).Inc()
	logrus.WithFields(fields).WithFields(logrus.Fields{
		"count":     resp.Count,
		"sync_type": resp.SyncType,
	}).Info("Performance da conta sincronizada")

	return accountResult{outcome: outcomeSuccess, records: resp.Count}
}

// TriggerManualSync inicia uma rodada fora do cron; devolve false se já houver uma em andamento.
// A rodada já está reservada quando a função retorna.
func (s *AdPerformanceSyncService) TriggerManualSync() bool {
	if !s.claimRound() {
		logrus.Info("Sincronização de performance já em andamento, ignorando solicitação manual")
		return false
	}

	logrus.Info("Iniciando sincronização manual de performance")
	go s.runRound(s.baseCtx)
	return true
}

// GetStatus retorna o status atual do agendador
func (s *AdPerformanceSyncService) GetStatus() map[string]any {
	s.syncMutex.Lock()
	defer s.syncMutex.Unlock()

	return map[string]any{
		"sync_enabled":           s.config.SyncEnabled,
		"sync_cron":              s.config.CronSchedule,
		"sync_max_concurrent":    s.config.MaxConcurrentAccounts,
		"sync_running":           s.syncRunning,
		"last_sync_started_at":   s.lastSyncStartedAt,
		"last_sync_completed_at": s.lastSyncCompletedAt,
		"last_sync_summary":      s.lastSummary,
	}
}
