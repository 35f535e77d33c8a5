package syncing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vfg2006/ad-performance-sync/internal/config"
	"github.com/vfg2006/ad-performance-sync/internal/domain"
	"github.com/vfg2006/ad-performance-sync/pkg/apiErrors"
	"github.com/vfg2006/ad-performance-sync/pkg/log"
	"github.com/vfg2006/ad-performance-sync/pkg/metrics"
	"github.com/vfg2006/ad-performance-sync/pkg/utils"
)

type Service struct {
	accounts     AccountFinder
	meta         MetaIntegrator
	states       SyncStateStore
	selector     *ModeSelector
	materializer *Materializer
	writer       *Writer
	locks        *AccountLocks
	now          func() time.Time
}

func NewService(
	cfg *config.Config,
	accounts AccountFinder,
	meta MetaIntegrator,
	performance PerformanceStore,
	states SyncStateStore,
	locks *AccountLocks,
) *Service {
	if locks == nil {
		locks = NewAccountLocks()
	}

	return &Service{
		accounts:     accounts,
		meta:         meta,
		states:       states,
		selector:     NewModeSelector(states, performance, cfg.AdSync.LookbackDays, cfg.AdSync.BufferDays),
		materializer: NewMaterializer(cfg.AdSync.EventValues),
		writer:       NewWriter(performance, states, cfg.AdSync.WriteBatchSize),
		locks:        locks,
		now:          time.Now,
	}
}

// Sync é a entrada do endpoint manual.
func (s *Service) Sync(ctx context.Context, request domain.SyncRequest) (*domain.SyncResponse, error) {
	if request.AdAccountID == "" {
		return nil, NewSyncError(ErrAccountIDRequired, apiErrors.ErrMissingRequiredData, "", "ID da conta é obrigatório")
	}

	account, err := s.accounts.GetAccountByID(ctx, request.AdAccountID)
	if err != nil {
		return nil, NewSyncError(ErrStorageRead, apiErrors.ErrDatabaseOperation, request.AdAccountID, "Falha ao buscar conta").withCause(err)
	}
	if account == nil {
		return nil, NewSyncError(ErrAccountNotFound, apiErrors.ErrAccountNotFound, request.AdAccountID, "Conta não encontrada")
	}

	logrus.WithFields(logrus.Fields{
		"account_id": account.ID,
		"user_id":    request.UserID,
		"force":      request.ForceFullSync,
	}).Info("sync: sincronização manual solicitada")

	return s.SyncAccount(ctx, account, request.ForceFullSync)
}

// SyncAccount executa modo → linhas → hierarquia → reconciliação → materialização → escrita.
func (s *Service) SyncAccount(ctx context.Context, account *domain.AdAccount, force bool) (*domain.SyncResponse, error) {
	release, ok := s.locks.TryAcquire(account.ID)
	if !ok {
		metrics.SyncErrors.WithLabelValues(categoryOf(ErrSyncInProgress)).Inc()
		return nil, NewSyncError(ErrSyncInProgress, apiErrors.ErrSyncInProgress, account.ID, "Já existe uma sincronização em andamento para a conta").retryable(0)
	}
	defer release()

	start := s.now()
	runID, err := utils.GenerateRunID()
	if err != nil {
		return nil, NewSyncError(ErrWriteFailure, apiErrors.ErrInternalServer, account.ID, "Falha ao gerar identificador da execução").withCause(err)
	}

	fields := logrus.Fields{
		"account_id":  account.ID,
		"external_id": account.ExternalID,
		"sync_run_id": runID,
	}
	if correlationID := log.GetCorrelationID(ctx); correlationID != "" {
		fields["correlation_id"] = correlationID
	}

	decision, err := s.selector.Decide(ctx, account.ID, force, start)
	if err != nil {
		return nil, s.fail(fields, "", err)
	}

	fields["sync_mode"] = decision.Mode
	fields["sync_window"] = decision.Window.String()
	fields["sync_window_days"] = decision.Window.Days()
	logrus.WithFields(fields).WithField("downgraded", decision.Downgraded).Info("sync: iniciando sincronização")

	rows, err := s.meta.FetchPerformanceRows(ctx, account.ExternalID, decision.Window)
	if err != nil {
		return nil, s.fail(fields, decision.Mode, classifyFetchError(account.ID, err))
	}

	hierarchy, err := s.meta.FetchEntityHierarchy(ctx, account.ExternalID)
	if err != nil {
		return nil, s.fail(fields, decision.Mode, classifyFetchError(account.ID, err))
	}
	if hierarchy == nil {
		hierarchy = &domain.EntityHierarchy{}
	}

	if missing := missingEntityLevel(rows, hierarchy); missing != "" {
		err := NewSyncError(ErrIncompleteEntityData, apiErrors.ErrSyncIncompleteData, account.ID,
			fmt.Sprintf("%d linhas de performance mas %s indisponíveis", len(rows), missing)).retryable(0)
		return nil, s.fail(fields, decision.Mode, err)
	}

	reconciled := Reconcile(rows, hierarchy)
	if reconciled.DroppedRows > 0 {
		metrics.RowsDropped.Add(float64(reconciled.DroppedRows))
		logrus.WithFields(fields).WithFields(logrus.Fields{
			"dropped_rows":      reconciled.DroppedRows,
			"dropped_campaigns": reconciled.DroppedCampaigns,
		}).Info("sync: linhas de campanhas removidas descartadas")
	}
	if reconciled.FilledAdSets > 0 || reconciled.FilledAds > 0 {
		logrus.WithFields(fields).WithFields(logrus.Fields{
			"filled_adsets": reconciled.FilledAdSets,
			"filled_ads":    reconciled.FilledAds,
			"adsets_ok":     hierarchy.Health.AdSetsOK,
			"ads_ok":        hierarchy.Health.AdsOK,
		}).Warn("sync: entidades inferidas a partir das linhas de performance")
	}

	records, stats := s.materializer.MaterializeWindow(account.ID, decision.Window, reconciled.ActiveRows, reconciled.Hierarchy)

	written, err := s.writer.Persist(ctx, account.ID, decision, runID, records)
	if err != nil {
		return nil, s.fail(fields, decision.Mode, err)
	}

	elapsed := s.now().Sub(start)
	metrics.SyncRunsTotal.WithLabelValues(string(decision.Mode), "success").Inc()
	metrics.SyncDuration.WithLabelValues(string(decision.Mode)).Observe(elapsed.Seconds())
	metrics.RecordsWritten.Add(float64(written.Written))

	logrus.WithFields(fields).WithFields(logrus.Fields{
		"written":              written.Written,
		"batches":              written.Batches,
		"ads_with_activity":    stats.AdsWithActivity,
		"ads_without_activity": stats.AdsWithoutActivity,
		"elapsed":              elapsed.String(),
	}).Info("sync: sincronização concluída")

	message := "Sincronização concluída com sucesso"
	if written.Written == 0 {
		message = "Nenhum registro encontrado para a janela"
	}

	return &domain.SyncResponse{
		Message:  message,
		Count:    written.Written,
		SyncType: decision.Mode,
		DateRange: domain.DateRange{
			Start: decision.Window.Since.Format(time.DateOnly),
			End:   decision.Window.Until.Format(time.DateOnly),
		},
		AdsWithActivity:    stats.AdsWithActivity,
		AdsWithoutActivity: stats.AdsWithoutActivity,
		RunID:              runID,
	}, nil
}

// GetSyncState nunca devolve nil sem erro: conta sem estado gravado vem zerada.
func (s *Service) GetSyncState(ctx context.Context, accountID string) (*domain.SyncState, error) {
	state, err := s.states.GetSyncState(ctx, accountID)
	if err != nil {
		return nil, NewSyncError(ErrStorageRead, apiErrors.ErrDatabaseOperation, accountID, "Falha ao ler estado de sincronização").withCause(err)
	}
	if state == nil {
		state = &domain.SyncState{AccountID: accountID}
	}
	state.InProgress = s.locks.InProgress(accountID)
	return state, nil
}

func (s *Service) fail(fields logrus.Fields, mode domain.SyncMode, err error) error {
	metrics.SyncErrors.WithLabelValues(categoryOf(err)).Inc()
	if mode != "" {
		metrics.SyncRunsTotal.WithLabelValues(string(mode), "failure").Inc()
	}

	entry := logrus.WithFields(fields).WithError(err)
	if syncErr, ok := AsSyncError(err); ok && syncErr.Retryable {
		entry.WithField("retry_after", syncErr.RetryAfter.String()).Warn("sync: sincronização interrompida, pode ser retentada")
	} else {
		entry.Error("sync: sincronização falhou")
	}

	return err
}

// missingEntityLevel aponta o nível que carrega status e orçamento (campanha ou
// conjunto) sem dados confiáveis enquanto há linhas para gravar. Falha na coleção
// de anúncios segue com status "unknown", pois anúncio não tem orçamento.
func missingEntityLevel(rows []domain.PerformanceRow, hierarchy *domain.EntityHierarchy) string {
	if len(rows) == 0 {
		return ""
	}
	switch {
	case !hierarchy.Health.CampaignsOK || len(hierarchy.Campaigns) == 0:
		return "campanhas"
	case !hierarchy.Health.AdSetsOK:
		return "conjuntos de anúncios"
	default:
		return ""
	}
}

// classifyFetchError traduz falhas do integrador nas categorias visíveis ao chamador.
func classifyFetchError(accountID string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return NewSyncError(ErrTransientFetch, apiErrors.ErrSyncUpstream, accountID, "Sincronização cancelada").withCause(err)
	}

	upstream, ok := domain.AsUpstreamError(err)
	if !ok {
		return NewSyncError(ErrTransientFetch, apiErrors.ErrSyncUpstream, accountID, err.Error()).withCause(err).retryable(0)
	}

	switch upstream.Kind {
	case domain.UpstreamRateLimited:
		return NewSyncError(ErrRateLimitExceeded, apiErrors.ErrSyncRateLimited, accountID,
			fmt.Sprintf("Limite de requisições do Meta atingido ao buscar %s", upstream.Collection)).
			withCause(err).retryable(upstream.RetryAfter)
	case domain.UpstreamTokenExpired:
		return NewSyncError(ErrTokenExpired, apiErrors.ErrSyncTokenExpired, accountID,
			"Token do Meta expirado, é necessário reautorizar").withCause(err)
	case domain.UpstreamIncomplete:
		return NewSyncError(ErrIncompleteFetch, apiErrors.ErrSyncUpstream, accountID,
			fmt.Sprintf("Dados incompletos ao buscar %s, janela preservada", upstream.Collection)).withCause(err)
	default:
		return NewSyncError(ErrTransientFetch, apiErrors.ErrSyncUpstream, accountID,
			fmt.Sprintf("Falha ao buscar %s", upstream.Collection)).withCause(err).retryable(0)
	}
}

func categoryOf(err error) string {
	switch {
	case errors.Is(err, ErrRateLimitExceeded):
		return "rate_limited"
	case errors.Is(err, ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, ErrIncompleteEntityData):
		return "incomplete_entity_data"
	case errors.Is(err, ErrIncompleteFetch):
		return "incomplete_fetch"
	case errors.Is(err, ErrWriteFailure):
		return "write_failure"
	case errors.Is(err, ErrSyncInProgress):
		return "in_progress"
	case errors.Is(err, ErrStorageRead):
		return "storage_read"
	case errors.Is(err, ErrTransientFetch):
		return "transient"
	default:
		return "other"
	}
}
