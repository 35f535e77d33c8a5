package syncing

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vfg2006/ad-performance-sync/internal/domain"
	"github.com/vfg2006/ad-performance-sync/pkg/apiErrors"
)

// Decision é a escolha de modo e janela de uma sincronização.
type Decision struct {
	Mode       domain.SyncMode
	Window     domain.DateWindow
	Downgraded bool
	// PreviousState é o estado lido antes da decisão; nil na primeira sincronização.
	PreviousState *domain.SyncState
}

// ModeSelector escolhe entre carga inicial e incremental.
type ModeSelector struct {
	states       SyncStateStore
	performance  PerformanceStore
	lookbackDays int
	bufferDays   int
}

func NewModeSelector(states SyncStateStore, performance PerformanceStore, lookbackDays, bufferDays int) *ModeSelector {
	return &ModeSelector{
		states:       states,
		performance:  performance,
		lookbackDays: lookbackDays,
		bufferDays:   bufferDays,
	}
}

// Decide usa carga incremental só quando a carga inicial já foi concluída, existe
// last_sync_at e a conta tem registros. A janela incremental começa bufferDays antes
// da última sincronização, nunca antes do início da janela inicial.
func (m *ModeSelector) Decide(ctx context.Context, accountID string, force bool, now time.Time) (Decision, error) {
	today := domain.StartOfDay(now)
	initial := domain.NewDateWindow(today.AddDate(0, 0, -m.lookbackDays), today)

	state, err := m.states.GetSyncState(ctx, accountID)
	if err != nil {
		return Decision{}, NewSyncError(ErrStorageRead, apiErrors.ErrDatabaseOperation, accountID, "Falha ao ler estado de sincronização").withCause(err)
	}

	decision := Decision{Mode: domain.SyncModeInitial, Window: initial, PreviousState: state}

	if force || state == nil || !state.InitialSyncComplete || state.LastSyncAt == nil {
		return decision, nil
	}

	since := domain.StartOfDay(state.LastSyncAt.In(now.Location())).AddDate(0, 0, -m.bufferDays)
	if since.Before(initial.Since) {
		since = initial.Since
	}
	if since.After(today) {
		since = today
	}

	count, err := m.performance.CountByAccount(ctx, accountID)
	if err != nil {
		return Decision{}, NewSyncError(ErrStorageRead, apiErrors.ErrDatabaseOperation, accountID, "Falha ao contar registros de performance").withCause(err)
	}

	if count == 0 {
		logrus.WithFields(logrus.Fields{
			"account_id":   accountID,
			"last_sync_at": state.LastSyncAt,
		}).Warn("sync: estado indica carga concluída mas não há registros, voltando para carga inicial")

		decision.Downgraded = true
		return decision, nil
	}

	decision.Mode = domain.SyncModeAppend
	decision.Window = domain.NewDateWindow(since, today)
	return decision, nil
}
