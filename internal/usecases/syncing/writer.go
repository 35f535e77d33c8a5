package syncing

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vfg2006/ad-performance-sync/internal/domain"
	"github.com/vfg2006/ad-performance-sync/pkg/apiErrors"
)

type WriteResult struct {
	Written int
	Batches int
	State   *domain.SyncState
}

// Writer substitui a janela no armazenamento e só então avança o estado da conta.
type Writer struct {
	store     PerformanceStore
	states    SyncStateStore
	batchSize int
	now       func() time.Time
}

func NewWriter(store PerformanceStore, states SyncStateStore, batchSize int) *Writer {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Writer{store: store, states: states, batchSize: batchSize, now: time.Now}
}

// Persist grava os registros da decisão. Conjunto vazio não apaga nada e não mexe no estado.
func (w *Writer) Persist(ctx context.Context, accountID string, decision Decision, runID string, records []*domain.PerformanceRecord) (WriteResult, error) {
	if len(records) == 0 {
		logrus.WithFields(logrus.Fields{
			"account_id": accountID,
			"window":     decision.Window.String(),
		}).Info("sync: nenhum registro para gravar, estado mantido")
		return WriteResult{}, nil
	}

	batches := chunk(records, w.batchSize)

	written, err := w.store.ReplaceWindow(ctx, accountID, decision.Window, batches)
	if err != nil {
		return WriteResult{}, NewSyncError(ErrWriteFailure, apiErrors.ErrSyncWriteFailure, accountID,
			fmt.Sprintf("Falha ao substituir janela %s", decision.Window)).withCause(err)
	}

	if written != len(records) {
		return WriteResult{}, NewSyncError(ErrWriteFailure, apiErrors.ErrSyncWriteFailure, accountID,
			fmt.Sprintf("Escrita parcial: %d de %d registros", written, len(records)))
	}

	state := nextState(accountID, decision, runID, written, w.now())
	if err := w.states.SaveSyncState(ctx, state); err != nil {
		return WriteResult{}, NewSyncError(ErrWriteFailure, apiErrors.ErrSyncWriteFailure, accountID,
			"Registros gravados mas o estado de sincronização não foi atualizado").withCause(err)
	}

	return WriteResult{Written: written, Batches: len(batches), State: state}, nil
}

// nextState nunca volta initial_sync_complete para false.
func nextState(accountID string, decision Decision, runID string, written int, now time.Time) *domain.SyncState {
	state := &domain.SyncState{AccountID: accountID}
	if decision.PreviousState != nil {
		prev := *decision.PreviousState
		state = &prev
		state.AccountID = accountID
	}

	if decision.Mode == domain.SyncModeInitial && written > 0 {
		state.InitialSyncComplete = true
	}

	state.LastSyncAt = &now
	state.LastRunID = runID
	state.UpdatedAt = now

	return state
}

func chunk[T any](items []T, size int) [][]T {
	batches := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		batches = append(batches, items[start:end])
	}
	return batches
}
