package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/vfg2006/ad-performance-sync/infrastructure/database/postgres"
	"github.com/vfg2006/ad-performance-sync/internal/domain"
)

const syncStateTable = "ad_sync_state"

type SyncStateRepository interface {
	GetSyncState(ctx context.Context, accountID string) (*domain.SyncState, error)
	SaveSyncState(ctx context.Context, state *domain.SyncState) error
}

type syncStateRepository struct {
	conn postgres.Queryer
}

func NewSyncStateRepository(conn postgres.Queryer) SyncStateRepository {
	return &syncStateRepository{
		conn: conn,
	}
}

func (r *syncStateRepository) GetSyncState(ctx context.Context, accountID string) (*domain.SyncState, error) {
	query, args, err := squirrel.
		Select("account_id, last_sync_at, initial_sync_complete, last_run_id, updated_at").
		From(syncStateTable).
		Where(squirrel.Eq{"account_id": accountID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	state := &domain.SyncState{}
	var lastSyncAt sql.NullTime
	var lastRunID sql.NullString

	err = r.conn.QueryRowContext(ctx, query, args...).Scan(
		&state.AccountID,
		&lastSyncAt,
		&state.InitialSyncComplete,
		&lastRunID,
		&state.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, postgres.WrapError("buscando estado de sincronização", err)
	}

	if lastSyncAt.Valid {
		state.LastSyncAt = &lastSyncAt.Time
	}
	state.LastRunID = lastRunID.String

	return state, nil
}

func (r *syncStateRepository) SaveSyncState(ctx context.Context, state *domain.SyncState) error {
	if state == nil || state.AccountID == "" {
		return errors.New("estado de sincronização sem conta")
	}

	query, args, err := buildUpsertSyncStateQuery(state)
	if err != nil {
		return fmt.Errorf("erro ao construir a query: %w", err)
	}

	if _, err := r.conn.ExecContext(ctx, query, args...); err != nil {
		return postgres.WrapError("salvando estado de sincronização", err)
	}

	return nil
}

// O OR mantém initial_sync_complete verdadeiro mesmo com escritas concorrentes.
func buildUpsertSyncStateQuery(state *domain.SyncState) (string, []interface{}, error) {
	return squirrel.StatementBuilder.
		Insert(syncStateTable).
		Columns("account_id", "last_sync_at", "initial_sync_complete", "last_run_id", "updated_at").
		Values(state.AccountID, state.LastSyncAt, state.InitialSyncComplete, state.LastRunID, state.UpdatedAt).
		Suffix(`
			ON CONFLICT (account_id) DO UPDATE SET
				last_sync_at = EXCLUDED.last_sync_at,
				initial_sync_complete = ad_sync_state.initial_sync_complete OR EXCLUDED.initial_sync_complete,
				last_run_id = EXCLUDED.last_run_id,
				updated_at = EXCLUDED.updated_at
		`).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
}
