package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/ad-performance-sync/infrastructure/database/postgres"
	"github.com/vfg2006/ad-performance-sync/internal/domain"
)

const performanceTable = "ad_performance"

var performanceColumns = []string{
	"account_id", "ad_id", "date",
	"ad_name", "adset_id", "adset_name", "campaign_id", "campaign_name",
	"impressions", "clicks", "spend",
	"conversions", "conversion_type", "conversion_value",
	"campaign_status", "adset_status", "ad_status",
	"daily_budget", "lifetime_budget", "budget_level",
	"creative_id", "image_url", "video_id",
	"has_activity",
}

type PerformanceRecordRepository interface {
	CountByAccount(ctx context.Context, accountID string) (int64, error)
	ReplaceWindow(ctx context.Context, accountID string, window domain.DateWindow, batches [][]*domain.PerformanceRecord) (int, error)
}

type performanceRecordRepository struct {
	conn postgres.Conn
}

func NewPerformanceRecordRepository(conn postgres.Conn) PerformanceRecordRepository {
	return &performanceRecordRepository{
		conn: conn,
	}
}

func (r *performanceRecordRepository) CountByAccount(ctx context.Context, accountID string) (int64, error) {
	query, args, err := buildCountByAccountQuery(accountID)
	if err != nil {
		return 0, fmt.Errorf("erro ao construir a query: %w", err)
	}

	var count int64
	if err := r.conn.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, postgres.WrapError("contando registros", err)
	}

	return count, nil
}

// ReplaceWindow apaga a janela e insere todos os lotes na mesma transação.
// Falha em qualquer lote desfaz também a remoção.
func (r *performanceRecordRepository) ReplaceWindow(ctx context.Context, accountID string, window domain.DateWindow, batches [][]*domain.PerformanceRecord) (int, error) {
	written := 0

	err := r.conn.RunInTransaction(ctx, func(tx *sql.Tx) error {
		deleteSQL, deleteArgs, err := buildDeleteWindowQuery(accountID, window)
		if err != nil {
			return fmt.Errorf("erro ao construir a query: %w", err)
		}

		result, err := tx.ExecContext(ctx, deleteSQL, deleteArgs...)
		if err != nil {
			return postgres.WrapError("removendo janela", err)
		}
		deleted, _ := result.RowsAffected()

		for i, batch := range batches {
			n, err := insertBatch(ctx, tx, batch)
			if err != nil {
				return fmt.Errorf("lote %d/%d: %w", i+1, len(batches), err)
			}
			written += n
		}

		logrus.WithFields(logrus.Fields{
			"account_id": accountID,
			"window":     window.String(),
			"deleted":    deleted,
			"written":    written,
			"batches":    len(batches),
		}).Debug("repository: janela substituída")

		return nil
	})
	if err != nil {
		return 0, err
	}

	return written, nil
}

func insertBatch(ctx context.Context, tx postgres.Queryer, batch []*domain.PerformanceRecord) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	query, args, err := buildInsertBatchQuery(batch)
	if err != nil {
		return 0, fmt.Errorf("erro ao construir a query: %w", err)
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, postgres.WrapError("inserindo registros", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("erro ao obter número de linhas afetadas: %w", err)
	}

	if int(affected) != len(batch) {
		return 0, fmt.Errorf("inserção parcial: %d de %d registros", affected, len(batch))
	}

	return int(affected), nil
}

func buildCountByAccountQuery(accountID string) (string, []interface{}, error) {
	return squirrel.
		Select("COUNT(*)").
		From(performanceTable).
		Where(squirrel.Eq{"account_id": accountID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
}

func buildDeleteWindowQuery(accountID string, window domain.DateWindow) (string, []interface{}, error) {
	return squirrel.
		Delete(performanceTable).
		Where(squirrel.Eq{"account_id": accountID}).
		Where(squirrel.GtOrEq{"date": window.Since.Format(time.DateOnly)}).
		Where(squirrel.LtOrEq{"date": window.Until.Format(time.DateOnly)}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
}

func buildInsertBatchQuery(batch []*domain.PerformanceRecord) (string, []interface{}, error) {
	query := squirrel.StatementBuilder.
		Insert(performanceTable).
		Columns(performanceColumns...).
		PlaceholderFormat(squirrel.Dollar)

	for _, r := range batch {
		query = query.Values(
			r.AccountID, r.AdID, r.Date.Format(time.DateOnly),
			r.AdName, r.AdSetID, r.AdSetName, r.CampaignID, r.CampaignName,
			r.Impressions, r.Clicks, r.Spend,
			r.Conversions, r.ConversionType, r.ConversionVal,
			r.CampaignStatus, r.AdSetStatus, r.AdStatus,
			r.DailyBudget, r.LifetimeBudget, string(r.BudgetLevel),
			r.CreativeID, r.ImageURL, r.VideoID,
			r.HasActivity,
		)
	}

	return query.ToSql()
}
