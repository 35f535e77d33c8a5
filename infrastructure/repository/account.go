package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/vfg2006/ad-performance-sync/infrastructure/database/postgres"
	"github.com/vfg2006/ad-performance-sync/internal/domain"
)

const (
	accountsTable  = "accounts a"
	accountColumns = "a.id, a.external_id, a.name, a.nickname, a.status, bm.id, bm.name"
)

//go:generate mockgen -source=account.go -destination=mocks/mock_account.go -package=mocks

type AccountRepository interface {
	GetAccountByID(ctx context.Context, accountID string) (*domain.AdAccount, error)
	ListAccounts(ctx context.Context, availableStatus []domain.AdAccountStatus) ([]*domain.AdAccount, error)
}

type accountRepository struct {
	conn postgres.Queryer
}

func NewAccountRepository(conn postgres.Queryer) AccountRepository {
	return &accountRepository{
		conn: conn,
	}
}

func (a *accountRepository) GetAccountByID(ctx context.Context, accountID string) (*domain.AdAccount, error) {
	accountsSQL, accountsArgs, err := buildGetAccountQuery(accountID)
	if err != nil {
		return nil, err
	}

	row := a.conn.QueryRowContext(ctx, accountsSQL, accountsArgs...)

	acc := &domain.AdAccount{}
	if err := scanAccount(row, acc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, postgres.WrapError("buscando conta", err)
	}

	return acc, nil
}

func (a *accountRepository) ListAccounts(ctx context.Context, availableStatus []domain.AdAccountStatus) ([]*domain.AdAccount, error) {
	accountsSQL, accountsArgs, err := buildListAccountsQuery(availableStatus)
	if err != nil {
		return nil, err
	}

	rows, err := a.conn.QueryContext(ctx, accountsSQL, accountsArgs...)
	if err != nil {
		return nil, postgres.WrapError("listando contas", err)
	}
	defer rows.Close()

	accounts := make([]*domain.AdAccount, 0)
	for rows.Next() {
		acc := &domain.AdAccount{}
		if err := scanAccount(rows, acc); err != nil {
			return nil, postgres.WrapError("lendo conta", err)
		}
		accounts = append(accounts, acc)
	}

	if err := rows.Err(); err != nil {
		return nil, postgres.WrapError("iterando contas", err)
	}

	return accounts, nil
}

func accountsQuery() squirrel.SelectBuilder {
	return squirrel.
		Select(accountColumns).
		From(accountsTable).
		Join("business_manager bm ON a.business_id = bm.id").
		PlaceholderFormat(squirrel.Dollar)
}

func buildGetAccountQuery(accountID string) (string, []interface{}, error) {
	return accountsQuery().Where(squirrel.Eq{"a.id": accountID}).ToSql()
}

func buildListAccountsQuery(availableStatus []domain.AdAccountStatus) (string, []interface{}, error) {
	queryBuilder := accountsQuery().OrderBy("a.nickname ASC", "a.name ASC")

	if len(availableStatus) > 0 {
		queryBuilder = queryBuilder.Where(squirrel.Eq{"a.status": availableStatus})
	}

	return queryBuilder.ToSql()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row scanner, acc *domain.AdAccount) error {
	return row.Scan(
		&acc.ID,
		&acc.ExternalID,
		&acc.Name,
		&acc.Nickname,
		&acc.Status,
		&acc.BusinessManagerID,
		&acc.BusinessManagerName,
	)
}
