package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/ad-performance-sync/infrastructure/database/postgres"
	"github.com/vfg2006/ad-performance-sync/internal/config"
	"github.com/vfg2006/ad-performance-sync/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var schema = []string{
	`CREATE TABLE IF NOT EXISTS business_manager (
		id          VARCHAR(16) PRIMARY KEY,
		external_id VARCHAR(64) NOT NULL UNIQUE,
		name        TEXT NOT NULL,
		origin      VARCHAR(16) NOT NULL DEFAULT 'meta'
	)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		id          VARCHAR(16) PRIMARY KEY,
		external_id VARCHAR(64) NOT NULL UNIQUE,
		name        TEXT NOT NULL,
		nickname    TEXT,
		status      VARCHAR(16) NOT NULL DEFAULT 'ACTIVE',
		business_id VARCHAR(16) NOT NULL REFERENCES business_manager (id),
		origin      VARCHAR(16) NOT NULL DEFAULT 'meta'
	)`,
	`CREATE TABLE IF NOT EXISTS ad_performance (
		account_id       VARCHAR(16) NOT NULL REFERENCES accounts (id),
		ad_id            VARCHAR(64) NOT NULL,
		date             DATE NOT NULL,
		ad_name          TEXT,
		adset_id         VARCHAR(64),
		adset_name       TEXT,
		campaign_id      VARCHAR(64),
		campaign_name    TEXT,
		impressions      BIGINT NOT NULL DEFAULT 0,
		clicks           BIGINT NOT NULL DEFAULT 0,
		spend            NUMERIC(14, 2) NOT NULL DEFAULT 0,
		conversions      NUMERIC(14, 2) NOT NULL DEFAULT 0,
		conversion_type  VARCHAR(128),
		conversion_value NUMERIC(14, 2),
		campaign_status  VARCHAR(32) NOT NULL,
		adset_status     VARCHAR(32) NOT NULL,
		ad_status        VARCHAR(32) NOT NULL,
		daily_budget     NUMERIC(14, 2),
		lifetime_budget  NUMERIC(14, 2),
		budget_level     VARCHAR(16) NOT NULL,
		creative_id      VARCHAR(64),
		image_url        TEXT,
		video_id         VARCHAR(64),
		has_activity     BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (account_id, ad_id, date)
	)`,
	`CREATE INDEX IF NOT EXISTS ad_performance_account_date_idx ON ad_performance (account_id, date)`,
	`CREATE TABLE IF NOT EXISTS ad_sync_state (
		account_id            VARCHAR(16) PRIMARY KEY REFERENCES accounts (id),
		last_sync_at          TIMESTAMPTZ,
		initial_sync_complete BOOLEAN NOT NULL DEFAULT FALSE,
		last_run_id           VARCHAR(32),
		updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Seed é o arquivo opcional com business managers e contas iniciais.
type Seed struct {
	Businesses []Business `json:"businesses"`
	Accounts   []Account  `json:"accounts"`
}

type Business struct {
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
	Origin     string `json:"origin"`
}

type Account struct {
	ExternalID         string `json:"external_id"`
	Name               string `json:"name"`
	Nickname           string `json:"nickname"`
	ExternalBusinessID string `json:"external_business_id"`
	Origin             string `json:"origin"`
}

func createSchema(ctx context.Context, tx *sql.Tx) error {
	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	logrus.WithField("statements", len(schema)).Info("Schema aplicado")
	return nil
}

func insertBusiness(ctx context.Context, tx *sql.Tx, businessList []Business) (map[string]string, error) {
	logrus.Infof("Iniciando inserção de %d business managers...", len(businessList))
	startTime := time.Now()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO business_manager (id, external_id, name, origin) VALUES ($1, $2, $3, $4)
		ON CONFLICT (external_id) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	businessMap := make(map[string]string)
	for _, b := range businessList {
		newID, err := utils.GenerateID()
		if err != nil {
			return nil, err
		}

		var id string
		if err := stmt.QueryRowContext(ctx, newID, b.ExternalID, b.Name, b.Origin).Scan(&id); err != nil {
			return nil, err
		}
		businessMap[b.ExternalID] = id
	}

	logrus.Infof("Inserção de business concluída em %v. Total: %d", time.Since(startTime), len(businessMap))

	return businessMap, nil
}

func insertAccounts(ctx context.Context, tx *sql.Tx, accountList []Account, businessMap map[string]string) error {
	logrus.Infof("Iniciando inserção de %d contas...", len(accountList))
	startTime := time.Now()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO accounts (id, external_id, name, nickname, business_id, origin) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (external_id) DO NOTHING`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	inserted := 0
	businessNotFoundCount := 0

	for _, a := range accountList {
		businessID, exists := businessMap[a.ExternalBusinessID]
		if !exists {
			logrus.Warnf("Business não encontrado para conta %s (External ID: %s)", a.Name, a.ExternalID)
			businessNotFoundCount++
			continue
		}

		newID, err := utils.GenerateID()
		if err != nil {
			return err
		}

		res, err := stmt.ExecContext(ctx, newID, a.ExternalID, a.Name, a.Nickname, businessID, a.Origin)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	logrus.Infof("Inserção de contas concluída em %v. Inseridas: %d, Business não encontrados: %d",
		time.Since(startTime), inserted, businessNotFoundCount)

	return nil
}

func loadSeed(path string) (*Seed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var seed Seed
	if err := json.Unmarshal(raw, &seed); err != nil {
		return nil, err
	}

	return &seed, nil
}

func main() {
	seedPath := flag.String("seed", "", "arquivo JSON com business managers e contas iniciais")
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	logrus.Info("Iniciando script de migração...")

	cfg, err := config.NewConfig()
	if err != nil {
		logrus.WithError(err).Fatal("Erro ao carregar configuração")
	}

	ctx := context.Background()

	conn, err := postgres.NewConnection(ctx, cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("Erro ao conectar ao banco de dados")
	}
	defer conn.Close()

	var seed *Seed
	if *seedPath != "" {
		seed, err = loadSeed(*seedPath)
		if err != nil {
			logrus.WithError(err).Fatal("Erro ao ler arquivo de seed")
		}
	}

	startTime := time.Now()

	err = conn.RunInTransaction(ctx, func(tx *sql.Tx) error {
		if err := createSchema(ctx, tx); err != nil {
			return err
		}

		if seed == nil {
			return nil
		}

		businessMap, err := insertBusiness(ctx, tx, seed.Businesses)
		if err != nil {
			return err
		}

		return insertAccounts(ctx, tx, seed.Accounts, businessMap)
	})
	if err != nil {
		logrus.WithError(postgres.WrapError("migração", err)).Fatal("Migração revertida")
	}

	logrus.Infof("Migração concluída em %v", time.Since(startTime))
}
