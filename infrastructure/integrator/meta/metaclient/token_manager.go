package metaclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vfg2006/ad-performance-sync/internal/config"
)

const (
	refreshInterval      = 23 * time.Hour
	refreshRetryInterval = time.Hour
	proactiveRefresh     = 24 * time.Hour
)

var errTokenInvalid = errors.New("token inválido ou expirado")

// TokenManager gerencia tokens de acesso da API do Meta
type TokenManager struct {
	cfg        *config.Config
	httpClient HTTPDoer

	mu        sync.RWMutex
	token     string
	expiresAt time.Time

	refreshMu sync.Mutex
	stop      chan struct{}
	stopOnce  sync.Once
	now       func() time.Time
}

// NewTokenManager cria uma nova instância do gerenciador de tokens
func NewTokenManager(cfg *config.Config, httpClient HTTPDoer) *TokenManager {
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	token := cfg.Meta.LongLivedToken
	if token == "" {
		token = cfg.Meta.AccessToken
	}

	return &TokenManager{
		cfg:        cfg,
		httpClient: httpClient,
		token:      token,
		expiresAt:  cfg.Meta.TokenExpiresAt,
		stop:       make(chan struct{}),
		now:        time.Now,
	}
}

func (tm *TokenManager) AccessToken() string {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.token
}

func (tm *TokenManager) ExpiresAt() time.Time {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.expiresAt
}

func (tm *TokenManager) setToken(token string, expiresAt time.Time) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.token = token
	tm.expiresAt = expiresAt
}

// InitToken garante um token de longa duração na subida da aplicação.
// Falhas são apenas registradas: a API segue com o token configurado.
func (tm *TokenManager) InitToken(ctx context.Context) {
	if tm.cfg.Meta.LongLivedToken == "" {
		logrus.Info("Token de longa duração não encontrado. Iniciando processo de obtenção...")
		if err := tm.refresh(ctx); err != nil {
			logrus.WithError(err).Error("Falha ao inicializar token de longa duração")
			logrus.Warn("A API Meta pode ter funcionalidade limitada até que o token seja configurado corretamente")
			return
		}
		logrus.Info("Token de longa duração inicializado com sucesso")
		return
	}

	if !tm.ExpiresAt().IsZero() {
		if err := tm.EnsureValidToken(); err != nil {
			logrus.WithError(err).Error("Erro ao verificar validade do token")
		}
		return
	}

	logrus.Info("Validando token de longa duração existente...")
	expiresAt, err := tm.debugToken(ctx, tm.AccessToken())
	if err != nil {
		logrus.WithError(err).Warn("Falha ao validar token existente. Tentando renovar o token...")
		if err := tm.refresh(ctx); err != nil {
			logrus.WithError(err).Error("Falha ao renovar token")
		}
		return
	}

	tm.setToken(tm.AccessToken(), expiresAt.Add(-proactiveRefresh))
	logrus.Infof("Token de longa duração é válido. Expira em: %s", expiresAt.Format(time.RFC3339))
}

// StartAutoRefresh renova o token periodicamente até StopAutoRefresh ou o fim do contexto.
func (tm *TokenManager) StartAutoRefresh(ctx context.Context) {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			logrus.Info("Iniciando renovação periódica do token da Meta")
			if err := tm.refresh(ctx); err != nil {
				logrus.WithError(err).Error("Erro na renovação periódica do token")
				ticker.Reset(refreshRetryInterval)
				continue
			}
			logrus.Info("Renovação periódica do token concluída com sucesso")
			ticker.Reset(refreshInterval)
		case <-tm.stop:
			logrus.Info("Encerrando goroutine de renovação periódica do token")
			return
		case <-ctx.Done():
			return
		}
	}
}

// StopAutoRefresh para a goroutine de renovação automática
func (tm *TokenManager) StopAutoRefresh() {
	tm.stopOnce.Do(func() { close(tm.stop) })
}

// RefreshToken obtém um novo token de longa duração
func (tm *TokenManager) RefreshToken() error {
	return tm.refresh(context.Background())
}

func (tm *TokenManager) refresh(ctx context.Context) error {
	tm.refreshMu.Lock()
	defer tm.refreshMu.Unlock()

	expiresAt := tm.ExpiresAt()
	if !expiresAt.IsZero() && expiresAt.Sub(tm.now()) < time.Hour {
		logrus.Warn("Token está muito próximo da expiração ou já expirou - pode ser necessária reautorização manual")
	}

	oldToken := tm.AccessToken()
	tokenResp, err := tm.exchangeToken(ctx, oldToken)
	if err != nil {
		if IsTokenExpired(err) {
			return fmt.Errorf("o token de acesso expirou e não pode ser renovado automaticamente. "+
				"É necessário reautorizar o aplicativo: %w", err)
		}
		return fmt.Errorf("erro ao obter novo token de longa duração: %w", err)
	}

	tm.setToken(tokenResp.AccessToken, CalculateTokenExpiration(tokenResp.ExpiresIn, tm.now()))

	if oldToken != tokenResp.AccessToken {
		logrus.Infof("Token de longa duração atualizado com sucesso. Expira em: %s", tm.ExpiresAt().Format(time.RFC3339))
	} else {
		logrus.Info("Token renovado, mas não mudou. Isso pode indicar um problema na API da Meta")
	}

	return nil
}

// EnsureValidToken renova o token quando ele está vazio ou expira em menos de 24 horas.
// Sem expiração conhecida nada é feito; InitToken cuida disso.
func (tm *TokenManager) EnsureValidToken() error {
	if tm.AccessToken() == "" {
		return fmt.Errorf("token de acesso do Meta não configurado")
	}

	expiresAt := tm.ExpiresAt()
	if expiresAt.IsZero() {
		return nil
	}

	if expiresAt.Sub(tm.now()) < proactiveRefresh {
		logrus.Info("Token expira em menos de 24 horas. Renovando proativamente...")
		return tm.RefreshToken()
	}

	return nil
}
