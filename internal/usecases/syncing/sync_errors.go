package syncing

import (
	"errors"
	"fmt"
	"time"
)

// Erros específicos para o contexto de sincronização
var (
	// Erros de validação
	ErrAccountIDRequired = errors.New("account ID is required")
	ErrAccountNotFound   = errors.New("account not found")

	// Erros da API de anúncios
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrTokenExpired      = errors.New("ads API token expired")
	ErrTransientFetch    = errors.New("transient fetch failure")

	// Erros de consistência
	ErrIncompleteEntityData = errors.New("incomplete entity data")
	ErrIncompleteFetch      = errors.New("incomplete upstream data")

	// Erros de banco de dados
	ErrStorageRead  = errors.New("error reading sync storage")
	ErrWriteFailure = errors.New("error writing performance records")

	// Erros de concorrência
	ErrSyncInProgress = errors.New("sync already in progress for account")
)

// SyncError é um erro com contexto adicional para sincronizações
type SyncError struct {
	Err        error         // Erro base
	Code       string        // Código de erro para API
	AccountID  string        // ID da conta envolvida
	Details    string        // Detalhes adicionais
	Retryable  bool          // Se vale tentar de novo mais tarde
	RetryAfter time.Duration // Espera sugerida, quando conhecida
	cause      error
}

// Error implementa a interface error
func (e *SyncError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Details)
	}
	return e.Err.Error()
}

// Unwrap retorna o erro base e a causa original, quando houver.
func (e *SyncError) Unwrap() []error {
	if e.cause != nil {
		return []error{e.Err, e.cause}
	}
	return []error{e.Err}
}

// NewSyncError cria um novo SyncError com ID da conta
func NewSyncError(err error, code string, accountID string, details string) *SyncError {
	return &SyncError{
		Err:       err,
		Code:      code,
		AccountID: accountID,
		Details:   details,
	}
}

func (e *SyncError) withCause(cause error) *SyncError {
	e.cause = cause
	return e
}

func (e *SyncError) retryable(after time.Duration) *SyncError {
	e.Retryable = true
	e.RetryAfter = after
	return e
}

// AsSyncError extrai um SyncError da cadeia de erros.
func AsSyncError(err error) (*SyncError, bool) {
	var syncErr *SyncError
	if errors.As(err, &syncErr) {
		return syncErr, true
	}
	return nil, false
}
