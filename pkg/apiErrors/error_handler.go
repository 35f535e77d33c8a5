package apiErrors

import (
	"math"
	"net/http"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Códigos de erro da API
const (
	// Erros de autenticação
	ErrInvalidToken          = "AUTH_006" // Token inválido
	ErrExpiredToken          = "AUTH_007" // Token expirado
	ErrInsufficientPrivilege = "AUTH_008" // Privilégios insuficientes

	// Erros de validação
	ErrInvalidRequest      = "VAL_001" // Requisição inválida
	ErrMissingRequiredData = "VAL_002" // Dados obrigatórios ausentes
	ErrInvalidFormat       = "VAL_003" // Formato de dados inválido

	// Erros de rota
	ErrRouteNotFound    = "REQ_001" // Rota inexistente
	ErrMethodNotAllowed = "REQ_002" // Método não suportado pela rota

	// Erros de conta
	ErrAccountNotFound = "ACC_001" // Conta não encontrada

	// Erros de sincronização
	ErrSyncRateLimited     = "SYNC_001" // Limite de requisições do Meta atingido
	ErrSyncIncompleteData  = "SYNC_002" // Hierarquia de entidades incompleta
	ErrSyncWriteFailure    = "SYNC_003" // Falha ao persistir registros
	ErrSyncInProgress      = "SYNC_004" // Sincronização da conta já em andamento
	ErrSyncUpstream        = "SYNC_005" // Falha transitória na API de anúncios
	ErrSyncTokenExpired    = "SYNC_006" // Token do Meta expirado
	ErrTooManySyncRequests = "RATE_001" // Limite de sincronizações manuais do usuário

	// Erros do servidor
	ErrInternalServer    = "SRV_001" // Erro interno do servidor
	ErrDatabaseOperation = "SRV_002" // Erro de operação de banco de dados
	ErrExternalService   = "SRV_003" // Erro em serviço externo
	ErrCommunication     = "SRV_004" // Erro de comunicação
)

// Mapeamento de códigos de erro para status HTTP
var httpStatusMap = map[string]int{
	ErrInvalidToken:          http.StatusUnauthorized,
	ErrExpiredToken:          http.StatusUnauthorized,
	ErrInsufficientPrivilege: http.StatusForbidden,
	ErrInvalidRequest:        http.StatusBadRequest,
	ErrMissingRequiredData:   http.StatusBadRequest,
	ErrInvalidFormat:         http.StatusBadRequest,
	ErrRouteNotFound:         http.StatusNotFound,
	ErrMethodNotAllowed:      http.StatusMethodNotAllowed,
	ErrAccountNotFound:       http.StatusNotFound,
	ErrSyncRateLimited:       http.StatusTooManyRequests,
	ErrSyncIncompleteData:    http.StatusServiceUnavailable,
	ErrSyncWriteFailure:      http.StatusInternalServerError,
	ErrSyncInProgress:        http.StatusConflict,
	ErrSyncUpstream:          http.StatusBadGateway,
	ErrSyncTokenExpired:      http.StatusUnauthorized,
	ErrTooManySyncRequests:   http.StatusTooManyRequests,
	ErrInternalServer:        http.StatusInternalServerError,
	ErrDatabaseOperation:     http.StatusInternalServerError,
	ErrExternalService:       http.StatusBadGateway,
	ErrCommunication:         http.StatusServiceUnavailable,
}

// APIError representa um erro de API padronizado
type APIError struct {
	Code    string `json:"code"`              // Código de erro para o cliente
	Message string `json:"message,omitempty"` // Mensagem descritiva (opcional)
	Details any    `json:"details,omitempty"` // Detalhes adicionais (opcional)
}

// StatusFor retorna o status HTTP do código, 500 quando desconhecido.
func StatusFor(code string) int {
	status, exists := httpStatusMap[code]
	if !exists {
		return http.StatusInternalServerError
	}
	return status
}

// WriteError escreve o erro padronizado para a resposta HTTP
func WriteError(w http.ResponseWriter, code string, message string, details any) {
	apiErr := APIError{
		Code:    code,
		Message: message,
		Details: details,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusFor(code))
	json.NewEncoder(w).Encode(apiErr)
}

// WriteRetryableError é WriteError com o cabeçalho Retry-After em segundos inteiros, arredondados para cima.
func WriteRetryableError(w http.ResponseWriter, code string, message string, details any, retryAfter time.Duration) {
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
	}
	WriteError(w, code, message, details)
}

// FromError cria um erro de API a partir de um erro Go
// Útil para quando você quer envolver um erro existente em um erro de API
func FromError(err error, code string) APIError {
	if err == nil {
		return APIError{
			Code:    ErrInternalServer,
			Message: "Erro desconhecido",
		}
	}

	return APIError{
		Code:    code,
		Message: err.Error(),
	}
}
