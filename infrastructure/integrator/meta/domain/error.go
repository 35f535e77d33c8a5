package metadomain

import "net/http"

// ErrorResponse representa a estrutura de erro da API do Meta
type ErrorResponse struct {
	Error ErrorDetails `json:"error"`
}

// ErrorDetails contém os detalhes de erro da API do Meta
type ErrorDetails struct {
	Message      string      `json:"message"`
	Type         string      `json:"type"`
	Code         int         `json:"code"`
	ErrorSubcode int         `json:"error_subcode,omitempty"`
	FBTraceID    string      `json:"fbtrace_id"`
	ErrorData    interface{} `json:"error_data,omitempty"`
}

// Códigos de throttling documentados: app, usuário, página, ads management e business use case.
var rateLimitCodes = map[int]struct{}{
	4:     {}, // Application request limit reached
	17:    {}, // User request limit reached
	32:    {}, // Page request limit reached
	613:   {}, // Calls within one hour exceeded
	80000: {}, // Ads Insights BUC
	80001: {}, // Pages BUC
	80002: {}, // Instagram BUC
	80003: {}, // Custom Audience BUC
	80004: {}, // Ads Management BUC
	80005: {}, // LeadGen BUC
	80006: {}, // Messenger BUC
	80008: {}, // WhatsApp BUC
	80009: {}, // Catalog Management BUC
	80014: {}, // Catalog Batch BUC
}

// IsRateLimited indica throttling por status HTTP 429 ou por código de erro do Meta.
func IsRateLimited(httpStatus, code int) bool {
	if httpStatus == http.StatusTooManyRequests {
		return true
	}
	_, ok := rateLimitCodes[code]
	return ok
}

// IsTokenExpired verifica se o erro é de token expirado
func (e *ErrorDetails) IsTokenExpired() bool {
	// 190 = token inválido/expirado; subcódigos 460, 463 e 467 vêm com OAuthException
	return e.Code == 190 ||
		(e.Type == "OAuthException" && (e.ErrorSubcode == 460 || e.ErrorSubcode == 463 || e.ErrorSubcode == 467))
}

func (e *ErrorDetails) IsEmpty() bool {
	return e == nil || (e.Code == 0 && e.Message == "")
}
