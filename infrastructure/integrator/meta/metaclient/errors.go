package metaclient

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	metadomain "github.com/vfg2006/ad-performance-sync/infrastructure/integrator/meta/domain"
)

var (
	// ErrBatchFormat indica resposta de batch ausente, malformada ou com erro no nível superior.
	ErrBatchFormat = errors.New("meta: resposta de batch inválida")
	// ErrRequestTimeout é o estouro do timeout por requisição, tratado como falha genérica.
	ErrRequestTimeout = errors.New("meta: timeout na requisição")
	// ErrDecode indica corpo de página que não pôde ser decodificado.
	ErrDecode = errors.New("meta: resposta não decodificável")
	// ErrPageLimitReached indica que ainda havia cursor "next" ao atingir o limite de páginas.
	ErrPageLimitReached = errors.New("meta: limite de páginas atingido")
	// errUpstreamUnavailable marca respostas 5xx para o circuit breaker contar como falha.
	errUpstreamUnavailable = errors.New("meta: serviço indisponível")
)

// APIError é um erro reportado pela Graph API, já com a dica de espera quando houver.
type APIError struct {
	StatusCode   int
	Code         int
	Subcode      int
	Type         string
	Message      string
	FBTraceID    string
	RetryAfter   time.Duration
	HasRetryHint bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("meta api: status %d, código %d/%d: %s", e.StatusCode, e.Code, e.Subcode, e.Message)
}

func (e *APIError) RateLimited() bool {
	return metadomain.IsRateLimited(e.StatusCode, e.Code)
}

func (e *APIError) TokenExpired() bool {
	details := metadomain.ErrorDetails{Code: e.Code, ErrorSubcode: e.Subcode, Type: e.Type}
	return details.IsTokenExpired()
}

func newAPIError(status int, header http.Header, details *metadomain.ErrorDetails, now time.Time) *APIError {
	apiErr := &APIError{StatusCode: status}
	if details != nil {
		apiErr.Code = details.Code
		apiErr.Subcode = details.ErrorSubcode
		apiErr.Type = details.Type
		apiErr.Message = details.Message
		apiErr.FBTraceID = details.FBTraceID
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}

	if header != nil {
		apiErr.RetryAfter, apiErr.HasRetryHint = retryHintFromHeaders(header, now)
	}

	return apiErr
}

func asAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsRateLimited diz se a cadeia de erro contém throttling do Meta.
func IsRateLimited(err error) bool {
	apiErr, ok := asAPIError(err)
	return ok && apiErr.RateLimited()
}

func IsTokenExpired(err error) bool {
	apiErr, ok := asAPIError(err)
	return ok && apiErr.TokenExpired()
}

// RetryHint devolve a espera sugerida pelo Meta, se houver.
func RetryHint(err error) (time.Duration, bool) {
	apiErr, ok := asAPIError(err)
	if !ok || !apiErr.HasRetryHint {
		return 0, false
	}
	return apiErr.RetryAfter, true
}

// retryHintFromHeaders lê Retry-After (segundos ou HTTP-date) e, na ausência,
// estimated_time_to_regain_access (minutos) de X-Business-Use-Case-Usage.
func retryHintFromHeaders(header http.Header, now time.Time) (time.Duration, bool) {
	if d, ok := parseRetryAfter(header.Get("Retry-After"), now); ok {
		return d, true
	}

	return parseBusinessUseCaseUsage(header.Get("X-Business-Use-Case-Usage"))
}

func parseRetryAfter(h string, now time.Time) (time.Duration, bool) {
	h = strings.TrimSpace(h)
	if h == "" {
		return 0, false
	}

	if secs, err := strconv.Atoi(h); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second, true
	}

	if when, err := http.ParseTime(h); err == nil {
		d := when.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}

	return 0, false
}

type businessUseCase struct {
	Type                        string `json:"type"`
	EstimatedTimeToRegainAccess int    `json:"estimated_time_to_regain_access"`
}

func parseBusinessUseCaseUsage(h string) (time.Duration, bool) {
	if strings.TrimSpace(h) == "" {
		return 0, false
	}

	var usage map[string][]businessUseCase
	if err := json.Unmarshal([]byte(h), &usage); err != nil {
		return 0, false
	}

	minutes := 0
	for _, cases := range usage {
		for _, c := range cases {
			if c.EstimatedTimeToRegainAccess > minutes {
				minutes = c.EstimatedTimeToRegainAccess
			}
		}
	}

	if minutes == 0 {
		return 0, false
	}

	return time.Duration(minutes) * time.Minute, true
}
