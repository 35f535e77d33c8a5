package metaclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	gobreaker "github.com/sony/gobreaker/v2"
	metadomain "github.com/vfg2006/ad-performance-sync/infrastructure/integrator/meta/domain"
	"github.com/vfg2006/ad-performance-sync/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// HTTPDoer é satisfeito por *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client interface {
	GraphURL(path string, params url.Values) string
	GetPage(ctx context.Context, rawURL string) ([]byte, error)
	PostBatch(ctx context.Context, requests []metadomain.BatchRequest) ([]metadomain.BatchResponseItem, error)
	EnsureValidToken() error
}

type MetaClient struct {
	Cfg          *config.Config
	TokenManager *TokenManager
	httpClient   HTTPDoer
	breaker      *gobreaker.CircuitBreaker[*rawResponse]
	now          func() time.Time
}

type rawResponse struct {
	status int
	header http.Header
	body   []byte
}

func NewClient(cfg *config.Config, tokenManager *TokenManager, httpClient HTTPDoer) *MetaClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &MetaClient{
		Cfg:          cfg,
		TokenManager: tokenManager,
		httpClient:   httpClient,
		breaker:      newBreaker(cfg.Meta),
		now:          time.Now,
	}
}

// EnsureValidToken verifica se o token atual é válido e tenta renová-lo se necessário
func (c *MetaClient) EnsureValidToken() error {
	return c.TokenManager.EnsureValidToken()
}

// GraphURL monta uma URL absoluta da Graph API já com o access_token.
func (c *MetaClient) GraphURL(path string, params url.Values) string {
	values := url.Values{}
	for k, v := range params {
		values[k] = v
	}
	values.Set("access_token", c.TokenManager.AccessToken())

	return fmt.Sprintf("%s/%s?%s", c.Cfg.Meta.URL, strings.TrimPrefix(path, "/"), values.Encode())
}

// GetPage busca uma página. Links "next" do Meta já carregam o token, então rawURL é usada como veio.
func (c *MetaClient) GetPage(ctx context.Context, rawURL string) ([]byte, error) {
	reqCtx, cancel := c.withRequestTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("erro ao criar a requisição: %w", err)
	}

	raw, err := c.execute(ctx, reqCtx, req)
	if err != nil {
		return nil, err
	}

	return raw.body, nil
}

// PostBatch envia as sub-requisições num único POST e devolve as sub-respostas na mesma ordem.
func (c *MetaClient) PostBatch(ctx context.Context, requests []metadomain.BatchRequest) ([]metadomain.BatchResponseItem, error) {
	payload, err := json.Marshal(requests)
	if err != nil {
		return nil, fmt.Errorf("erro ao serializar batch: %w", err)
	}

	form := url.Values{}
	form.Set("access_token", c.TokenManager.AccessToken())
	form.Set("batch", string(payload))
	form.Set("include_headers", "true")

	reqCtx, cancel := c.withRequestTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.Cfg.Meta.URL+"/", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("erro ao criar a requisição: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	raw, err := c.execute(ctx, reqCtx, req)
	if err != nil {
		return nil, err
	}

	var items []metadomain.BatchResponseItem
	if err := json.Unmarshal(raw.body, &items); err != nil {
		var errResp metadomain.ErrorResponse
		if json.Unmarshal(raw.body, &errResp) == nil && !errResp.Error.IsEmpty() {
			return nil, c.handleAPIError(newAPIError(raw.status, raw.header, &errResp.Error, c.now()))
		}
		return nil, fmt.Errorf("%w: %v", ErrBatchFormat, err)
	}

	if len(items) != len(requests) {
		return nil, fmt.Errorf("%w: esperadas %d sub-respostas, recebidas %d", ErrBatchFormat, len(requests), len(items))
	}

	return items, nil
}

func (c *MetaClient) withRequestTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Cfg.Meta.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.Cfg.Meta.RequestTimeout)
}

// execute passa a requisição pelo circuit breaker e converte respostas não-200 em APIError.
func (c *MetaClient) execute(parent, reqCtx context.Context, req *http.Request) (*rawResponse, error) {
	raw, err := c.breaker.Execute(func() (*rawResponse, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("erro ao ler resposta: %w", err)
		}

		raw := &rawResponse{status: resp.StatusCode, header: resp.Header, body: body}
		if resp.StatusCode >= http.StatusInternalServerError {
			return raw, errUpstreamUnavailable
		}
		return raw, nil
	})

	if err != nil && raw == nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) && parent.Err() == nil {
			return nil, fmt.Errorf("%w: %v", ErrRequestTimeout, err)
		}
		return nil, err
	}

	if raw.status != http.StatusOK {
		var errResp metadomain.ErrorResponse
		_ = json.Unmarshal(raw.body, &errResp)
		return nil, c.handleAPIError(newAPIError(raw.status, raw.header, &errResp.Error, c.now()))
	}

	return raw, nil
}

// handleAPIError registra o erro e dispara a renovação do token quando ele expirou.
func (c *MetaClient) handleAPIError(apiErr *APIError) error {
	fields := logrus.Fields{
		"status":     apiErr.StatusCode,
		"code":       apiErr.Code,
		"subcode":    apiErr.Subcode,
		"fbtrace_id": apiErr.FBTraceID,
	}

	switch {
	case apiErr.TokenExpired():
		logrus.WithFields(fields).Warn("meta: token expirado detectado pela API")
		if err := c.TokenManager.RefreshToken(); err != nil {
			logrus.WithError(err).Error("meta: falha ao renovar token expirado")
		}
	case apiErr.RateLimited():
		fields["retry_after"] = apiErr.RetryAfter.String()
		logrus.WithFields(fields).Warn("meta: limite de requisições atingido")
	default:
		logrus.WithFields(fields).Debug("meta: erro na resposta da API")
	}

	return apiErr
}
