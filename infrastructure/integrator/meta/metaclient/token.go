package metaclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	metadomain "github.com/vfg2006/ad-performance-sync/infrastructure/integrator/meta/domain"
)

// TokenResponse representa a resposta da API do Meta ao trocar um token
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type debugTokenResponse struct {
	Data struct {
		IsValid   bool  `json:"is_valid"`
		ExpiresAt int64 `json:"expires_at"`
	} `json:"data"`
}

// exchangeToken troca um token (curto ou longo) por um novo token de longa duração.
func (tm *TokenManager) exchangeToken(ctx context.Context, token string) (*TokenResponse, error) {
	if token == "" {
		return nil, fmt.Errorf("token de acesso não pode ser vazio")
	}

	params := url.Values{}
	params.Add("grant_type", "fb_exchange_token")
	params.Add("client_id", tm.cfg.Meta.AppID)
	params.Add("client_secret", tm.cfg.Meta.AppSecret)
	params.Add("fb_exchange_token", token)

	body, err := tm.get(ctx, fmt.Sprintf("%s/oauth/access_token", tm.cfg.Meta.URL), params)
	if err != nil {
		return nil, fmt.Errorf("erro ao obter token de longa duração: %w", err)
	}

	var tokenResp TokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("erro ao decodificar resposta: %w", err)
	}

	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("token retornado pela API é vazio")
	}

	logrus.Infof("Token de longa duração obtido com sucesso. Expira em %s.", FormatDuration(tokenResp.ExpiresIn))

	return &tokenResp, nil
}

// debugToken consulta /debug_token com o app token e devolve a expiração real.
func (tm *TokenManager) debugToken(ctx context.Context, token string) (time.Time, error) {
	params := url.Values{}
	params.Add("input_token", token)
	params.Add("access_token", tm.cfg.Meta.AppID+"|"+tm.cfg.Meta.AppSecret)

	body, err := tm.get(ctx, fmt.Sprintf("%s/debug_token", tm.cfg.Meta.URL), params)
	if err != nil {
		return time.Time{}, fmt.Errorf("erro ao obter informações de debug do token: %w", err)
	}

	var resp debugTokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return time.Time{}, fmt.Errorf("erro ao decodificar resposta: %w", err)
	}

	if !resp.Data.IsValid {
		return time.Time{}, errTokenInvalid
	}

	if resp.Data.ExpiresAt == 0 {
		return time.Time{}, fmt.Errorf("não foi possível determinar quando o token expira")
	}

	return time.Unix(resp.Data.ExpiresAt, 0), nil
}

func (tm *TokenManager) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := tm.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("erro ao ler resposta: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp metadomain.ErrorResponse
		if json.Unmarshal(body, &errResp) == nil && !errResp.Error.IsEmpty() {
			return nil, newAPIError(resp.StatusCode, resp.Header, &errResp.Error, time.Now())
		}
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return body, nil
}

// FormatDuration formata a duração em segundos para um formato legível
func FormatDuration(seconds int64) string {
	duration := time.Duration(seconds) * time.Second
	days := duration / (24 * time.Hour)
	hours := (duration % (24 * time.Hour)) / time.Hour
	minutes := (duration % time.Hour) / time.Minute

	return fmt.Sprintf("%d dias, %d horas e %d minutos", days, hours, minutes)
}

// CalculateTokenExpiration calcula quando o token deve ser tratado como expirado.
// Um dia de margem é descontado; tokens mais curtos que isso usam metade do prazo.
func CalculateTokenExpiration(expiresIn int64, now time.Time) time.Time {
	buffer := int64(24 * 60 * 60)
	safeExpiresIn := expiresIn - buffer

	if safeExpiresIn < 0 {
		safeExpiresIn = expiresIn / 2
	}

	return now.Add(time.Duration(safeExpiresIn) * time.Second)
}
