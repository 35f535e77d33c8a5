package metadomain

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		name   string
		status int
		code   int
		want   bool
	}{
		{name: "HTTP 429 sem código", status: http.StatusTooManyRequests, code: 0, want: true},
		{name: "Limite da aplicação", status: http.StatusBadRequest, code: 4, want: true},
		{name: "Limite do usuário", status: http.StatusForbidden, code: 17, want: true},
		{name: "Limite de página", status: http.StatusBadRequest, code: 32, want: true},
		{name: "Chamadas por hora", status: http.StatusBadRequest, code: 613, want: true},
		{name: "Business use case de insights", status: http.StatusBadRequest, code: 80000, want: true},
		{name: "Business use case de ads management", status: http.StatusBadRequest, code: 80004, want: true},
		{name: "Token expirado não é throttling", status: http.StatusBadRequest, code: 190, want: false},
		{name: "Parâmetro inválido", status: http.StatusBadRequest, code: 100, want: false},
		{name: "Erro interno", status: http.StatusInternalServerError, code: 1, want: false},
		{name: "Sucesso", status: http.StatusOK, code: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRateLimited(tt.status, tt.code))
		})
	}
}

func TestErrorDetails_IsTokenExpired(t *testing.T) {
	assert.True(t, (&ErrorDetails{Code: 190}).IsTokenExpired())
	assert.True(t, (&ErrorDetails{Code: 102, Type: "OAuthException", ErrorSubcode: 463}).IsTokenExpired())
	assert.False(t, (&ErrorDetails{Code: 102, Type: "GraphMethodException", ErrorSubcode: 463}).IsTokenExpired())
	assert.False(t, (&ErrorDetails{Code: 17}).IsTokenExpired())
}

func TestBatchResponseItem_Header(t *testing.T) {
	item := BatchResponseItem{Headers: []BatchHeader{{Name: "Retry-After", Value: "5"}}}
	assert.Equal(t, "5", item.Header("Retry-After"))
	assert.Empty(t, item.Header("X-Other"))
}
