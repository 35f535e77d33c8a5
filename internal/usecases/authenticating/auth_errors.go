package authenticating

import (
	"errors"
	"fmt"
)

var (
	ErrMissingToken = errors.New("token ausente")
	ErrInvalidToken = errors.New("token inválido")
	ErrExpiredToken = errors.New("token expirado")
	ErrUserDisabled = errors.New("usuário desativado")
)

// AuthError carrega o código de API que o middleware devolve ao cliente.
type AuthError struct {
	Err     error
	Code    string
	Details string
}

func (e *AuthError) Error() string {
	if e.Details == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err, e.Details)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func NewAuthError(baseErr error, code string, details string) *AuthError {
	return &AuthError{Err: baseErr, Code: code, Details: details}
}

// AsAuthError extrai um AuthError da cadeia de erros.
func AsAuthError(err error) (*AuthError, bool) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr, true
	}
	return nil, false
}
