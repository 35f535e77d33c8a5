package account

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidStatus = errors.New("invalid account status")
	ErrFetchAccounts = errors.New("error fetching accounts from database")
)

// AccountError associa a falha da listagem de contas a um código de pkg/apiErrors.
type AccountError struct {
	Err     error
	Code    string
	Details string
}

func (e *AccountError) Error() string {
	if e.Details == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err, e.Details)
}

func (e *AccountError) Unwrap() error {
	return e.Err
}

func NewAccountError(err error, code string, details string) *AccountError {
	return &AccountError{Err: err, Code: code, Details: details}
}

func AsAccountError(err error) (*AccountError, bool) {
	var accountErr *AccountError
	if errors.As(err, &accountErr) {
		return accountErr, true
	}
	return nil, false
}
