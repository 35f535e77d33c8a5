package domain

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleAdmin      = 1
	RoleSupervisor = 2
	RoleClient     = 3
)

// Claims é emitido pelo serviço de autenticação; aqui apenas validamos.
type Claims struct {
	UserID       int
	UserName     string
	UserEmail    string
	UserActive   bool
	UserRoleID   int
	UserAccounts []string
	jwt.RegisteredClaims
}

// CanAccessAccount indica se o usuário pode operar a conta informada.
func (c *Claims) CanAccessAccount(accountID string) bool {
	if c == nil || !c.UserActive {
		return false
	}

	if c.UserRoleID == RoleAdmin || c.UserRoleID == RoleSupervisor {
		return true
	}

	return slices.Contains(c.UserAccounts, accountID)
}
