package dto

import (
	"time"

	"github.com/spec-kit/maintenance-portal/internal/domain"
)

// LoginRequest payload.
type LoginRequest struct {
	ID       string `json:"id"`
	Password string `json:"password"`
}

// AccountResponse is the public view of an account.
type AccountResponse struct {
	ID   string      `json:"id"`
	Role domain.Role `json:"role"`
}

// LoginResponse carries the issued token.
type LoginResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresAt   time.Time       `json:"expires_at"`
	Account     AccountResponse `json:"account"`
}
