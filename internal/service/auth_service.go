package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spec-kit/maintenance-portal/internal/auth"
	"github.com/spec-kit/maintenance-portal/internal/domain"
	"github.com/spec-kit/maintenance-portal/internal/repository"
	apperrors "github.com/spec-kit/maintenance-portal/pkg/util"
)

// AuthService coordinates login.
type AuthService struct {
	accounts repository.AccountRepository
	verifier auth.CredentialVerifier
	tokenMgr *auth.TokenManager
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	AccountRepo  repository.AccountRepository
	Verifier     auth.CredentialVerifier
	TokenManager *auth.TokenManager
}

// LoginResult is returned on successful login.
type LoginResult struct {
	Account   domain.Account
	Token     string
	ExpiresAt time.Time
}

// AccountSummary is the public view of an account used by the login picker.
type AccountSummary struct {
	ID   string
	Role domain.Role
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	verifier := deps.Verifier
	if verifier == nil {
		verifier = auth.DefaultVerifier{}
	}
	return &AuthService{accounts: deps.AccountRepo, verifier: verifier, tokenMgr: deps.TokenManager}
}

// Login checks credentials. Unknown accounts and wrong passwords produce the
// same error.
func (s *AuthService) Login(ctx context.Context, accountID, password string) (*LoginResult, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" || password == "" {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.NewPersistenceError(err)
	}
	if !s.verifier.Verify(account.Password, password) {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	token, exp, err := s.tokenMgr.Issue(account)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{Account: *account, Token: token, ExpiresAt: exp}, nil
}

// ListAccounts returns id and role for every account.
func (s *AuthService) ListAccounts(ctx context.Context) ([]AccountSummary, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	summaries := make([]AccountSummary, 0, len(accounts))
	for _, a := range accounts {
		summaries = append(summaries, AccountSummary{ID: a.ID, Role: a.Role})
	}
	return summaries, nil
}
