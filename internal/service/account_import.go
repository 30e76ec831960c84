package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/maintenance-portal/internal/auth"
	"github.com/spec-kit/maintenance-portal/internal/domain"
	"github.com/spec-kit/maintenance-portal/internal/repository"
)

// AccountFile is the YAML provisioning format:
//
//	accounts:
//	  - id: STORE-A
//	    role: OUTLET
//	    password: changeme
//	    email: store-a@example.com
type AccountFile struct {
	Accounts []AccountEntry `yaml:"accounts"`
}

// AccountEntry is a single provisioned account.
type AccountEntry struct {
	ID       string `yaml:"id"`
	Role     string `yaml:"role"`
	Password string `yaml:"password"`
	Email    string `yaml:"email"`
}

// ParseAccountFile decodes and normalizes a provisioning file. Roles are
// normalized here so the rest of the system only sees OUTLET or ADMIN.
func ParseAccountFile(r io.Reader) ([]domain.Account, error) {
	var file AccountFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode accounts file: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Accounts))
	accounts := make([]domain.Account, 0, len(file.Accounts))
	for i, entry := range file.Accounts {
		id := strings.TrimSpace(entry.ID)
		if id == "" {
			return nil, fmt.Errorf("account %d: id is required", i+1)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("account %s: duplicate id", id)
		}
		seen[id] = struct{}{}
		role, err := domain.ParseRole(entry.Role)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", id, err)
		}
		if entry.Password == "" {
			return nil, fmt.Errorf("account %s: password is required", id)
		}
		accounts = append(accounts, domain.Account{
			ID:       id,
			Role:     role,
			Password: entry.Password,
			Email:    strings.TrimSpace(entry.Email),
		})
	}
	return accounts, nil
}

// ImportAccounts upserts accounts, hashing plaintext passwords with bcrypt.
// Already hashed credentials are stored as given.
func ImportAccounts(ctx context.Context, repo repository.AccountRepository, accounts []domain.Account, bcryptCost int) (int, error) {
	for i := range accounts {
		account := accounts[i]
		if !auth.IsHashed(account.Password) {
			hashed, err := auth.HashPassword(strings.TrimSpace(account.Password), bcryptCost)
			if err != nil {
				return i, fmt.Errorf("hash password for %s: %w", account.ID, err)
			}
			account.Password = hashed
		}
		if err := repo.Upsert(ctx, &account); err != nil {
			return i, err
		}
	}
	return len(accounts), nil
}
