package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-portal/internal/domain"
)

const accountListKey = "accounts:all"

// cachedAccount is the Redis shape of an account. Credentials stay in the
// account store.
type cachedAccount struct {
	ID    string      `json:"id"`
	Role  domain.Role `json:"role"`
	Email string      `json:"email"`
}

func encodeAccounts(accounts []domain.Account) ([]byte, error) {
	cached := make([]cachedAccount, len(accounts))
	for i, a := range accounts {
		cached[i] = cachedAccount{ID: a.ID, Role: a.Role, Email: a.Email}
	}
	return json.Marshal(cached)
}

func decodeAccounts(raw []byte) ([]domain.Account, error) {
	var cached []cachedAccount
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, err
	}
	accounts := make([]domain.Account, len(cached))
	for i, c := range cached {
		accounts[i] = domain.Account{ID: c.ID, Role: c.Role, Email: c.Email}
	}
	return accounts, nil
}

func withoutCredentials(accounts []domain.Account) []domain.Account {
	out := make([]domain.Account, len(accounts))
	for i, a := range accounts {
		a.Password = ""
		out[i] = a
	}
	return out
}

// CachedAccountRepository fronts account listings with Redis. Notification
// routing lists every account per event, so the full list is cached. Lookups
// by id always go to the underlying store, so List never returns password
// hashes. A nil client disables caching.
type CachedAccountRepository struct {
	inner  AccountRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedAccountRepository wraps inner.
func NewCachedAccountRepository(inner AccountRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedAccountRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedAccountRepository{inner: inner, client: client, ttl: ttl, logger: logger}
}

func (r *CachedAccountRepository) List(ctx context.Context) ([]domain.Account, error) {
	if r.client == nil {
		accounts, err := r.inner.List(ctx)
		if err != nil {
			return nil, err
		}
		return withoutCredentials(accounts), nil
	}

	raw, err := r.client.Get(ctx, accountListKey).Bytes()
	switch {
	case err == nil:
		if accounts, decodeErr := decodeAccounts(raw); decodeErr == nil {
			return accounts, nil
		}
	case !errors.Is(err, redis.Nil):
		r.logger.Warn("account cache read failed", zap.Error(err))
	}

	accounts, err := r.inner.List(ctx)
	if err != nil {
		return nil, err
	}
	accounts = withoutCredentials(accounts)
	r.store(ctx, accounts)
	return accounts, nil
}

func (r *CachedAccountRepository) store(ctx context.Context, accounts []domain.Account) {
	payload, err := encodeAccounts(accounts)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, accountListKey, payload, r.ttl).Err(); err != nil {
		r.logger.Warn("account cache write failed", zap.Error(err))
	}
}

func (r *CachedAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.inner.GetByID(ctx, id)
}

// Upsert writes through and invalidates the cached list.
func (r *CachedAccountRepository) Upsert(ctx context.Context, account *domain.Account) error {
	if err := r.inner.Upsert(ctx, account); err != nil {
		return err
	}
	if r.client != nil {
		if err := r.client.Del(ctx, accountListKey).Err(); err != nil {
			r.logger.Warn("account cache invalidation failed", zap.Error(err))
		}
	}
	return nil
}
