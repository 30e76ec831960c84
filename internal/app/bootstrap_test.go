package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/maintenance-portal/internal/config"
	"github.com/spec-kit/maintenance-portal/internal/worker"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	seed := filepath.Join(dir, "accounts.yaml")
	require.NoError(t, os.WriteFile(seed, []byte(`accounts:
  - id: STORE-A
    role: pelapor
    password: pass-a
  - id: ADMIN1
    role: admin
    password: admin
    email: ga@example.com
`), 0o600))

	return &config.Config{
		App:      config.AppConfig{Name: "test", Version: "dev", TimeZone: "UTC"},
		Redis:    config.RedisConfig{AccountCacheTTL: time.Minute},
		Auth:     config.AuthConfig{JWTSecret: "secret", AccessTokenTTLMinutes: 5, BcryptCost: bcrypt.MinCost},
		Photo:    config.PhotoConfig{Dir: filepath.Join(dir, "photos"), URLPrefix: "/photos", MaxBytes: 1 << 20},
		Overdue:  config.OverdueConfig{Enabled: true, Interval: time.Hour},
		Worker:   config.WorkerConfig{PoolSize: 2, ShutdownTimeoutSeconds: 1},
		Accounts: config.AccountsConfig{SeedFile: seed},
	}
}

func TestBootstrapMemoryMode(t *testing.T) {
	cfg := memoryConfig(t)
	a, err := Bootstrap(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	_, isTicker := a.Scheduler.(*worker.TickerScheduler)
	assert.True(t, isTicker, "memory mode schedules reminders in process")

	accounts, err := a.Accounts.List(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.NotEqual(t, "admin", accounts[0].Password, "seeded passwords are hashed")

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"id":"STORE-A","password":"pass-a"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.HTTP.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = a.HTTP.Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, a.Shutdown(ctx))
}

func TestBootstrapWithoutOverdue(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Overdue.Enabled = false
	cfg.Accounts.SeedFile = ""

	a, err := Bootstrap(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, a.Scheduler)
	assert.NoError(t, a.Start(context.Background()))
	a.Pool.Shutdown()
}

func TestBootstrapRejectsBadSeedFile(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Accounts.SeedFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := Bootstrap(context.Background(), cfg, zap.NewNop())
	assert.ErrorContains(t, err, "open account seed file")
}

func TestBodyLimit(t *testing.T) {
	assert.Equal(t, 4<<20, bodyLimit(1<<10))
	assert.Greater(t, bodyLimit(10<<20), 10<<20)
}
