package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-portal/internal/api/http/handlers"
	"github.com/spec-kit/maintenance-portal/internal/auth"
	"github.com/spec-kit/maintenance-portal/internal/domain"
	"github.com/spec-kit/maintenance-portal/internal/events"
	"github.com/spec-kit/maintenance-portal/internal/observability"
	"github.com/spec-kit/maintenance-portal/internal/photo"
	"github.com/spec-kit/maintenance-portal/internal/repository"
	"github.com/spec-kit/maintenance-portal/internal/service"
)

var passwords = map[string]string{"STORE-A": "pass-a", "STORE-B": "pass-b", "ADMIN1": "admin"}

type testServer struct {
	app     *fiber.App
	tickets *repository.MemoryTicketRepository
	photos  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	accounts := repository.NewMemoryAccountRepository(
		domain.Account{ID: "STORE-A", Role: domain.RoleOutlet, Password: "pass-a", Email: "a@example.com"},
		domain.Account{ID: "STORE-B", Role: domain.RoleOutlet, Password: "pass-b"},
		domain.Account{ID: "ADMIN1", Role: domain.RoleAdmin, Password: "admin", Email: "ga@example.com"},
	)
	tickets := repository.NewMemoryTicketRepository()
	photoDir := t.TempDir()
	archive, err := photo.NewDiskArchive(photoDir, "/photos", 1<<20)
	require.NoError(t, err)

	ids := []string{"TKT-1001", "TKT-1002", "TKT-1003"}
	next := 0
	ticketSvc := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   tickets,
		PhotoArchive: archive,
		Dispatcher:   events.NewInMemoryDispatcher(),
		Logger:       logger,
		Clock:        func() time.Time { return time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC) },
		NewID: func() string {
			id := ids[next%len(ids)]
			next++
			return id
		},
	})
	tokens := auth.NewTokenManager("test-secret", 10)
	authSvc := service.NewAuthService(service.AuthDependencies{AccountRepo: accounts, TokenManager: tokens})

	app := NewApp(ServerOptions{AppName: "test", BodyLimit: 4 << 20}, logger, metrics, RouteConfig{
		Health:         handlers.NewHealthHandler("test", "dev", nil),
		Auth:           handlers.NewAuthHandler(authSvc),
		Tickets:        handlers.NewTicketsHandler(ticketSvc),
		Actions:        handlers.NewActionsHandler(ticketSvc),
		Metrics:        handlers.NewMetricsHandler(metrics, nil),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, accounts),
		PhotoDir:       photoDir,
		PhotoURLPrefix: "/photos",
	})
	return &testServer{app: app, tickets: tickets, photos: photoDir}
}

func (s *testServer) token(t *testing.T, id string) string {
	t.Helper()
	status, body := s.do(t, nethttp.MethodPost, "/auth/login", "", map[string]string{"id": id, "password": passwords[id]})
	require.Equal(t, nethttp.StatusOK, status, string(body))
	var resp struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp.Data.AccessToken
}

func (s *testServer) do(t *testing.T, method, path, token string, payload any) (int, []byte) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

type ticketEnvelope struct {
	Data struct {
		ID               string   `json:"id"`
		Status           string   `json:"status"`
		ReporterID       string   `json:"reporter_id"`
		RiskLevel        string   `json:"risk_level"`
		Photos           []string `json:"photos"`
		CreatedAt        int64    `json:"created_at"`
		AssigneeName     string   `json:"assignee_name"`
		ActualFinishDate *string  `json:"actual_finish_date"`
	} `json:"data"`
}

type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v), string(body))
	return v
}

func plan() map[string]string {
	return map[string]string{
		"risk_level":         "P1 - CRITICAL",
		"business_impact":    "Sales floor closed",
		"recommendation":     "Replace panel",
		"department":         "GA",
		"planned_start_date": "2026-10-15",
		"target_end_date":    "2026-10-16",
	}
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	outlet := s.token(t, "STORE-A")
	admin := s.token(t, "ADMIN1")

	jpeg := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("fake-jpeg"))
	status, body := s.do(t, nethttp.MethodPost, "/tickets", outlet, map[string]any{
		"report_date":         "2026-10-14",
		"problem_description": "Ceiling stain near entrance",
		"photos":              []string{jpeg},
	})
	require.Equal(t, nethttp.StatusCreated, status, string(body))
	created := decode[ticketEnvelope](t, body)
	assert.Equal(t, "TKT-1001", created.Data.ID)
	assert.Equal(t, "PENDING", created.Data.Status)
	assert.Equal(t, "STORE-A", created.Data.ReporterID)
	assert.Equal(t, "LOW", created.Data.RiskLevel)
	assert.Equal(t, []string{"/photos/STORE-A/TKT-1001_1.jpg"}, created.Data.Photos)
	assert.Equal(t, time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC).UnixMilli(), created.Data.CreatedAt)
	assert.Nil(t, created.Data.ActualFinishDate)

	_, err := os.Stat(filepath.Join(s.photos, "STORE-A", "TKT-1001_1.jpg"))
	require.NoError(t, err)
	status, body = s.do(t, nethttp.MethodGet, "/photos/STORE-A/TKT-1001_1.jpg", "", nil)
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "fake-jpeg", string(body))

	status, _ = s.do(t, nethttp.MethodPost, "/tickets/TKT-1001/plan", outlet, plan())
	assert.Equal(t, nethttp.StatusForbidden, status)

	status, body = s.do(t, nethttp.MethodPost, "/tickets/TKT-1001/plan", admin, plan())
	require.Equal(t, nethttp.StatusOK, status, string(body))
	planned := decode[ticketEnvelope](t, body)
	assert.Equal(t, "PLANNED", planned.Data.Status)
	assert.Equal(t, "CRITICAL", planned.Data.RiskLevel)
	assert.Equal(t, "ADMIN1", planned.Data.AssigneeName, "blank assignee defaults to acting admin")

	status, body = s.do(t, nethttp.MethodPost, "/tickets/TKT-1001/finish", admin, nil)
	require.Equal(t, nethttp.StatusOK, status, string(body))
	finished := decode[ticketEnvelope](t, body)
	assert.Equal(t, "FINISHED", finished.Data.Status)
	require.NotNil(t, finished.Data.ActualFinishDate)
	assert.Equal(t, "14/10/2026", *finished.Data.ActualFinishDate)

	status, body = s.do(t, nethttp.MethodPost, "/tickets/TKT-1001/finish", admin, nil)
	assert.Equal(t, nethttp.StatusConflict, status)
	assert.Equal(t, "INVALID_STATE", decode[errorEnvelope](t, body).Error.Code)
}

func TestOutletVisibility(t *testing.T) {
	s := newTestServer(t)
	storeA := s.token(t, "STORE-A")
	storeB := s.token(t, "STORE-B")
	admin := s.token(t, "ADMIN1")

	status, _ := s.do(t, nethttp.MethodPost, "/tickets", storeA, map[string]string{"problem_description": "Leak"})
	require.Equal(t, nethttp.StatusCreated, status)

	status, body := s.do(t, nethttp.MethodGet, "/tickets", storeB, nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.JSONEq(t, `{"data":[]}`, string(body))

	status, _ = s.do(t, nethttp.MethodGet, "/tickets/TKT-1001", storeB, nil)
	assert.Equal(t, nethttp.StatusNotFound, status)

	status, body = s.do(t, nethttp.MethodGet, "/tickets?status=pending", admin, nil)
	require.Equal(t, nethttp.StatusOK, status)
	var list struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list.Data, 1)

	status, body = s.do(t, nethttp.MethodGet, "/tickets?status=closed", admin, nil)
	assert.Equal(t, nethttp.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", decode[errorEnvelope](t, body).Error.Code)

	status, _ = s.do(t, nethttp.MethodPost, "/tickets", admin, map[string]string{"problem_description": "Leak"})
	assert.Equal(t, nethttp.StatusForbidden, status, "admins do not report tickets")

	status, _ = s.do(t, nethttp.MethodGet, "/tickets/overdue", storeA, nil)
	assert.Equal(t, nethttp.StatusForbidden, status)
	status, body = s.do(t, nethttp.MethodGet, "/tickets/overdue", admin, nil)
	assert.Equal(t, nethttp.StatusOK, status)
	assert.JSONEq(t, `{"data":[]}`, string(body))
}

func TestValidationErrorsOverHTTP(t *testing.T) {
	s := newTestServer(t)
	outlet := s.token(t, "STORE-A")
	admin := s.token(t, "ADMIN1")

	status, body := s.do(t, nethttp.MethodPost, "/tickets", outlet, map[string]string{"problem_description": " "})
	assert.Equal(t, nethttp.StatusBadRequest, status)
	env := decode[errorEnvelope](t, body)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
	assert.Equal(t, "required", env.Error.Details["problem_description"])

	status, _ = s.do(t, nethttp.MethodPost, "/tickets", outlet, map[string]string{"problem_description": "Leak"})
	require.Equal(t, nethttp.StatusCreated, status)

	incomplete := plan()
	delete(incomplete, "department")
	status, body = s.do(t, nethttp.MethodPost, "/tickets/TKT-1001/plan", admin, incomplete)
	assert.Equal(t, nethttp.StatusBadRequest, status)
	assert.Equal(t, "required", decode[errorEnvelope](t, body).Error.Details["department"])

	status, body = s.do(t, nethttp.MethodPost, "/tickets/TKT-9999/plan", admin, plan())
	assert.Equal(t, nethttp.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", decode[errorEnvelope](t, body).Error.Code)

	status, _ = s.do(t, nethttp.MethodGet, "/tickets", "", nil)
	assert.Equal(t, nethttp.StatusUnauthorized, status)

	status, body = s.do(t, nethttp.MethodGet, "/does-not-exist", "", nil)
	assert.Equal(t, nethttp.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", decode[errorEnvelope](t, body).Error.Code)
}

func TestLoginAndUsers(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, nethttp.MethodPost, "/auth/login", "", map[string]string{"id": "ADMIN1", "password": "wrong"})
	assert.Equal(t, nethttp.StatusUnauthorized, status)
	assert.Equal(t, "invalid credentials", decode[errorEnvelope](t, body).Error.Message)

	status, body = s.do(t, nethttp.MethodGet, "/users", "", nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.JSONEq(t, `{"data":[{"id":"ADMIN1","role":"ADMIN"},{"id":"STORE-A","role":"OUTLET"},{"id":"STORE-B","role":"OUTLET"}]}`, string(body))
	assert.NotContains(t, string(body), "password")
	assert.NotContains(t, string(body), "@")
}

func TestActionsEnvelope(t *testing.T) {
	s := newTestServer(t)
	outlet := s.token(t, "STORE-A")
	admin := s.token(t, "ADMIN1")

	create := map[string]any{
		"action": "create",
		"data": map[string]any{
			"id":               "TKT-4242",
			"storeName":        "STORE-A",
			"reportDate":       "2026-10-13",
			"problemIndicator": "Plafon bocor",
			"photos":           []string{},
			"createdAt":        1,
		},
	}
	status, body := s.do(t, nethttp.MethodPost, "/actions", outlet, create)
	require.Equal(t, nethttp.StatusCreated, status, string(body))
	assert.Equal(t, "TKT-4242", decode[ticketEnvelope](t, body).Data.ID)

	status, body = s.do(t, nethttp.MethodPost, "/actions", outlet, create)
	require.Equal(t, nethttp.StatusCreated, status, "retry with the same id is safe")
	assert.Equal(t, "TKT-4242", decode[ticketEnvelope](t, body).Data.ID)

	status, _ = s.do(t, nethttp.MethodPost, "/actions", outlet, map[string]any{"action": "update", "id": "TKT-4242"})
	assert.Equal(t, nethttp.StatusForbidden, status)

	status, body = s.do(t, nethttp.MethodPost, "/actions", admin, map[string]any{
		"action": "update",
		"id":     "TKT-4242",
		"updates": map[string]string{
			"riskLevel":      "HIGH",
			"businessImpact": "Customer area affected",
			"recommendation": "Seal roof",
			"department":     "GA",
			"picName":        "Budi",
			"plannedDate":    "2026-10-15",
			"targetEndDate":  "2026-10-17",
		},
	})
	require.Equal(t, nethttp.StatusOK, status, string(body))
	planned := decode[ticketEnvelope](t, body)
	assert.Equal(t, "PLANNED", planned.Data.Status)
	assert.Equal(t, "Budi", planned.Data.AssigneeName)

	status, body = s.do(t, nethttp.MethodPost, "/actions", admin, map[string]any{
		"action":     "update",
		"id":         "TKT-4242",
		"updates":    map[string]string{"riskLevel": "LOW"},
		"isFinished": true,
	})
	require.Equal(t, nethttp.StatusOK, status, string(body))
	finished := decode[ticketEnvelope](t, body)
	assert.Equal(t, "FINISHED", finished.Data.Status)
	assert.Equal(t, "HIGH", finished.Data.RiskLevel, "incomplete updates are not applied on finish")

	status, _ = s.do(t, nethttp.MethodPost, "/actions", admin, map[string]any{"action": "delete"})
	assert.Equal(t, nethttp.StatusBadRequest, status)

	stored, err := s.tickets.GetByID(context.Background(), "TKT-4242")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusFinished, stored.Status)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)
	status, body := s.do(t, nethttp.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Contains(t, string(body), `"ready"`)

	admin := s.token(t, "ADMIN1")
	status, body = s.do(t, nethttp.MethodGet, "/metrics", admin, nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.Contains(t, string(body), "|POST|200")
}
