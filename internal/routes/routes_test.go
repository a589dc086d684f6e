package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/routes"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/testutil"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-signing"

func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	os.Exit(m.Run())
}

type testServer struct {
	t       *testing.T
	app     *fiber.App
	store   *testutil.MemStore
	pingErr error
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	srv := &testServer{t: t, store: testutil.NewMemStore()}
	cfg := &config.Config{JWTSecret: testSecret, JWTAccessExpiry: time.Hour, Currency: "RUB"}

	clock := services.Clock(time.Now)
	authz := services.NewRoleAuthorizer("")
	notifier := services.StoreNotifier{}
	auth := services.NewAuthService(srv.store, cfg.JWTSecret, cfg.JWTAccessExpiry, clock)
	ledger := services.NewLedgerService(srv.store)
	lifecycle := services.NewLifecycleService(srv.store, authz, notifier, clock, services.ActivationKeep)
	payments := services.NewPaymentService(srv.store, ledger, lifecycle, services.MockSettler{}, authz, notifier, clock, cfg.Currency)
	renewals := services.NewRenewalService(srv.store, ledger, notifier, clock, cfg.Currency)

	srv.app = fiber.New()
	routes.Setup(srv.app, cfg, auth, authz, routes.Handlers{
		Auth:          handlers.NewAuthHandler(auth),
		Health:        handlers.NewHealthHandler(func() error { return srv.pingErr }),
		Wallet:        handlers.NewWalletHandler(ledger, cfg.Currency),
		Plans:         handlers.NewPlanHandler(services.NewPlanService(srv.store, authz)),
		Subscriptions: handlers.NewSubscriptionHandler(lifecycle, payments),
		Payments:      handlers.NewPaymentHandler(payments),
		Notifications: handlers.NewNotificationHandler(services.NewNotificationService(srv.store)),
		Renewals:      handlers.NewRenewalHandler(renewals),
	})
	return srv
}

// do sends a JSON request and decodes the response body into out when set.
func (s *testServer) do(method, path, token string, body interface{}, out interface{}) int {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(s.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(s.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (s *testServer) register(email string) (string, uuid.UUID) {
	s.t.Helper()
	var auth dto.AuthResponse
	code := s.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    email,
		"password": "password123",
	}, &auth)
	require.Equal(s.t, http.StatusCreated, code)
	return auth.AccessToken, auth.User.ID
}

// adminToken creates an admin user directly and signs a token for it.
func (s *testServer) adminToken() string {
	s.t.Helper()
	admin := &models.User{ID: uuid.New(), Email: uuid.NewString() + "@example.com", Role: models.RoleAdmin}
	require.NoError(s.t, s.store.CreateUser(context.Background(), admin))

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  admin.ID.String(),
		"role": admin.Role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(s.t, err)
	return token
}

func (s *testServer) plan(price string) *models.Plan {
	s.t.Helper()
	p := &models.Plan{
		ID:           uuid.New(),
		Name:         "Cinema Monthly",
		Price:        decimal.RequireFromString(price),
		DurationDays: 30,
		IsActive:     true,
	}
	require.NoError(s.t, s.store.CreatePlan(context.Background(), p))
	return p
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	var health dto.HealthResponse
	assert.Equal(t, http.StatusOK, srv.do(http.MethodGet, "/api/health", "", nil, &health))
	assert.Equal(t, "ok", health.DB)

	srv.pingErr = errors.New("connection refused")
	assert.Equal(t, http.StatusOK, srv.do(http.MethodGet, "/api/health", "", nil, &health))
	assert.Equal(t, "unhealthy: connection refused", health.DB)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t)

	var e dto.ErrorResponse
	assert.Equal(t, http.StatusUnauthorized, srv.do(http.MethodGet, "/api/wallet/balance", "", nil, &e))
	assert.True(t, e.Error)

	assert.Equal(t, http.StatusUnauthorized, srv.do(http.MethodGet, "/api/me", "not-a-token", nil, nil))
	assert.Equal(t, http.StatusOK, srv.do(http.MethodGet, "/api/plans", "", nil, nil))
}

func TestAuthFlow(t *testing.T) {
	srv := newTestServer(t)
	_, id := srv.register("viewer@example.com")

	assert.Equal(t, http.StatusConflict, srv.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "viewer@example.com", "password": "password123",
	}, nil))
	assert.Equal(t, http.StatusBadRequest, srv.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "not-an-email", "password": "password123",
	}, nil))

	var e dto.ErrorResponse
	assert.Equal(t, http.StatusUnauthorized, srv.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "viewer@example.com", "password": "wrong-password",
	}, &e))

	var auth dto.AuthResponse
	require.Equal(t, http.StatusOK, srv.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "viewer@example.com", "password": "password123",
	}, &auth))

	var me map[string]string
	require.Equal(t, http.StatusOK, srv.do(http.MethodGet, "/api/me", auth.AccessToken, nil, &me))
	assert.Equal(t, id.String(), me["id"])
	assert.Equal(t, models.RoleUser, me["role"])
}

func TestWallet(t *testing.T) {
	srv := newTestServer(t)
	token, _ := srv.register("wallet@example.com")

	var bal dto.BalanceResponse
	require.Equal(t, http.StatusOK, srv.do(http.MethodPost, "/api/wallet/topup", token, map[string]string{"amount": "100.00"}, &bal))
	assert.True(t, bal.Balance.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, "RUB", bal.Currency)

	var e dto.ErrorResponse
	assert.Equal(t, http.StatusBadRequest, srv.do(http.MethodPost, "/api/wallet/topup", token, map[string]string{"amount": "-5"}, &e))
	assert.Equal(t, http.StatusBadRequest, srv.do(http.MethodPost, "/api/wallet/topup", token, map[string]string{"amount": "1.001"}, nil))
	assert.Equal(t, http.StatusPaymentRequired, srv.do(http.MethodPost, "/api/wallet/withdraw", token, map[string]string{"amount": "150"}, nil))

	require.Equal(t, http.StatusOK, srv.do(http.MethodPost, "/api/wallet/withdraw", token, map[string]string{"amount": "30.50"}, &bal))
	assert.True(t, bal.Balance.Equal(decimal.RequireFromString("69.50")))

	var history []dto.TransactionResponse
	require.Equal(t, http.StatusOK, srv.do(http.MethodGet, "/api/wallet/history", token, nil, &history))
	assert.Len(t, history, 2)
}

func TestPersistenceFailureIsOpaque(t *testing.T) {
	srv := newTestServer(t)
	token, _ := srv.register("broken@example.com")
	srv.store.FailOn("AppendTransaction", errors.New("disk full"))

	var e dto.ErrorResponse
	assert.Equal(t, http.StatusInternalServerError, srv.do(http.MethodPost, "/api/wallet/topup", token, map[string]string{"amount": "10"}, &e))
	assert.Equal(t, "Internal server error", e.Message)

	srv.store.FailOn("AppendTransaction", nil)
	var bal dto.BalanceResponse
	require.Equal(t, http.StatusOK, srv.do(http.MethodGet, "/api/wallet/balance", token, nil, &bal))
	assert.True(t, bal.Balance.IsZero())
}

func TestPayment(t *testing.T) {
	srv := newTestServer(t)
	token, userID := srv.register("payer@example.com")
	plan := srv.plan("80")
	admin := srv.adminToken()

	body := map[string]string{"plan_id": plan.ID.String(), "amount": "80", "payment_method": "balance"}
	assert.Equal(t, http.StatusNotFound, srv.do(http.MethodPost, "/api/payments", token, body, nil))

	require.Equal(t, http.StatusCreated, srv.do(http.MethodPost, "/api/admin/subscriptions", admin, map[string]interface{}{
		"user_id": userID.String(), "plan_id": plan.ID.String(),
	}, nil))

	assert.Equal(t, http.StatusPaymentRequired, srv.do(http.MethodPost, "/api/payments", token, body, nil))
	assert.Equal(t, http.StatusBadRequest, srv.do(http.MethodPost, "/api/payments", token, map[string]string{
		"plan_id": plan.ID.String(), "amount": "80", "payment_method": "cash",
	}, nil))

	require.Equal(t, http.StatusOK, srv.do(http.MethodPost, "/api/wallet/topup", token, map[string]string{"amount": "100"}, nil))

	var payment models.Payment
	require.Equal(t, http.StatusCreated, srv.do(http.MethodPost, "/api/payments", token, body, &payment))
	assert.Equal(t, models.PaymentCompleted, payment.Status)

	var subs []models.Assignment
	require.Equal(t, http.StatusOK, srv.do(http.MethodGet, "/api/subscriptions", token, nil, &subs))
	require.Len(t, subs, 1)
	assert.True(t, subs[0].IsActive)

	var list dto.ListResponse[models.Payment]
	require.Equal(t, http.StatusOK, srv.do(http.MethodGet, "/api/payments?limit=1000", token, nil, &list))
	assert.Len(t, list.Items, 1)
	assert.Equal(t, 200, list.Limit)

	var refunded models.Payment
	require.Equal(t, http.StatusOK, srv.do(http.MethodPost, "/api/payments/"+payment.ID.String()+"/refund", token, map[string]string{"reason": "changed my mind"}, &refunded))
	assert.Equal(t, models.PaymentRefunded, refunded.Status)
	assert.Equal(t, http.StatusConflict, srv.do(http.MethodPost, "/api/payments/"+payment.ID.String()+"/refund", token, map[string]string{"reason": "again please"}, nil))
}

func TestAdminRoutes(t *testing.T) {
	srv := newTestServer(t)
	token, _ := srv.register("user@example.com")
	admin := srv.adminToken()

	var e dto.ErrorResponse
	assert.Equal(t, http.StatusForbidden, srv.do(http.MethodPost, "/api/admin/renewals/run", token, nil, &e))
	assert.Equal(t, "Admin access required", e.Message)

	var plan models.Plan
	require.Equal(t, http.StatusCreated, srv.do(http.MethodPost, "/api/admin/plans", admin, map[string]interface{}{
		"name": "Cinema Yearly", "price": "2990.00", "duration_days": 365,
	}, &plan))
	assert.Equal(t, 365, plan.DurationDays)

	assert.Equal(t, http.StatusBadRequest, srv.do(http.MethodPost, "/api/admin/plans", admin, map[string]interface{}{
		"name": "Broken", "price": "10", "duration_days": 0,
	}, nil))

	var report services.SweepReport
	require.Equal(t, http.StatusOK, srv.do(http.MethodPost, "/api/admin/renewals/run", admin, nil, &report))
	assert.Equal(t, 0, report.Due)
}
