// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/sessionguard/internal/activity"
	"github.com/tomtom215/sessionguard/internal/auth"
	"github.com/tomtom215/sessionguard/internal/authz"
	"github.com/tomtom215/sessionguard/internal/config"
	"github.com/tomtom215/sessionguard/internal/device"
	"github.com/tomtom215/sessionguard/internal/login"
	"github.com/tomtom215/sessionguard/internal/models"
	"github.com/tomtom215/sessionguard/internal/risk"
	"github.com/tomtom215/sessionguard/internal/session"
	"github.com/tomtom215/sessionguard/internal/store"
	"github.com/tomtom215/sessionguard/internal/websocket"
)

const password = "s3cure-enough-pass"

type testEnv struct {
	handler http.Handler
	store   *store.MemoryStore
	hub     *websocket.Hub
}

// envelope mirrors APIResponse with a raw data field.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *APIMeta        `json:"meta"`
}

func newTestEnv(t *testing.T, checks ...HealthCheck) *testEnv {
	t.Helper()

	st := store.NewMemoryStore()

	db, err := activity.OpenBadger(&config.ActivityConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenManager(&config.SecurityConfig{JWTSecret: strings.Repeat("k", 32)})
	require.NoError(t, err)
	enforcer, err := authz.NewEnforcer(nil)
	require.NoError(t, err)

	ledger := session.NewLedger(st, nil, session.DefaultConfig())
	devices := device.NewResolver(st)
	alerts := risk.NewGenerator(st, nil)
	tracker := activity.NewService(activity.NewBadgerStore(db, 0))

	svc := login.NewService(login.Deps{
		Users:      st,
		Devices:    devices,
		Ledger:     ledger,
		Evaluator:  risk.NewEvaluator(risk.DefaultConfig()),
		Alerts:     alerts,
		Aggregator: risk.NewAggregator(st),
		Tokens:     tokens,
		Activity:   tracker,
	}, login.Config{BcryptCost: bcrypt.MinCost})

	hub := websocket.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = hub.RunWithContext(ctx) }()

	h := NewHandler(Deps{
		Login:    svc,
		Devices:  devices,
		Ledger:   ledger,
		Alerts:   alerts,
		Activity: tracker,
		Enforcer: enforcer,
		Stream:   hub,
		Checks:   checks,
		Version:  "test",
	})
	router := NewRouter(h,
		auth.NewMiddleware(tokens, svc, WriteServiceError),
		authz.NewMiddleware(enforcer, WriteServiceError),
		NewChiMiddleware(&ChiMiddlewareConfig{RateLimitDisabled: true}),
	)
	return &testEnv{handler: router.SetupChi(), store: st, hub: hub}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "198.51.100.20:51234"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func fingerprint() models.Fingerprint {
	return models.Fingerprint{
		UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Mobile/15E148",
		Platform:  "iPhone",
		Timezone:  "America/New_York",
	}
}

// registerAndLogin returns the login result of a fresh free-tier user.
func (e *testEnv) registerAndLogin(t *testing.T, email string) login.Result {
	t.Helper()

	rec, _ := e.do(t, http.MethodPost, "/api/v1/auth/register", "", login.RegisterRequest{Email: email, Password: password})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	return e.login(t, email)
}

func (e *testEnv) login(t *testing.T, email string) login.Result {
	t.Helper()

	rec, env := e.do(t, http.MethodPost, "/api/v1/auth/login", "", login.Request{
		Email:       email,
		Password:    password,
		Fingerprint: fingerprint(),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res login.Result
	require.NoError(t, json.Unmarshal(env.Data, &res))
	return res
}

func TestHealth(t *testing.T) {
	t.Parallel()

	failing := func(context.Context) error { return errors.New("down") }
	ok := func(context.Context) error { return nil }

	tests := []struct {
		name       string
		checks     []HealthCheck
		wantCode   int
		wantStatus string
	}{
		{"healthy", []HealthCheck{{Name: "store", Critical: true, Check: ok}}, http.StatusOK, StatusHealthy},
		{"degraded", []HealthCheck{{Name: "store", Critical: true, Check: ok}, {Name: "redis", Check: failing}}, http.StatusOK, StatusDegraded},
		{"unhealthy", []HealthCheck{{Name: "store", Critical: true, Check: failing}}, http.StatusServiceUnavailable, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t, tt.checks...)
			rec, body := env.do(t, http.MethodGet, "/health", "", nil)
			require.Equal(t, tt.wantCode, rec.Code)

			var status HealthStatus
			if body.Success {
				require.NoError(t, json.Unmarshal(body.Data, &status))
			} else {
				raw, err := json.Marshal(body.Error.Details)
				require.NoError(t, err)
				require.NoError(t, json.Unmarshal(raw, &status))
			}
			assert.Equal(t, tt.wantStatus, status.Status)
			assert.Len(t, status.Components, len(tt.checks))
		})
	}
}

func TestRegister_Errors(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec, _ := env.do(t, http.MethodPost, "/api/v1/auth/register", "", login.RegisterRequest{Email: "a@example.com", Password: password})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, body := env.do(t, http.MethodPost, "/api/v1/auth/register", "", login.RegisterRequest{Email: "A@example.com", Password: password})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, ErrCodeConflict, body.Error.Code)

	rec, body = env.do(t, http.MethodPost, "/api/v1/auth/register", "", login.RegisterRequest{Email: "b@example.com", Password: password, SubscriptionTier: "gold"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, ErrCodeValidationFailed, body.Error.Code)

	rec, body = env.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{"email": "c@example.com", "password": password, "role": "admin"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown fields are rejected")
	assert.Equal(t, ErrCodeBadRequest, body.Error.Code)
}

func TestLogin_Errors(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.registerAndLogin(t, "erin@example.com")

	rec, body := env.do(t, http.MethodPost, "/api/v1/auth/login", "", login.Request{
		Email: "erin@example.com", Password: "wrong-password", Fingerprint: fingerprint(),
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, ErrCodeUnauthorized, body.Error.Code)

	rec, body = env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "erin@example.com", "password": password})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, ErrCodeValidationFailed, body.Error.Code)
	assert.Contains(t, body.Error.Message, "device_fingerprint")
}

func TestAuthenticatedFlow(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	res := env.registerAndLogin(t, "flow@example.com")
	token := res.Token
	assert.Equal(t, "198.51.100.20", res.Session.IPAddress)
	assert.True(t, res.Device.IsNew)
	require.NotEmpty(t, res.Risk.Alerts, "a first login from an untrusted device raises an alert")

	rec, body := env.do(t, http.MethodGet, "/api/v1/users/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me models.User
	require.NoError(t, json.Unmarshal(body.Data, &me))
	assert.Equal(t, "flow@example.com", me.Email)
	assert.NotContains(t, string(body.Data), "password")

	rec, body = env.do(t, http.MethodGet, "/api/v1/devices", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, body.Meta.Count)
	assert.Equal(t, 1, *body.Meta.Count)

	rec, body = env.do(t, http.MethodPost, "/api/v1/devices/"+res.Device.ID+"/trust", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var trusted models.Device
	require.NoError(t, json.Unmarshal(body.Data, &trusted))
	assert.True(t, trusted.IsTrusted)
	assert.GreaterOrEqual(t, trusted.TrustScore, float64(90))

	rec, _ = env.do(t, http.MethodGet, "/api/v1/sessions/active", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body = env.do(t, http.MethodGet, "/api/v1/sessions/concurrent-check", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var check session.ConcurrentCheck
	require.NoError(t, json.Unmarshal(body.Data, &check))
	assert.Equal(t, 1, check.ActiveSessions)
	assert.Equal(t, "Normal usage", check.Message)

	rec, _ = env.do(t, http.MethodGet, "/api/v1/sessions/history?limit=5", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = env.do(t, http.MethodGet, "/api/v1/sessions/history?limit=abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = env.do(t, http.MethodGet, "/api/v1/risk/alerts?unresolved=true", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var alerts []models.RiskAlert
	require.NoError(t, json.Unmarshal(body.Data, &alerts))
	require.NotEmpty(t, alerts)

	rec, _ = env.do(t, http.MethodPost, "/api/v1/risk/alerts/"+alerts[0].ID+"/resolve", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = env.do(t, http.MethodGet, "/api/v1/risk/score", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var score struct {
		RiskScore float64 `json:"risk_score"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &score))
	assert.Equal(t, float64(15), res.User.RiskScore)
	assert.Zero(t, score.RiskScore, "resolved alerts no longer count")

	rec, _ = env.do(t, http.MethodPost, "/api/v1/activity/track", token, TrackActivityRequest{
		ActivityType: string(models.ActivityVideoWatch),
		ResourceID:   "video-42",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, _ = env.do(t, http.MethodPost, "/api/v1/activity/track", token, TrackActivityRequest{ActivityType: "teleport"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = env.do(t, http.MethodGet, "/api/v1/activity/history", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history []models.ActivityLog
	require.NoError(t, json.Unmarshal(body.Data, &history))
	require.Len(t, history, 2)
	assert.Equal(t, models.ActivityVideoWatch, history[0].ActivityType)
	assert.Equal(t, models.ActivityLogin, history[1].ActivityType)

	rec, body = env.do(t, http.MethodPost, "/api/v1/auth/verify", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(body.Data), `"valid":true`)

	rec, _ = env.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = env.do(t, http.MethodGet, "/api/v1/users/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "token of a terminated session is rejected")
	assert.Equal(t, ErrCodeUnauthorized, body.Error.Code)

	rec, _ = env.do(t, http.MethodPost, "/api/v1/auth/verify", "", VerifyRequest{Token: token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUnauthenticated(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	for _, path := range []string{"/api/v1/users/me", "/api/v1/devices", "/api/v1/risk/score"} {
		rec, body := env.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		require.NotNil(t, body.Error, path)
		assert.False(t, body.Success)
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		assert.Equal(t, rec.Header().Get("X-Request-ID"), body.Error.RequestID)
	}

	rec, _ := env.do(t, http.MethodGet, "/api/v1/devices", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body := env.do(t, http.MethodGet, "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, ErrCodeNotFound, body.Error.Code)
}

func TestOtherUsersResources(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	alice := env.registerAndLogin(t, "alice@example.com")
	bob := env.registerAndLogin(t, "bob@example.com")

	rec, _ := env.do(t, http.MethodDelete, "/api/v1/sessions/"+alice.Session.ID, bob.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/api/v1/devices/"+alice.Device.ID+"/trust", bob.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = env.do(t, http.MethodDelete, "/api/v1/devices/"+alice.Device.ID, bob.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NotEmpty(t, alice.Risk.Alerts)
	rec, _ = env.do(t, http.MethodPost, "/api/v1/risk/alerts/"+alice.Risk.Alerts[0].ID+"/resolve", bob.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Alice may end her own session.
	rec, _ = env.do(t, http.MethodDelete, "/api/v1/sessions/"+alice.Session.ID, alice.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminRoutes(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.registerAndLogin(t, "user@example.com")

	hash, err := auth.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	now := time.Now().UTC()
	require.NoError(t, env.store.CreateUser(ctx, &models.User{
		ID:                    "admin-1",
		Email:                 "admin@example.com",
		PasswordHash:          hash,
		Role:                  models.RoleAdmin,
		SubscriptionTier:      models.TierEnterprise,
		AccountStatus:         models.AccountActive,
		MaxConcurrentSessions: 5,
		MaxDevicesAllowed:     10,
		CreatedAt:             now,
		UpdatedAt:             now,
	}))
	admin := env.login(t, "admin@example.com")

	rec, body := env.do(t, http.MethodPost, "/api/v1/admin/sessions/sweep", user.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, ErrCodeForbidden, body.Error.Code)

	rec, _ = env.do(t, http.MethodPost, "/api/v1/admin/sessions/sweep", admin.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Admins resolve any user's alert.
	require.NotEmpty(t, user.Risk.Alerts)
	rec, _ = env.do(t, http.MethodPost, "/api/v1/risk/alerts/"+user.Risk.Alerts[0].ID+"/resolve", admin.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = env.do(t, http.MethodPut, "/api/v1/admin/users/"+user.User.ID+"/status", user.Token, AccountStatusRequest{Status: "LOCKED"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = env.do(t, http.MethodPut, "/api/v1/admin/users/"+user.User.ID+"/status", admin.Token, AccountStatusRequest{Status: "LOCKED"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = env.do(t, http.MethodGet, "/api/v1/users/me", user.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "locking ends the user's sessions")

	rec, body = env.do(t, http.MethodPost, "/api/v1/auth/login", "", login.Request{
		Email: "user@example.com", Password: password, Fingerprint: fingerprint(),
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, ErrCodeAccountInactive, body.Error.Code)
}

func TestAlertStream(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	res := env.registerAndLogin(t, "stream@example.com")

	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws/alerts?token=" + res.Token
	conn, resp, err := gorillaws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	require.Eventually(t, func() bool {
		return env.hub.UserClientCount(res.User.ID) == 1
	}, 2*time.Second, 10*time.Millisecond)

	alert := &models.RiskAlert{ID: "alert-x", UserID: res.User.ID, AlertType: models.AlertHighRiskScore, Severity: models.SeverityHigh}
	require.NoError(t, env.hub.HandleAlert(context.Background(), alert))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg struct {
		Type string          `json:"type"`
		Data models.RiskAlert `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, websocket.MessageTypeRiskAlert, msg.Type)
	assert.Equal(t, "alert-x", msg.Data.ID)

	// Without a token the upgrade is refused before it starts.
	_, resp, err = gorillaws.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/v1/ws/alerts", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}
