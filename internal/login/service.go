// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package login

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/sessionguard/internal/activity"
	"github.com/tomtom215/sessionguard/internal/auth"
	"github.com/tomtom215/sessionguard/internal/device"
	"github.com/tomtom215/sessionguard/internal/logging"
	"github.com/tomtom215/sessionguard/internal/metrics"
	"github.com/tomtom215/sessionguard/internal/models"
	"github.com/tomtom215/sessionguard/internal/risk"
	"github.com/tomtom215/sessionguard/internal/session"
)

// CapWarning is added to the login warnings when the session cap was reached.
const CapWarning = "Maximum concurrent sessions reached. Oldest session will be terminated."

// UserStore persists user accounts.
type UserStore interface {
	// CreateUser returns a Conflict error for a duplicate email.
	CreateUser(ctx context.Context, u *models.User) error
	// GetUser returns nil, nil when the user does not exist.
	GetUser(ctx context.Context, id string) (*models.User, error)
	// GetUserByEmail matches case-insensitively and returns nil, nil when absent.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	UpdateRiskScore(ctx context.Context, id string, score float64) error
	UpdateAccountStatus(ctx context.Context, id string, status models.AccountStatus, at time.Time) error
}

// EvictionPublisher announces sessions terminated to make room for a login.
type EvictionPublisher interface {
	PublishSessionEvicted(ctx context.Context, evicted *models.Session, newSessionID string) error
}

// ActivityTracker records login and logout entries.
type ActivityTracker interface {
	Track(ctx context.Context, req activity.TrackRequest) (*models.ActivityLog, error)
}

// Config holds password settings.
type Config struct {
	BcryptCost        int
	PasswordMinLength int
}

// Deps are the collaborators of the Service. Activity and Evictions are optional.
type Deps struct {
	Users      UserStore
	Devices    *device.Resolver
	Ledger     *session.Ledger
	Evaluator  *risk.Evaluator
	Alerts     *risk.Generator
	Aggregator *risk.Aggregator
	Tokens     *auth.TokenManager
	Activity   ActivityTracker
	Evictions  EvictionPublisher
}

// RegisterRequest creates an account.
type RegisterRequest struct {
	Email            string `json:"email" validate:"required,email,max=254"`
	Password         string `json:"password" validate:"required"`
	SubscriptionTier string `json:"subscription_tier,omitempty" validate:"omitempty,tier"`
}

// Request is one login attempt. IPAddress is filled from the connection.
type Request struct {
	Email       string             `json:"email" validate:"required,email"`
	Password    string             `json:"password" validate:"required"`
	Fingerprint models.Fingerprint `json:"device_fingerprint" validate:"required"`
	Location    *models.Location   `json:"location,omitempty"`
	IPAddress   string             `json:"-"`
}

// RiskAssessment is the risk part of a login result.
type RiskAssessment struct {
	risk.Scores
	Alerts []models.RiskAlert `json:"alerts"`
}

// Result is a successful login.
type Result struct {
	User      *models.User         `json:"user"`
	Session   *models.Session      `json:"session"`
	Device    models.DeviceSummary `json:"device"`
	Risk      RiskAssessment       `json:"risk_assessment"`
	Warnings  []string             `json:"warnings"`
	Token     string               `json:"token"`
	ExpiresAt time.Time            `json:"expires_at"`
}

// Verification is the identity behind a valid token.
type Verification struct {
	User    *models.User    `json:"user"`
	Session *models.Session `json:"session"`
	Claims  *auth.Claims    `json:"-"`
}

// Service registers users and runs the login pipeline: device resolution,
// session admission, risk evaluation, alerting and token issuance.
type Service struct {
	users      UserStore
	devices    *device.Resolver
	ledger     *session.Ledger
	evaluator  *risk.Evaluator
	alerts     *risk.Generator
	aggregator *risk.Aggregator
	tokens     *auth.TokenManager
	activity   ActivityTracker
	evictions  EvictionPublisher
	cfg        Config
	security   *logging.SecurityLogger
	now        func() time.Time
}

// NewService creates a Service.
func NewService(deps Deps, cfg Config) *Service {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = auth.DefaultBcryptCost
	}
	if cfg.PasswordMinLength == 0 {
		cfg.PasswordMinLength = auth.DefaultPasswordMinLength
	}
	return &Service{
		users:      deps.Users,
		devices:    deps.Devices,
		ledger:     deps.Ledger,
		evaluator:  deps.Evaluator,
		alerts:     deps.Alerts,
		aggregator: deps.Aggregator,
		tokens:     deps.Tokens,
		activity:   deps.Activity,
		evictions:  deps.Evictions,
		cfg:        cfg,
		security:   logging.NewSecurityLogger(),
		now:        time.Now,
	}
}

// SetClock overrides the time source. Intended for tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Register creates an ACTIVE user with the limits of the requested tier.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	email := normalizeEmail(req.Email)
	if email == "" {
		return nil, models.InvalidInput("email is required")
	}
	if err := auth.ValidatePassword(req.Password, s.cfg.PasswordMinLength); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(req.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	tier := models.ParseTier(req.SubscriptionTier)
	limits := tier.Limits()
	now := s.now().UTC()
	u := &models.User{
		ID:                    uuid.New().String(),
		Email:                 email,
		PasswordHash:          hash,
		Role:                  models.RoleUser,
		SubscriptionTier:      tier,
		AccountStatus:         models.AccountActive,
		MaxConcurrentSessions: limits.MaxSessions,
		MaxDevicesAllowed:     limits.MaxDevices,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Info().Str("user_id", u.ID).Str("tier", string(tier)).Msg("User registered")
	return u, nil
}

// Login authenticates the credentials and admits a new session. Unknown
// emails and wrong passwords fail identically.
func (s *Service) Login(ctx context.Context, req Request) (*Result, error) {
	res, err := s.login(ctx, req)
	if err != nil && !errors.Is(err, models.ErrUnauthorized) && !errors.Is(err, models.ErrAccountInactive) {
		logging.Ctx(ctx).Error().Err(err).Msg("Login failed")
		metrics.RecordLogin("error", 0)
	}
	return res, err
}

func (s *Service) login(ctx context.Context, req Request) (*Result, error) {
	start := s.now()

	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	hash := ""
	if user != nil {
		hash = user.PasswordHash
	}
	if !auth.CheckPasswordOrDummy(hash, req.Password) || user == nil {
		s.loginFailed(req, user, "invalid_credentials")
		return nil, models.Unauthorized("invalid email or password")
	}
	if !user.IsActive() {
		s.loginFailed(req, user, "inactive")
		return nil, models.AccountInactive(user.AccountStatus)
	}

	res, err := s.devices.Resolve(ctx, user.ID, &req.Fingerprint)
	if err != nil {
		return nil, fmt.Errorf("resolve device: %w", err)
	}

	opened, err := s.ledger.Open(ctx, user, session.OpenRequest{
		DeviceID:  res.Device.ID,
		IPAddress: req.IPAddress,
		UserAgent: req.Fingerprint.UserAgent,
		Location:  req.Location,
	})
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	sess := opened.Session

	// A login that fails past this point must not leave a session without a token.
	fail := func(err error) (*Result, error) {
		if _, terr := s.ledger.Terminate(context.WithoutCancel(ctx), sess.ID, "login_failed"); terr != nil {
			logging.Ctx(ctx).Warn().Err(terr).Str("session_id", sess.ID).Msg("Failed to end session of failed login")
		}
		return nil, err
	}

	assessment := s.evaluator.Evaluate(risk.Input{
		User:    user,
		Device:  res.Device,
		Session: sess,
		Prior:   opened.Prior,
		Now:     sess.StartedAt,
	})
	scores := assessment.Scores
	metrics.RecordRiskScores(scores.Device, scores.Location, scores.Behavioral, scores.Session, scores.Composite)

	alerts, err := s.alerts.Raise(ctx, user.ID, assessment.Findings)
	if err != nil {
		return fail(fmt.Errorf("raise alerts: %w", err))
	}
	if err := s.ledger.RecordRiskScore(ctx, sess.ID, scores.Composite); err != nil {
		return fail(fmt.Errorf("record session risk: %w", err))
	}
	sess.RiskScore = scores.Composite

	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return fail(fmt.Errorf("update last login: %w", err))
	}
	user.LastLoginAt = &now
	if _, err := s.refreshAccountScore(ctx, user); err != nil {
		return fail(err)
	}

	token, expiresAt, err := s.tokens.GenerateToken(user, sess.ID)
	if err != nil {
		return fail(err)
	}

	if opened.Evicted != nil && s.evictions != nil {
		if err := s.evictions.PublishSessionEvicted(ctx, opened.Evicted, sess.ID); err != nil {
			logging.Ctx(ctx).Warn().Err(err).
				Str("session_id", opened.Evicted.ID).
				Msg("Failed to publish session eviction")
		}
	}

	warnings := assessment.Warnings()
	if opened.CapReached {
		warnings = append(warnings, CapWarning)
	}
	if alerts == nil {
		alerts = []models.RiskAlert{}
	}

	s.track(ctx, activity.TrackRequest{
		UserID:       user.ID,
		SessionID:    sess.ID,
		ActivityType: models.ActivityLogin,
		IPAddress:    req.IPAddress,
		Metadata: map[string]any{
			"device_id":  res.Device.ID,
			"new_device": res.IsNew,
			"risk_score": scores.Composite,
		},
	})

	s.security.LogEvent(&logging.SecurityEvent{
		Event:     logging.EventLoginSuccess,
		UserID:    user.ID,
		SessionID: sess.ID,
		DeviceID:  res.Device.ID,
		IPAddress: req.IPAddress,
		UserAgent: req.Fingerprint.UserAgent,
		Success:   true,
		Details:   map[string]string{"risk_score": fmt.Sprintf("%.2f", scores.Composite)},
	})
	metrics.RecordLogin("success", s.now().Sub(start))

	return &Result{
		User:      user,
		Session:   sess,
		Device:    res.Summary(),
		Risk:      RiskAssessment{Scores: scores, Alerts: alerts},
		Warnings:  warnings,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// Logout terminates the session named by the claims. Repeating it is harmless.
func (s *Service) Logout(ctx context.Context, claims *auth.Claims) error {
	if _, err := s.ledger.Terminate(ctx, claims.SessionID, "logout"); err != nil {
		return err
	}
	s.track(ctx, activity.TrackRequest{
		UserID:       claims.UserID(),
		SessionID:    claims.SessionID,
		ActivityType: models.ActivityLogout,
	})
	s.security.LogEvent(&logging.SecurityEvent{
		Event:     logging.EventLogout,
		UserID:    claims.UserID(),
		SessionID: claims.SessionID,
		Success:   true,
	})
	return nil
}

// Verify checks a token and returns its user and still-active session.
func (s *Service) Verify(ctx context.Context, token string) (*Verification, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	sess, err := s.ledger.Get(ctx, claims.SessionID)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, models.Unauthorized("session not found")
		}
		return nil, err
	}
	if !sess.IsActive || sess.UserID != claims.UserID() {
		return nil, models.Unauthorized("session is no longer active")
	}
	user, err := s.Me(ctx, claims.UserID())
	if err != nil {
		return nil, err
	}
	return &Verification{User: user, Session: sess, Claims: claims}, nil
}

// IsSessionActive reports whether the session exists and is active.
func (s *Service) IsSessionActive(ctx context.Context, sessionID string) (bool, error) {
	sess, err := s.ledger.Get(ctx, sessionID)
	if err != nil {
		if models.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return sess.IsActive, nil
}

// Me returns the user or NotFound.
func (s *Service) Me(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, models.NotFound("user", userID)
	}
	return u, nil
}

// SetAccountStatus changes the status of an account. Leaving ACTIVE ends
// every active session of the user.
func (s *Service) SetAccountStatus(ctx context.Context, userID string, status models.AccountStatus) (*models.User, error) {
	if !status.Valid() {
		return nil, models.InvalidInput(fmt.Sprintf("unknown account status %q", status))
	}
	u, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if err := s.users.UpdateAccountStatus(ctx, userID, status, now); err != nil {
		return nil, err
	}
	u.AccountStatus = status
	u.UpdatedAt = now

	if status != models.AccountActive {
		active, err := s.ledger.Active(ctx, userID)
		if err != nil {
			return nil, err
		}
		for i := range active {
			if _, err := s.ledger.Terminate(ctx, active[i].ID, "account_"+strings.ToLower(string(status))); err != nil {
				return nil, err
			}
		}
	}
	return u, nil
}

// RiskScore recomputes and stores the account risk score of a user.
func (s *Service) RiskScore(ctx context.Context, userID string) (float64, error) {
	u, err := s.Me(ctx, userID)
	if err != nil {
		return 0, err
	}
	return s.refreshAccountScore(ctx, u)
}

func (s *Service) refreshAccountScore(ctx context.Context, u *models.User) (float64, error) {
	score, err := s.aggregator.Score(ctx, u.ID)
	if err != nil {
		return 0, fmt.Errorf("aggregate risk: %w", err)
	}
	if err := s.users.UpdateRiskScore(ctx, u.ID, score); err != nil {
		return 0, fmt.Errorf("update risk score: %w", err)
	}
	u.RiskScore = score
	return score, nil
}

func (s *Service) track(ctx context.Context, req activity.TrackRequest) {
	if s.activity == nil {
		return
	}
	if _, err := s.activity.Track(ctx, req); err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Str("activity_type", string(req.ActivityType)).
			Msg("Failed to track activity")
	}
}

// loginFailed logs and counts a rejected attempt. outcome is a
// sessionguard_logins_total label.
func (s *Service) loginFailed(req Request, user *models.User, outcome string) {
	ev := &logging.SecurityEvent{
		Event:     logging.EventLoginFailed,
		IPAddress: req.IPAddress,
		UserAgent: req.Fingerprint.UserAgent,
		Error:     outcome,
	}
	if user != nil {
		ev.UserID = user.ID
		ev.Details = map[string]string{"account_status": string(user.AccountStatus)}
	}
	s.security.LogEvent(ev)
	metrics.RecordLogin(outcome, 0)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
