package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/iuliaszarics/WhiskersWonderland/internal/auth"
	"github.com/iuliaszarics/WhiskersWonderland/internal/config"
	"github.com/iuliaszarics/WhiskersWonderland/internal/logger"
	"github.com/iuliaszarics/WhiskersWonderland/internal/metrics"
	"github.com/iuliaszarics/WhiskersWonderland/internal/model"
	"github.com/iuliaszarics/WhiskersWonderland/internal/repository"
)

// Common service errors
var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateEmail     = errors.New("email already in use")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUserNotFound       = errors.New("user not found")
)

// AuthService handles registration and the password + TOTP login flow
type AuthService struct {
	users    UserStore
	activity activityRecorder
	hasher   *auth.PasswordHasher
	tokens   *auth.TokenService
	totp     *auth.TOTP
	metrics  *metrics.Metrics
	cfg      *config.Config
	log      *logger.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService creates a new AuthService
func NewAuthService(
	users UserStore,
	activities ActivityStore,
	hasher *auth.PasswordHasher,
	tokens *auth.TokenService,
	totp *auth.TOTP,
	met *metrics.Metrics,
	cfg *config.Config,
	log *logger.Logger,
) *AuthService {
	log = log.WithComponent("auth_service")
	return &AuthService{
		users:    users,
		activity: activityRecorder{store: activities, log: log},
		hasher:   hasher,
		tokens:   tokens,
		totp:     totp,
		metrics:  met,
		cfg:      cfg,
		log:      log,
	}
}

// RegisterRequest contains the data for registering a new user
type RegisterRequest struct {
	Username string
	Email    string
	Password string
}

// AuthResult carries a freshly issued session token
type AuthResult struct {
	Token string
	User  *model.User
}

// LoginResult is either a session token or a two-factor challenge
type LoginResult struct {
	Token             string
	RequiresTwoFactor bool
	TempToken         string
	User              *model.User
}

// Register creates a user account with the user role and signs it in
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	user, err := s.CreateUser(ctx, req, model.RoleUser)
	if err != nil {
		return nil, err
	}

	s.activity.record(ctx, user.ID, model.ActivityRegister, user.ID, "New user registered")
	s.metrics.ObserveRegistration()

	token, err := s.tokens.IssueSession(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}

	s.log.Info().Int64("user_id", user.ID).Msg("user registered")
	return &AuthResult{Token: token, User: user}, nil
}

// CreateUser validates req and stores a new account with role
func (s *AuthService) CreateUser(ctx context.Context, req RegisterRequest, role model.Role) (*model.User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)

	if username == "" || email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: username, email and password are required", ErrValidation)
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}
	if err := auth.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}
	if err := auth.ValidateEmail(email); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}
	if err := auth.ValidatePassword(req.Password, s.cfg.Security.Password.MinLength); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, ErrDuplicateEmail
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Login checks a password. Users with two-factor enabled get a pre-auth
// token instead of a session, and no login activity is written yet.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Burn the same bcrypt time as a real mismatch.
			s.hasher.Check(password, s.dummyDigest())
			s.metrics.ObserveLogin(metrics.LoginInvalid)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !s.hasher.Check(password, user.PasswordHash) {
		s.metrics.ObserveLogin(metrics.LoginInvalid)
		return nil, ErrInvalidCredentials
	}

	if user.TwoFactorEnabled {
		temp, err := s.tokens.IssuePreAuth(user)
		if err != nil {
			return nil, fmt.Errorf("failed to issue pre-auth token: %w", err)
		}
		s.metrics.ObserveLogin(metrics.LoginTwoFactorRequired)
		return &LoginResult{RequiresTwoFactor: true, TempToken: temp, User: user}, nil
	}

	token, err := s.tokens.IssueSession(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}
	s.activity.record(ctx, user.ID, model.ActivityLogin, user.ID, "User logged in")
	s.metrics.ObserveLogin(metrics.LoginSuccess)
	return &LoginResult{Token: token, User: user}, nil
}

// VerifyLoginTwoFactor exchanges a pre-auth token and a TOTP code for a session
func (s *AuthService) VerifyLoginTwoFactor(ctx context.Context, tempToken, code string) (*AuthResult, error) {
	if tempToken == "" || code == "" {
		return nil, fmt.Errorf("%w: tempToken and token are required", ErrValidation)
	}

	claims, err := s.tokens.VerifyPreAuth(tempToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTwoFactorNotEnabled
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !user.TwoFactorEnabled || !user.HasTwoFactorSecret() {
		return nil, ErrTwoFactorNotEnabled
	}

	if !s.totp.VerifyCode(*user.TwoFactorSecret, code) {
		s.metrics.ObserveTwoFactor(metrics.TwoFactorInvalidCode)
		return nil, ErrInvalidCode
	}

	token, err := s.tokens.IssueSession(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}
	s.activity.record(ctx, user.ID, model.ActivityLogin, user.ID, "User logged in with two-factor authentication")
	s.metrics.ObserveTwoFactor(metrics.TwoFactorLoginVerified)
	s.metrics.ObserveLogin(metrics.LoginSuccess)
	return &AuthResult{Token: token, User: user}, nil
}

// ValidateSession verifies a session token
func (s *AuthService) ValidateSession(token string) (*auth.TokenClaims, error) {
	return s.tokens.VerifySession(token)
}

func (s *AuthService) dummyDigest() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("whiskers-timing-equaliser")
		if err != nil {
			s.log.Error().Err(err).Msg("failed to prepare dummy digest")
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}
