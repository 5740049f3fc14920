package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/iuliaszarics/WhiskersWonderland/internal/auth"
	"github.com/iuliaszarics/WhiskersWonderland/internal/config"
	"github.com/iuliaszarics/WhiskersWonderland/internal/email"
	"github.com/iuliaszarics/WhiskersWonderland/internal/logger"
	"github.com/iuliaszarics/WhiskersWonderland/internal/metrics"
	"github.com/iuliaszarics/WhiskersWonderland/internal/model"
	"github.com/iuliaszarics/WhiskersWonderland/internal/repository"
)

// Two-factor errors
var (
	ErrInvalidCode             = errors.New("invalid two-factor code")
	ErrNotSetUp                = errors.New("two-factor authentication is not set up")
	ErrTwoFactorNotEnabled     = errors.New("two-factor authentication is not enabled")
	ErrTwoFactorAlreadyEnabled = errors.New("two-factor authentication is already enabled")
)

const notifyTimeout = 30 * time.Second

// TwoFactorService manages TOTP enrollment for signed-in users.
//
// Enrollment is two-step: BeginEnrollment stores a pending secret while the
// enabled flag stays false, and ConfirmEnrollment flips the flag once a code
// generated from that secret is presented.
type TwoFactorService struct {
	users    UserStore
	activity activityRecorder
	totp     *auth.TOTP
	sender   email.Sender
	metrics  *metrics.Metrics
	appName  string
	log      *logger.Logger
	pending  sync.WaitGroup
}

// NewTwoFactorService creates a new TwoFactorService
func NewTwoFactorService(
	users UserStore,
	activities ActivityStore,
	totp *auth.TOTP,
	sender email.Sender,
	met *metrics.Metrics,
	cfg *config.Config,
	log *logger.Logger,
) *TwoFactorService {
	log = log.WithComponent("two_factor_service")
	if sender == nil {
		sender = email.NopSender{}
	}
	appName := cfg.Email.AppName
	if appName == "" {
		appName = cfg.App.Name
	}
	return &TwoFactorService{
		users:    users,
		activity: activityRecorder{store: activities, log: log},
		totp:     totp,
		sender:   sender,
		metrics:  met,
		appName:  appName,
		log:      log,
	}
}

// BeginEnrollment generates a new secret for the user, replacing any
// pending one, and returns it with its QR code.
func (s *TwoFactorService) BeginEnrollment(ctx context.Context, userID int64) (*model.TwoFactorSetup, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TwoFactorEnabled {
		return nil, ErrTwoFactorAlreadyEnabled
	}

	secret, err := s.totp.GenerateSecret(user.Email)
	if err != nil {
		return nil, err
	}
	qr, err := s.totp.RenderProvisioningImage(secret.URL)
	if err != nil {
		return nil, err
	}

	if err := s.users.SetTwoFactorSecret(ctx, user.ID, secret.Secret); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to store two-factor secret: %w", err)
	}

	s.metrics.ObserveTwoFactor(metrics.TwoFactorSetup)
	s.log.Info().Int64("user_id", user.ID).Msg("two-factor enrollment started")

	return &model.TwoFactorSetup{Secret: secret.Secret, QRCode: qr}, nil
}

// ConfirmEnrollment enables two-factor authentication once code matches the
// pending secret. Confirming an already enabled account is a no-op success.
func (s *TwoFactorService) ConfirmEnrollment(ctx context.Context, userID int64, code string) error {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}
	if !user.HasTwoFactorSecret() {
		return ErrNotSetUp
	}
	if !s.totp.VerifyCode(*user.TwoFactorSecret, code) {
		s.metrics.ObserveTwoFactor(metrics.TwoFactorInvalidCode)
		return ErrInvalidCode
	}
	if user.TwoFactorEnabled {
		return nil
	}

	if err := s.users.EnableTwoFactor(ctx, user.ID, *user.TwoFactorSecret); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// The pending secret was replaced or cleared after the code was checked.
			return ErrNotSetUp
		}
		return fmt.Errorf("failed to enable two-factor: %w", err)
	}

	s.activity.record(ctx, user.ID, model.ActivityTwoFactorEnabled, user.ID, "Two-factor authentication enabled")
	s.metrics.ObserveTwoFactor(metrics.TwoFactorEnabled)
	s.notify(ctx, user, true)
	return nil
}

// DisableEnrollment clears the secret after checking a current code
func (s *TwoFactorService) DisableEnrollment(ctx context.Context, userID int64, code string) error {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}
	if !user.TwoFactorEnabled || !user.HasTwoFactorSecret() {
		return ErrTwoFactorNotEnabled
	}
	if !s.totp.VerifyCode(*user.TwoFactorSecret, code) {
		s.metrics.ObserveTwoFactor(metrics.TwoFactorInvalidCode)
		return ErrInvalidCode
	}

	if err := s.users.DisableTwoFactor(ctx, user.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to disable two-factor: %w", err)
	}

	s.activity.record(ctx, user.ID, model.ActivityTwoFactorDisabled, user.ID, "Two-factor authentication disabled")
	s.metrics.ObserveTwoFactor(metrics.TwoFactorDisabled)
	s.notify(ctx, user, false)
	return nil
}

// Status reports whether two-factor authentication is enabled
func (s *TwoFactorService) Status(ctx context.Context, userID int64) (bool, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.TwoFactorEnabled, nil
}

func (s *TwoFactorService) getUser(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// Wait blocks until queued two-factor notices have been sent or given up
func (s *TwoFactorService) Wait() {
	s.pending.Wait()
}

// notify sends the change notice in the background, detached from the
// request but bounded by notifyTimeout.
func (s *TwoFactorService) notify(ctx context.Context, user *model.User, enabled bool) {
	msg := email.TwoFactorChange(user.Email, user.Username, s.appName, enabled)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer cancel()
		if err := s.sender.Send(ctx, msg); err != nil {
			s.log.Warn().Err(err).Int64("user_id", user.ID).Msg("failed to send two-factor notice")
		}
	}()
}
