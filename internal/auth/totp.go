package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/iuliaszarics/WhiskersWonderland/internal/config"
)

// ErrRenderImage is returned when a provisioning URI cannot be drawn as a QR code
var ErrRenderImage = errors.New("could not render code")

const (
	totpDigits        = otp.DigitsSix
	defaultTOTPPeriod = 30
	defaultTOTPSkew   = 1
	defaultImageSize  = 256
)

// TOTPSecret is a freshly generated shared secret and its otpauth:// URI
type TOTPSecret struct {
	Secret string
	URL    string
}

// TOTP generates and verifies RFC 6238 codes
type TOTP struct {
	issuer    string
	period    uint
	skew      uint
	imageSize int
	now       func() time.Time
}

// NewTOTP builds the engine from config, filling zero values with defaults
func NewTOTP(cfg config.TwoFactorConfig) *TOTP {
	t := &TOTP{
		issuer:    cfg.Issuer,
		period:    cfg.Period,
		skew:      cfg.Skew,
		imageSize: cfg.ImageSize,
		now:       time.Now,
	}
	if t.issuer == "" {
		t.issuer = "WhiskersWonderland"
	}
	if t.period == 0 {
		t.period = defaultTOTPPeriod
	}
	if t.skew == 0 {
		t.skew = defaultTOTPSkew
	}
	if t.imageSize <= 0 {
		t.imageSize = defaultImageSize
	}
	return t
}

// SetClock overrides the time source
func (t *TOTP) SetClock(now func() time.Time) {
	t.now = now
}

// GenerateSecret creates a random base32 secret labelled for accountName
func (t *TOTP) GenerateSecret(accountName string) (*TOTPSecret, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      t.issuer,
		AccountName: accountName,
		Period:      t.period,
		Digits:      totpDigits,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate TOTP key: %w", err)
	}
	return &TOTPSecret{Secret: key.Secret(), URL: key.URL()}, nil
}

// VerifyCode checks code against the current step and skew adjacent steps.
// Malformed codes are simply invalid.
func (t *TOTP) VerifyCode(secret, code string) bool {
	if secret == "" || !isDigits(code, totpDigits.Length()) {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, t.now().UTC(), t.opts())
	return err == nil && ok
}

// GenerateCode returns the code for the current step
func (t *TOTP) GenerateCode(secret string) (string, error) {
	code, err := totp.GenerateCodeCustom(secret, t.now().UTC(), t.opts())
	if err != nil {
		return "", fmt.Errorf("failed to generate TOTP code: %w", err)
	}
	return code, nil
}

// RenderProvisioningImage draws uri as a PNG QR code data URI
func (t *TOTP) RenderProvisioningImage(uri string) (string, error) {
	png, err := qrcode.Encode(uri, qrcode.Medium, t.imageSize)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRenderImage, err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

func (t *TOTP) opts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    t.period,
		Skew:      t.skew,
		Digits:    totpDigits,
		Algorithm: otp.AlgorithmSHA1,
	}
}

func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
