package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iuliaszarics/WhiskersWonderland/internal/config"
	"github.com/iuliaszarics/WhiskersWonderland/internal/model"
)

// ErrInvalidToken covers bad signatures, malformed tokens, expiry and a token
// of the wrong kind.
var ErrInvalidToken = errors.New("invalid or expired token")

// TokenClaims are the claims carried by session and pre-auth tokens.
type TokenClaims struct {
	jwt.RegisteredClaims
	UserID    int64      `json:"id"`
	Username  string     `json:"username,omitempty"`
	Role      model.Role `json:"role,omitempty"`
	Temporary bool       `json:"temporary,omitempty"`
}

// TokenService signs and verifies HS256 bearer tokens.
type TokenService struct {
	cfg    config.TokenConfig
	secret []byte
	now    func() time.Time
}

// NewTokenService creates a TokenService. The signing secret must be set.
func NewTokenService(cfg config.TokenConfig) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token signing secret is not configured")
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = time.Hour
	}
	if cfg.PreAuthTTL <= 0 {
		cfg.PreAuthTTL = 5 * time.Minute
	}
	return &TokenService{
		cfg:    cfg,
		secret: []byte(cfg.Secret),
		now:    time.Now,
	}, nil
}

// SetClock overrides the time source used for issuing and verifying.
func (s *TokenService) SetClock(now func() time.Time) {
	s.now = now
}

// IssueSession signs a full session token for user.
func (s *TokenService) IssueSession(user *model.User) (string, error) {
	claims := s.baseClaims(user.ID, s.cfg.SessionTTL)
	claims.Username = user.Username
	claims.Role = user.Role
	return s.sign(claims)
}

// IssuePreAuth signs a pre-auth token proving only the password check.
func (s *TokenService) IssuePreAuth(user *model.User) (string, error) {
	claims := s.baseClaims(user.ID, s.cfg.PreAuthTTL)
	claims.Temporary = true
	return s.sign(claims)
}

// VerifySession returns the claims of a valid session token. Pre-auth tokens
// are rejected.
func (s *TokenService) VerifySession(tokenString string) (*TokenClaims, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Temporary {
		return nil, fmt.Errorf("%w: pre-auth token used as session", ErrInvalidToken)
	}
	return claims, nil
}

// VerifyPreAuth returns the claims of a valid pre-auth token. Session tokens
// are rejected.
func (s *TokenService) VerifyPreAuth(tokenString string) (*TokenClaims, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if !claims.Temporary {
		return nil, fmt.Errorf("%w: session token used as pre-auth", ErrInvalidToken)
	}
	return claims, nil
}

func (s *TokenService) baseClaims(userID int64, ttl time.Duration) *TokenClaims {
	now := s.now()
	return &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.New().String(),
		},
		UserID: userID,
	}
}

func (s *TokenService) sign(claims *TokenClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *TokenService) parse(tokenString string) (*TokenClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}

	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID <= 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
