package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/labforge/labportal/internal/config"
	"github.com/labforge/labportal/internal/logger"
	"github.com/labforge/labportal/internal/models"
	"github.com/labforge/labportal/internal/pamauth"
)

// Reason classifies why an authentication attempt succeeded or failed. It is
// for auditing and tests only and is never disclosed to the caller of the
// HTTP API.
type Reason string

const (
	ReasonOK                Reason = "ok"
	ReasonUnknownUser       Reason = "unknown_user"
	ReasonBadCredentials    Reason = "bad_credentials"
	ReasonAccountDisabled   Reason = "account_disabled"
	ReasonExternalAuthError Reason = "external_auth_error"
)

// Verdict is the structured result of an authentication attempt. User is nil
// only when the username matched no record.
type Verdict struct {
	Success bool
	User    *models.User
	Reason  Reason
}

// ErrInvalidToken is returned for malformed, forged or expired session tokens.
var ErrInvalidToken = errors.New("invalid token")

// AuthService decides authentication attempts and mints session tokens. The
// Authenticate decision itself is side-effect free: auditing, last-login
// bookkeeping and session establishment are the caller's responsibility.
type AuthService struct {
	db     *gorm.DB
	cfg    config.Config
	oracle pamauth.Oracle
}

// NewAuthService wires the authenticator to its credential store and host
// authentication oracle.
func NewAuthService(db *gorm.DB, cfg config.Config, oracle pamauth.Oracle) *AuthService {
	return &AuthService{db: db, cfg: cfg, oracle: oracle}
}

// Authenticate resolves a (username, secret) pair to a Verdict. Delegated
// accounts are verified by the host oracle under a deadline; local accounts
// by bcrypt comparison. A correct secret never authenticates a disabled
// account.
func (s *AuthService) Authenticate(ctx context.Context, username, secret string) Verdict {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		return Verdict{Reason: ReasonUnknownUser}
	}

	switch user.AuthModeOf() {
	case models.AuthModeDelegated:
		ok, err := s.oracle.Authenticate(ctx, username, secret)
		if err != nil {
			// Operational failure, not a bad secret. Logged distinctly so the
			// operator can tell a PAM outage from a typo storm.
			logger.WithFields(map[string]interface{}{
				"username": username,
				"service":  s.cfg.PAMService,
			}).WithError(err).Error("host authentication unavailable")
			return Verdict{User: &user, Reason: ReasonExternalAuthError}
		}
		if !ok {
			return Verdict{User: &user, Reason: ReasonBadCredentials}
		}
	default:
		if !user.CheckPassword(secret) {
			return Verdict{User: &user, Reason: ReasonBadCredentials}
		}
	}

	if !user.Active {
		return Verdict{User: &user, Reason: ReasonAccountDisabled}
	}

	return Verdict{Success: true, User: &user, Reason: ReasonOK}
}

// Claims is the JWT payload bound to a session.
type Claims struct {
	UserID   uint   `json:"uid"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// IssueToken mints a signed session token for the user. The remember flag
// extends the lifetime from the session default to the remember window.
func (s *AuthService) IssueToken(user *models.User, remember bool) (string, error) {
	lifetime := s.cfg.SessionLifetime
	if remember {
		lifetime = s.cfg.RememberLifetime
	}

	now := time.Now()
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		IsAdmin:  user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UUID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies a session token.
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GetUserByID loads a user by primary key.
func (s *AuthService) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
