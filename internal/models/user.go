package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthMode describes how a user's secret is verified.
type AuthMode string

const (
	// AuthModeLocal verifies secrets against a bcrypt hash stored with the user.
	AuthModeLocal AuthMode = "local"
	// AuthModeDelegated defers verification to the host's PAM service.
	AuthModeDelegated AuthMode = "pam"
)

// User represents a portal account. Exactly one of PasswordHash (non-empty)
// or UsePAMAuth (true) holds for every persisted row: delegated accounts
// never store a secret.
type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UUID      string    `json:"uuid" gorm:"uniqueIndex;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Username  string `json:"username" gorm:"uniqueIndex;not null"`
	Email     string `json:"email" gorm:"uniqueIndex;not null"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`

	PasswordHash string `json:"-"` // Never expose in JSON
	UsePAMAuth   bool   `json:"use_pam_auth" gorm:"default:false"`

	IsAdmin bool `json:"is_admin" gorm:"default:false"`
	Active  bool `json:"active" gorm:"default:true"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty"`

	AuditLogs []AuditLog `json:"-" gorm:"foreignKey:UserID"`
}

// BeforeCreate generates a UUID for new users.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UUID == "" {
		u.UUID = uuid.New().String()
	}
	return nil
}

// AuthModeOf returns the verification mode for this account.
func (u *User) AuthModeOf() AuthMode {
	if u.UsePAMAuth {
		return AuthModeDelegated
	}
	return AuthModeLocal
}

// SetPassword hashes and sets the user's password with the given bcrypt cost.
func (u *User) SetPassword(password string, cost int) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword verifies a password against the stored hash. Always false for
// delegated accounts, which have no hash to compare against.
func (u *User) CheckPassword(password string) bool {
	if u.UsePAMAuth || u.PasswordHash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

// FullName joins first and last name for display.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
