package models

import (
	"time"
)

// Audit actions recorded by the portal. Free-form strings by design; these
// constants cover every path the portal itself emits.
const (
	ActionLogin              = "login"
	ActionLoginFailed        = "login_failed"
	ActionLoginFailedUnknown = "login_failed_unknown"
	ActionLogout             = "logout"
	ActionRegister           = "register"
	ActionUserActivated      = "user_activated"
	ActionUserDeactivated    = "user_deactivated"
	ActionPAMEnabled         = "pam_enabled"
	ActionPAMDisabled        = "pam_disabled"
	ActionAdminCreated       = "admin_created"
	ActionAccessDenied       = "access_denied"
)

// AuditLog records a security-relevant event. Entries are append-only: once
// created they are never edited. UserID is a weak back-reference and is nil
// for attempts against unknown usernames.
type AuditLog struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	UserID       *uint     `json:"user_id" gorm:"index"`
	Action       string    `json:"action" gorm:"not null;index"`
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id"`
	Details      string    `json:"details" gorm:"type:text"`
	IPAddress    string    `json:"ip_address"`
	UserAgent    string    `json:"user_agent"`
	Timestamp    time.Time `json:"timestamp" gorm:"index"`
}
