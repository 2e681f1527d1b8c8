package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/labforge/labportal/internal/models"
)

// AuditPageSize is the fixed page size for the admin audit log view.
const AuditPageSize = 50

// AuditEntry carries the fields of an event to record. UserID is nil for
// events with no resolvable account, e.g. login attempts against unknown
// usernames.
type AuditEntry struct {
	UserID       *uint
	Action       string
	ResourceType string
	ResourceID   string
	Details      string
	IPAddress    string
	UserAgent    string
}

// AuditService appends immutable entries for security-relevant events. Every
// such event in the portal goes through Record; routes never write audit rows
// directly.
type AuditService struct {
	db *gorm.DB
}

// NewAuditService creates an AuditService bound to the store.
func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

// Record appends an entry stamped with the current time. A persistence
// failure is returned to the caller: audit completeness is a security
// property and must never be swallowed.
func (s *AuditService) Record(e AuditEntry) (*models.AuditLog, error) {
	entry := models.AuditLog{
		UserID:       e.UserID,
		Action:       e.Action,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		Details:      e.Details,
		IPAddress:    e.IPAddress,
		UserAgent:    e.UserAgent,
		Timestamp:    time.Now(),
	}
	if err := s.db.Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("record audit entry: %w", err)
	}
	return &entry, nil
}

// Recent returns the n most recent entries, newest first.
func (s *AuditService) Recent(n int) ([]models.AuditLog, error) {
	var entries []models.AuditLog
	if err := s.db.Order("timestamp desc").Limit(n).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Page returns one page of entries (newest first) plus the total count. Pages
// are 1-based; out-of-range pages return an empty slice, not an error.
func (s *AuditService) Page(page int) ([]models.AuditLog, int64, error) {
	if page < 1 {
		page = 1
	}

	var total int64
	if err := s.db.Model(&models.AuditLog{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.AuditLog
	err := s.db.Order("timestamp desc").
		Offset((page - 1) * AuditPageSize).
		Limit(AuditPageSize).
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// Count returns the total number of audit entries.
func (s *AuditService) Count() (int64, error) {
	var total int64
	err := s.db.Model(&models.AuditLog{}).Count(&total).Error
	return total, err
}
