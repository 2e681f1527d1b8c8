package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/labforge/labportal/internal/config"
	"github.com/labforge/labportal/internal/models"
)

var (
	// ErrDuplicateUsername and ErrDuplicateEmail surface uniqueness conflicts
	// as validation failures the handlers can map to field-level messages.
	ErrDuplicateUsername = errors.New("username already taken")
	ErrDuplicateEmail    = errors.New("email already registered")
	// ErrSelfDeactivation rejects an admin disabling their own account.
	ErrSelfDeactivation = errors.New("cannot deactivate your own account")
	// ErrSecretRequired is returned when an account would end up with neither
	// a stored hash nor delegated authentication.
	ErrSecretRequired = errors.New("a password is required for local authentication")
)

// RegisterInput carries the fields of a registration or admin-creation request.
type RegisterInput struct {
	Username   string
	Email      string
	FirstName  string
	LastName   string
	Password   string
	UsePAMAuth bool
}

// UserService owns account lifecycle: creation, activation and auth-mode
// toggling, and last-login bookkeeping.
type UserService struct {
	db  *gorm.DB
	cfg config.Config
}

// NewUserService creates a UserService bound to the store.
func NewUserService(db *gorm.DB, cfg config.Config) *UserService {
	return &UserService{db: db, cfg: cfg}
}

// Register creates a new account. The very first account in an empty store is
// granted admin. The count check and insert run in one transaction so two
// concurrent first registrations cannot both win the grant; the unique
// indexes on username and email back up the duplicate pre-checks.
func (s *UserService) Register(in RegisterInput) (*models.User, error) {
	if !in.UsePAMAuth && in.Password == "" {
		return nil, ErrSecretRequired
	}

	user := models.User{
		Username:   in.Username,
		Email:      in.Email,
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		UsePAMAuth: in.UsePAMAuth,
		Active:     true,
	}
	if !in.UsePAMAuth {
		if err := user.SetPassword(in.Password, s.cfg.BcryptCost); err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("username = ?", in.Username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateUsername
		}
		if err := tx.Model(&models.User{}).Where("email = ?", in.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateEmail
		}

		if err := tx.Model(&models.User{}).Count(&count).Error; err != nil {
			return err
		}
		user.IsAdmin = count == 0

		return tx.Create(&user).Error
	})
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// CreateAdmin is the privileged creation path used by operator tooling. It
// always grants admin and stores a locally hashed secret; it does not force
// delegated auth (the admins-use-PAM convention is operational, not a stored
// invariant).
func (s *UserService) CreateAdmin(in RegisterInput) (*models.User, error) {
	in.UsePAMAuth = false
	user, err := s.Register(in)
	if err != nil {
		return nil, err
	}

	if !user.IsAdmin {
		user.IsAdmin = true
		if err := s.db.Model(user).Update("is_admin", true).Error; err != nil {
			return nil, fmt.Errorf("grant admin: %w", err)
		}
	}
	return user, nil
}

// ToggleActive flips the target's active flag. A principal cannot deactivate
// itself; that is a validation failure, not a crash.
func (s *UserService) ToggleActive(actorID, targetID uint) (*models.User, error) {
	if actorID == targetID {
		return nil, ErrSelfDeactivation
	}

	var user models.User
	if err := s.db.First(&user, targetID).Error; err != nil {
		return nil, err
	}

	user.Active = !user.Active
	if err := s.db.Model(&user).Update("active", user.Active).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ToggleAuthMode flips the target between local and delegated authentication
// while keeping the invariant that exactly one of {stored hash, delegated
// flag} holds. Switching to delegated discards the hash; switching back to
// local requires a fresh secret.
func (s *UserService) ToggleAuthMode(targetID uint, newSecret string) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, targetID).Error; err != nil {
		return nil, err
	}

	if user.UsePAMAuth {
		if newSecret == "" {
			return nil, ErrSecretRequired
		}
		if err := user.SetPassword(newSecret, s.cfg.BcryptCost); err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.UsePAMAuth = false
	} else {
		user.UsePAMAuth = true
		user.PasswordHash = ""
	}

	updates := map[string]interface{}{
		"use_pam_auth":  user.UsePAMAuth,
		"password_hash": user.PasswordHash,
	}
	if err := s.db.Model(&user).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// TouchLastLogin stamps a successful login. Called only after a success
// verdict; failures never mutate the user row.
func (s *UserService) TouchLastLogin(userID uint) error {
	now := time.Now()
	return s.db.Model(&models.User{}).Where("id = ?", userID).Update("last_login_at", &now).Error
}

// GetByID loads a user by primary key.
func (s *UserService) GetByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByUsername loads a user by exact username match.
func (s *UserService) GetByUsername(username string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns all users, newest first.
func (s *UserService) List() ([]models.User, error) {
	var users []models.User
	if err := s.db.Order("created_at desc").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// Stats returns the counters shown on the admin dashboard.
func (s *UserService) Stats() (total, active, admins int64, err error) {
	if err = s.db.Model(&models.User{}).Count(&total).Error; err != nil {
		return
	}
	if err = s.db.Model(&models.User{}).Where("active = ?", true).Count(&active).Error; err != nil {
		return
	}
	err = s.db.Model(&models.User{}).Where("is_admin = ?", true).Count(&admins).Error
	return
}

// Delete removes a user by username. Operator escape hatch only; the admin UI
// toggles state instead of deleting. Audit entries keep their back-reference.
func (s *UserService) Delete(username string) error {
	res := s.db.Where("username = ?", username).Delete(&models.User{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
