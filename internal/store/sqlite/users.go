package sqlite

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/bookhavenapp/bookhaven-server/internal/domain"
	"github.com/bookhavenapp/bookhaven-server/internal/store"
)

// CreateUser inserts a new user into the database.
// Returns store.ErrEmailExists on duplicate email.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	row := userRow{
		ID:             user.ID,
		Email:          user.Email,
		EmailLower:     normalizeEmail(user.Email),
		PasswordHash:   user.PasswordHash,
		AuthToken:      user.AuthToken,
		TokenExpiresAt: user.TokenExpiresAt,
		CreatedAt:      user.CreatedAt,
		UpdatedAt:      user.UpdatedAt,
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return store.ErrEmailExists
		}
		return err
	}
	return nil
}

// GetUserByEmail retrieves a user by email, case-insensitively.
// Returns store.ErrUserNotFound if no user matches.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var row userRow
	err := s.db.WithContext(ctx).
		Where("email_lower = ?", normalizeEmail(email)).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return toDomainUser(&row), nil
}

// GetUserByToken retrieves the user holding the given auth token.
// Expiry is not checked here. Returns store.ErrUserNotFound if no user matches.
func (s *Store) GetUserByToken(ctx context.Context, token string) (*domain.User, error) {
	var row userRow
	err := s.db.WithContext(ctx).
		Where("auth_token = ?", token).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return toDomainUser(&row), nil
}

// HasToken reports whether any user currently stores the given token.
func (s *Store) HasToken(ctx context.Context, token string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&userRow{}).
		Where("auth_token = ?", token).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// SetAuthToken writes the token and expiry columns for one user in a single
// UPDATE statement, skipping model hooks and unrelated field validation.
// Returns store.ErrTokenExists on token collision and store.ErrUserNotFound
// if the user row is gone.
func (s *Store) SetAuthToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	res := s.db.WithContext(ctx).
		Model(&userRow{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"auth_token":       token,
			"token_expires_at": expiresAt,
			"updated_at":       time.Now(),
		})
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return store.ErrTokenExists
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrUserNotFound
	}
	return nil
}

// ClearAuthToken nulls the token and expiry columns for one user in a
// single UPDATE. Clearing an already-clear user is a no-op, not an error.
func (s *Store) ClearAuthToken(ctx context.Context, userID string) error {
	res := s.db.WithContext(ctx).
		Model(&userRow{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"auth_token":       nil,
			"token_expires_at": nil,
			"updated_at":       time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrUserNotFound
	}
	return nil
}

// SweepExpiredTokens bulk-clears token and expiry for every user whose
// expiry is strictly before now. Returns the number of rows cleared.
func (s *Store) SweepExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&userRow{}).
		Where("token_expires_at < ?", now).
		Updates(map[string]any{
			"auth_token":       nil,
			"token_expires_at": nil,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
