package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"todo-backend/internal/models"
	"todo-backend/pkg/security"
)

// SessionMeta is what the server records about the client a refresh token was issued to.
type SessionMeta struct {
	UserAgent string
	IP        string
	ParentID  *string
}

// CredentialStore owns users and their refresh token records.
type CredentialStore struct {
	db        *gorm.DB
	passwords *security.Passwords
}

func NewCredentialStore(db *gorm.DB, passwords *security.Passwords) *CredentialStore {
	return &CredentialStore{db: db, passwords: passwords}
}

// WithTx runs fn against a store bound to a single transaction.
func (s *CredentialStore) WithTx(ctx context.Context, fn func(tx *CredentialStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&CredentialStore{db: tx, passwords: s.passwords})
	})
}

// CreateUser inserts a user. Emails are normalized first so the unique index
// rejects duplicates that differ only in case.
func (s *CredentialStore) CreateUser(ctx context.Context, email, passwordHash, name string) (*models.User, error) {
	user := models.User{
		Email:        models.NormalizeEmail(email),
		PasswordHash: passwordHash,
		Name:         name,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

func (s *CredentialStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Where("email = ?", models.NormalizeEmail(email)).
		First(&user).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *CredentialStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *CredentialStore) VerifyPassword(plain, hash string) bool {
	return s.passwords.Check(hash, plain)
}

func (s *CredentialStore) StoreRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time, meta SessionMeta) (*models.RefreshToken, error) {
	rec := models.RefreshToken{
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt.UTC(),
		ParentID:  meta.ParentID,
		UserAgent: meta.UserAgent,
		IP:        meta.IP,
	}
	if err := s.db.WithContext(ctx).Omit("User").Create(&rec).Error; err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return &rec, nil
}

// FindActiveRefreshToken returns the record for tokenHash only while it is
// unrevoked and expires strictly after now.
func (s *CredentialStore) FindActiveRefreshToken(ctx context.Context, tokenHash string, now time.Time) (*models.RefreshToken, error) {
	var rec models.RefreshToken
	err := s.db.WithContext(ctx).
		Where("token_hash = ? AND revoked_at IS NULL AND expires_at > ?", tokenHash, now.UTC()).
		First(&rec).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &rec, nil
}

// RevokeRefreshToken stamps revoked_at once. Revoking an already revoked
// record is a no-op, so concurrent revocations converge. Logout uses it.
func (s *CredentialStore) RevokeRefreshToken(ctx context.Context, tokenID string, now time.Time) error {
	err := s.db.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("id = ? AND revoked_at IS NULL", tokenID).
		Update("revoked_at", now.UTC()).Error
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeAllForUser revokes every active refresh token of a user and reports how many changed.
func (s *CredentialStore) RevokeAllForUser(ctx context.Context, userID string, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", now.UTC())
	if res.Error != nil {
		return 0, fmt.Errorf("revoke user tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// RevokeIfActive revokes tokenID only while it is still active and reports
// whether this call was the one that revoked it. Rotation needs that answer
// so two concurrent refreshes cannot both mint a successor.
func (s *CredentialStore) RevokeIfActive(ctx context.Context, tokenID string, now time.Time) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("id = ? AND revoked_at IS NULL AND expires_at > ?", tokenID, now.UTC()).
		Update("revoked_at", now.UTC())
	if res.Error != nil {
		return false, fmt.Errorf("revoke refresh token: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}
