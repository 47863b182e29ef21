package services

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"todo-backend/internal/models"
	"todo-backend/internal/obs"
	"todo-backend/internal/store"
	"todo-backend/pkg/security"
)

const testSecret = "test-secret-test-secret-test-secret!"

// fakeClock is a settable clock shared by the issuer and the services.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"),
	)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite in-memory db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.User{}, &models.RefreshToken{}, &models.Todo{}); err != nil {
		t.Fatalf("failed to migrate models: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

type authFixture struct {
	svc     *AuthService
	creds   *store.CredentialStore
	issuer  *security.Issuer
	clock   *fakeClock
	metrics *obs.Metrics
	db      *gorm.DB
}

func newAuthFixture(t *testing.T, rotate bool) *authFixture {
	t.Helper()
	db := setupServiceTestDB(t)
	clock := newFakeClock()
	passwords := security.NewPasswords(bcrypt.MinCost)
	creds := store.NewCredentialStore(db, passwords)
	issuer := security.NewIssuer(testSecret, 15*time.Minute, clock.Now)
	metrics := obs.NewMetrics()
	svc := NewAuthService(creds, issuer, passwords, AuthConfig{
		RefreshTTL:          30 * 24 * time.Hour,
		RotateRefreshTokens: rotate,
		Now:                 clock.Now,
	}, nil, metrics)
	return &authFixture{svc: svc, creds: creds, issuer: issuer, clock: clock, metrics: metrics, db: db}
}
