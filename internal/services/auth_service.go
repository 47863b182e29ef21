package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"todo-backend/internal/apperr"
	"todo-backend/internal/models"
	"todo-backend/internal/obs"
	"todo-backend/internal/store"
	"todo-backend/pkg/schema"
	"todo-backend/pkg/security"
)

// bcrypt ignores input past 72 bytes.
const maxPasswordBytes = 72

type RegisterInput struct {
	Email    string            `json:"email" validate:"required,email,max=320"`
	Password string            `json:"password" validate:"required,min=8"`
	Name     string            `json:"name" validate:"required,max=100"`
	Meta     store.SessionMeta `json:"-"`
}

type LoginInput struct {
	Email    string            `json:"email" validate:"required,email"`
	Password string            `json:"password" validate:"required"`
	Meta     store.SessionMeta `json:"-"`
}

type AuthConfig struct {
	RefreshTTL time.Duration
	// RotateRefreshTokens replaces the refresh token on every refresh instead
	// of handing the same one back.
	RotateRefreshTokens bool
	Now                 func() time.Time
}

// AuthService runs the register/login/refresh/logout lifecycle.
type AuthService struct {
	creds     *store.CredentialStore
	issuer    *security.Issuer
	passwords *security.Passwords
	validate  *validator.Validate
	cfg       AuthConfig
	log       *zap.Logger
	metrics   *obs.Metrics
}

func NewAuthService(
	creds *store.CredentialStore,
	issuer *security.Issuer,
	passwords *security.Passwords,
	cfg AuthConfig,
	log *zap.Logger,
	metrics *obs.Metrics,
) *AuthService {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 30 * 24 * time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		creds:     creds,
		issuer:    issuer,
		passwords: passwords,
		validate:  newValidator(),
		cfg:       cfg,
		log:       log.Named("auth"),
		metrics:   metrics,
	}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*schema.AuthResponse, error) {
	in.Email = models.NormalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := validate(s.validate, in); err != nil {
		s.metrics.AuthEvent("register", obs.OutcomeRejected)
		return nil, err
	}
	if len(in.Password) > maxPasswordBytes {
		s.metrics.AuthEvent("register", obs.OutcomeRejected)
		return nil, apperr.Validation("password must be at most 72 bytes")
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, s.internal("register", "hash password", err)
	}

	// The user row and its first session commit together, so a failed
	// session leaves no account behind.
	var (
		user *models.User
		resp *schema.AuthResponse
	)
	err = s.creds.WithTx(ctx, func(tx *store.CredentialStore) error {
		var err error
		if user, err = tx.CreateUser(ctx, in.Email, hash, in.Name); err != nil {
			return err
		}
		resp, err = s.openSession(ctx, tx, user, in.Meta)
		return err
	})
	if errors.Is(err, store.ErrEmailExists) {
		s.metrics.AuthEvent("register", obs.OutcomeRejected)
		return nil, apperr.EmailExists()
	}
	if err != nil {
		return nil, s.internal("register", "create account", err)
	}
	s.metrics.AuthEvent("register", obs.OutcomeOK)
	s.log.Info("user registered", zap.String("user_id", user.ID))
	return resp, nil
}

// Login fails the same way for an unknown email and a wrong password, and
// spends the same bcrypt time on both.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*schema.AuthResponse, error) {
	in.Email = models.NormalizeEmail(in.Email)
	if err := validate(s.validate, in); err != nil {
		s.metrics.AuthEvent("login", obs.OutcomeRejected)
		return nil, err
	}

	user, err := s.creds.FindUserByEmail(ctx, in.Email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.passwords.CheckMissing(in.Password)
		s.metrics.AuthEvent("login", obs.OutcomeRejected)
		return nil, apperr.InvalidCredentials()
	case err != nil:
		return nil, s.internal("login", "find user", err)
	}

	if !s.creds.VerifyPassword(in.Password, user.PasswordHash) {
		s.metrics.AuthEvent("login", obs.OutcomeRejected)
		return nil, apperr.InvalidCredentials()
	}

	resp, err := s.openSession(ctx, s.creds, user, in.Meta)
	if err != nil {
		return nil, s.internal("login", "open session", err)
	}
	s.metrics.AuthEvent("login", obs.OutcomeOK)
	return resp, nil
}

// Refresh mints a new access token for an active refresh token. Unknown,
// revoked and expired tokens all fail with the same error.
func (s *AuthService) Refresh(ctx context.Context, rawRefreshToken string, meta store.SessionMeta) (*schema.AuthResponse, error) {
	if strings.TrimSpace(rawRefreshToken) == "" {
		s.metrics.AuthEvent("refresh", obs.OutcomeRejected)
		return nil, apperr.Validation("refreshToken is required")
	}
	now := s.cfg.Now()

	rec, err := s.creds.FindActiveRefreshToken(ctx, security.HashToken(rawRefreshToken), now)
	if errors.Is(err, store.ErrNotFound) {
		s.metrics.AuthEvent("refresh", obs.OutcomeRejected)
		return nil, apperr.InvalidToken()
	}
	if err != nil {
		return nil, s.internal("refresh", "find token", err)
	}
	if !rec.IsActive(now) {
		s.metrics.AuthEvent("refresh", obs.OutcomeRejected)
		return nil, apperr.InvalidToken()
	}

	user, err := s.creds.FindUserByID(ctx, rec.UserID)
	if errors.Is(err, store.ErrNotFound) {
		s.metrics.AuthEvent("refresh", obs.OutcomeRejected)
		return nil, apperr.InvalidToken()
	}
	if err != nil {
		return nil, s.internal("refresh", "find user", err)
	}

	var resp *schema.AuthResponse
	if s.cfg.RotateRefreshTokens {
		resp, err = s.rotate(ctx, rec, user, meta, now)
	} else {
		resp, err = s.reissueAccess(user, rawRefreshToken)
	}
	if err != nil {
		if apperr.Is(err, apperr.KindInvalidToken) {
			s.metrics.AuthEvent("refresh", obs.OutcomeRejected)
			return nil, err
		}
		return nil, s.internal("refresh", "issue tokens", err)
	}
	s.metrics.AuthEvent("refresh", obs.OutcomeOK)
	return resp, nil
}

func (s *AuthService) reissueAccess(user *models.User, rawRefreshToken string) (*schema.AuthResponse, error) {
	token, err := s.issuer.IssueAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &schema.AuthResponse{Token: token, RefreshToken: rawRefreshToken, User: user.Public()}, nil
}

// rotate revokes the presented record and issues its successor atomically.
// Of two concurrent rotations of the same token only one succeeds.
func (s *AuthService) rotate(ctx context.Context, rec *models.RefreshToken, user *models.User, meta store.SessionMeta, now time.Time) (*schema.AuthResponse, error) {
	var resp *schema.AuthResponse
	err := s.creds.WithTx(ctx, func(tx *store.CredentialStore) error {
		revoked, err := tx.RevokeIfActive(ctx, rec.ID, now)
		if err != nil {
			return err
		}
		if !revoked {
			return apperr.InvalidToken()
		}
		parent := rec.ID
		meta.ParentID = &parent
		resp, err = s.openSession(ctx, tx, user, meta)
		return err
	})
	return resp, err
}

// Logout revokes an active refresh token. A token that is already revoked
// fails like any other invalid token.
func (s *AuthService) Logout(ctx context.Context, rawRefreshToken string) error {
	if strings.TrimSpace(rawRefreshToken) == "" {
		s.metrics.AuthEvent("logout", obs.OutcomeRejected)
		return apperr.Validation("refreshToken is required")
	}
	now := s.cfg.Now()

	rec, err := s.creds.FindActiveRefreshToken(ctx, security.HashToken(rawRefreshToken), now)
	if errors.Is(err, store.ErrNotFound) {
		s.metrics.AuthEvent("logout", obs.OutcomeRejected)
		return apperr.InvalidToken()
	}
	if err != nil {
		return s.internal("logout", "find token", err)
	}
	if !rec.IsActive(now) {
		s.metrics.AuthEvent("logout", obs.OutcomeRejected)
		return apperr.InvalidToken()
	}

	// A concurrent logout of the same token converges on one revoked_at.
	if err := s.creds.RevokeRefreshToken(ctx, rec.ID, now); err != nil {
		return s.internal("logout", "revoke token", err)
	}
	s.metrics.AuthEvent("logout", obs.OutcomeOK)
	return nil
}

// LogoutAll revokes every active refresh token of the user.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) error {
	n, err := s.creds.RevokeAllForUser(ctx, userID, s.cfg.Now())
	if err != nil {
		return s.internal("logout_all", "revoke tokens", err)
	}
	s.metrics.AuthEvent("logout_all", obs.OutcomeOK)
	s.log.Info("all sessions revoked", zap.String("user_id", userID), zap.Int64("count", n))
	return nil
}

func (s *AuthService) Me(ctx context.Context, userID string) (*schema.User, error) {
	user, err := s.creds.FindUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.InvalidToken()
	}
	if err != nil {
		return nil, s.internal("me", "find user", err)
	}
	pub := user.Public()
	return &pub, nil
}

// openSession mints an access token and a refresh token for user, persisting
// only the refresh token's hash through creds.
func (s *AuthService) openSession(ctx context.Context, creds *store.CredentialStore, user *models.User, meta store.SessionMeta) (*schema.AuthResponse, error) {
	raw, err := security.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}
	expiresAt := s.cfg.Now().Add(s.cfg.RefreshTTL)
	if _, err := creds.StoreRefreshToken(ctx, user.ID, security.HashToken(raw), expiresAt, meta); err != nil {
		return nil, err
	}
	token, err := s.issuer.IssueAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &schema.AuthResponse{Token: token, RefreshToken: raw, User: user.Public()}, nil
}

func (s *AuthService) internal(op, step string, err error) error {
	s.metrics.AuthEvent(op, obs.OutcomeError)
	s.log.Error(op+" failed", zap.String("step", step), zap.Error(err))
	return apperr.Internal(err)
}
