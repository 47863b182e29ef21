package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const minSecretLength = 32

// Settings is everything the server reads from its environment.
type Settings struct {
	Port                string
	DatabaseURL         string
	JWTSecret           string
	AccessTokenTTL      time.Duration
	RefreshTokenDays    int
	RotateRefreshTokens bool
	BcryptCost          int
	LogLevel            string
	LogPretty           bool
	AuthRateLimit       int
	CORSOrigin          string
}

// RefreshTokenTTL is RefreshTokenDays expressed as a duration.
func (s Settings) RefreshTokenTTL() time.Duration {
	return time.Duration(s.RefreshTokenDays) * 24 * time.Hour
}

// LoadDotEnv loads .env into the process environment when the file exists.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	_ = godotenv.Load(files...)
}

// Load reads Settings through getEnv, applying defaults and validating.
func Load(getEnv func(string) string) (Settings, error) {
	s := Settings{
		Port:        strings.TrimSpace(getEnv("PORT")),
		DatabaseURL: strings.TrimSpace(getEnv("DATABASE_URL")),
		JWTSecret:   getEnv("JWT_SECRET"),
		LogLevel:    strings.TrimSpace(getEnv("LOG_LEVEL")),
		CORSOrigin:  strings.TrimSpace(getEnv("CORS_ORIGIN")),
	}
	if s.Port == "" {
		s.Port = "8080"
	}
	if s.DatabaseURL == "" {
		s.DatabaseURL = ":memory:"
	}
	if s.LogLevel == "" {
		s.LogLevel = "info"
	}
	if s.CORSOrigin == "" {
		s.CORSOrigin = "*"
	}

	var errs []error
	if len(s.JWTSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d characters", minSecretLength))
	}

	var err error
	if s.AccessTokenTTL, err = ParseTTL(getEnv("ACCESS_TOKEN_TTL"), 24*time.Hour); err != nil {
		errs = append(errs, fmt.Errorf("ACCESS_TOKEN_TTL: %w", err))
	}
	if s.RefreshTokenDays, err = intOr(getEnv("REFRESH_TOKEN_DAYS"), 30); err != nil || s.RefreshTokenDays <= 0 {
		errs = append(errs, errors.New("REFRESH_TOKEN_DAYS must be a positive integer"))
	}
	if s.BcryptCost, err = intOr(getEnv("BCRYPT_COST"), 12); err != nil || s.BcryptCost < 4 || s.BcryptCost > 31 {
		errs = append(errs, errors.New("BCRYPT_COST must be between 4 and 31"))
	}
	if s.AuthRateLimit, err = intOr(getEnv("AUTH_RATE_LIMIT"), 30); err != nil || s.AuthRateLimit < 0 {
		errs = append(errs, errors.New("AUTH_RATE_LIMIT must be a non-negative integer"))
	}
	if s.RotateRefreshTokens, err = boolOr(getEnv("REFRESH_TOKEN_ROTATE"), false); err != nil {
		errs = append(errs, fmt.Errorf("REFRESH_TOKEN_ROTATE: %w", err))
	}
	if s.LogPretty, err = boolOr(getEnv("LOG_PRETTY"), false); err != nil {
		errs = append(errs, fmt.Errorf("LOG_PRETTY: %w", err))
	}

	return s, errors.Join(errs...)
}

// ParseTTL accepts Go durations ("15m", "24h") plus whole days ("7d").
func ParseTTL(raw string, def time.Duration) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	var d time.Duration
	if days, ok := strings.CutSuffix(raw, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", raw)
		}
		d = time.Duration(n) * 24 * time.Hour
	} else {
		var err error
		if d, err = time.ParseDuration(raw); err != nil {
			return 0, err
		}
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration %q must be positive", raw)
	}
	return d, nil
}

func intOr(raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func boolOr(raw string, def bool) (bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	return strconv.ParseBool(raw)
}
