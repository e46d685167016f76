package session

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Config struct {
	Secret string
	TTL    time.Duration
	Issuer string
}

// ConfigFromEnv reads token settings from SESSION_SECRET, SESSION_TTL and SESSION_ISSUER.
func ConfigFromEnv() Config {
	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		// development default; override in any deployed environment
		secret = "dev-session-secret-change-me"
	}
	ttl := 15 * time.Minute
	if v, err := time.ParseDuration(os.Getenv("SESSION_TTL")); err == nil && v > 0 {
		ttl = v
	}
	iss := os.Getenv("SESSION_ISSUER")
	if iss == "" {
		iss = "pitchfork-signup"
	}
	return Config{Secret: secret, TTL: ttl, Issuer: iss}
}

// Claims carried in an issued session token.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Service signs HS256 session tokens for the login endpoint.
type Service struct {
	key    []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

func NewService(cfg Config) (*Service, error) {
	if cfg.Secret == "" {
		return nil, errors.New("session secret is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 15 * time.Minute
	}
	return &Service{key: []byte(cfg.Secret), ttl: cfg.TTL, issuer: cfg.Issuer, now: time.Now}, nil
}

// Issue creates a signed token for the given identity.
func (s *Service) Issue(subject, email string) (*Session, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.key)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}
	return &Session{Token: signed, Subject: subject, ExpiresAt: exp}, nil
}
