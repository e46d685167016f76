package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	identityrepo "github.com/ovaphlow/pitchfork/service-signup/internal/identity/repo"
	"github.com/ovaphlow/pitchfork/service-signup/internal/session"
)

// Ref is the opaque, stable identifier an identity provider returns for a new identity.
type Ref string

// Provider is the external identity collaborator used by signup and login.
type Provider interface {
	CreateIdentity(ctx context.Context, email, password string) (Ref, error)
	Authenticate(ctx context.Context, email, password string) (*session.Session, error)
}

// Remover is implemented by providers able to delete an identity they created.
type Remover interface {
	DeleteIdentity(ctx context.Context, ref Ref) error
}

var (
	ErrDuplicateEmail      = errors.New("email already registered")
	ErrWeakCredential      = errors.New("credential rejected by provider policy")
	ErrUnavailable         = errors.New("identity provider unavailable")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrRemoveNotConfigured = errors.New("identity removal not configured")
)

const (
	ProviderLocal  = "local"
	ProviderGoTrue = "gotrue"
)

type Config struct {
	Provider    string
	BcryptCost  int
	GoTrueURL   string
	GoTrueKey   string
	ServiceKey  string
	HTTPTimeout time.Duration
}

// ConfigFromEnv reads provider selection and its settings from the environment.
func ConfigFromEnv() Config {
	p := os.Getenv("IDENTITY_PROVIDER")
	if p == "" {
		p = ProviderLocal
	}
	cost := 12
	if v, err := strconv.Atoi(os.Getenv("BCRYPT_COST")); err == nil && v >= bcrypt.MinCost && v <= bcrypt.MaxCost {
		cost = v
	}
	timeout := 5 * time.Second
	if v, err := time.ParseDuration(os.Getenv("GOTRUE_TIMEOUT")); err == nil && v > 0 {
		timeout = v
	}
	return Config{
		Provider:    p,
		BcryptCost:  cost,
		GoTrueURL:   os.Getenv("GOTRUE_URL"),
		GoTrueKey:   os.Getenv("GOTRUE_API_KEY"),
		ServiceKey:  os.Getenv("GOTRUE_SERVICE_KEY"),
		HTTPTimeout: timeout,
	}
}

// NewProvider builds the provider named by cfg.Provider.
func NewProvider(cfg Config, db *sqlx.DB, sessions *session.Service) (Provider, error) {
	switch cfg.Provider {
	case ProviderLocal:
		if db == nil {
			return nil, errors.New("local identity provider requires a database")
		}
		return NewLocalProvider(identityrepo.NewIdentityRepo(db), BcryptHasher{Cost: cfg.BcryptCost}, sessions), nil
	case ProviderGoTrue:
		if cfg.GoTrueURL == "" {
			return nil, errors.New("GOTRUE_URL is required for the gotrue identity provider")
		}
		client := &http.Client{Timeout: cfg.HTTPTimeout}
		return NewGoTrueProvider(cfg.GoTrueURL, cfg.GoTrueKey, cfg.ServiceKey, client), nil
	default:
		return nil, fmt.Errorf("unknown identity provider: %s", cfg.Provider)
	}
}
