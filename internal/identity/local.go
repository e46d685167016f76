package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-signup/internal/identity/entity"
	identityrepo "github.com/ovaphlow/pitchfork/service-signup/internal/identity/repo"
	"github.com/ovaphlow/pitchfork/service-signup/internal/session"
	"github.com/ovaphlow/pitchfork/service-signup/pkg/utilities"
)

// PasswordHasher defines minimal hashing interface (abstract so we can swap to argon2 later).
type PasswordHasher interface {
	Hash(pw string) (hash string, algo string, err error)
	Verify(hash, pw string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) Hash(pw string) (string, string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", "", err
	}
	return string(h), fmt.Sprintf("bcrypt:%d", cost), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// LocalProvider keeps identities in the service's own postgres database.
type LocalProvider struct {
	repo     *identityrepo.IdentityRepo
	hasher   PasswordHasher
	sessions *session.Service
	newID    func() string

	dummyOnce sync.Once
	dummyHash string
}

func NewLocalProvider(r *identityrepo.IdentityRepo, hasher PasswordHasher, sessions *session.Service) *LocalProvider {
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	return &LocalProvider{repo: r, hasher: hasher, sessions: sessions, newID: utilities.NewKSUID}
}

// CreateIdentity hashes the password and stores a new identity keyed by a KSUID.
func (p *LocalProvider) CreateIdentity(ctx context.Context, email, password string) (Ref, error) {
	email = normalizeEmail(email)
	hash, algo, err := p.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: %v", ErrWeakCredential, err)
		}
		return "", err
	}
	i := &entity.Identity{ID: p.newID(), Email: email, PasswordHash: hash, PasswordAlgo: algo}
	if err := p.repo.Create(ctx, i); err != nil {
		return "", mapStoreError(err)
	}
	return Ref(i.ID), nil
}

// Authenticate verifies the password and issues a session token.
func (p *LocalProvider) Authenticate(ctx context.Context, email, password string) (*session.Session, error) {
	i, err := p.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		// unknown email and wrong password look the same to the caller, in
		// the answer and in the time spent hashing
		if errors.Is(err, sql.ErrNoRows) {
			p.hasher.Verify(p.dummy(), password)
			return nil, ErrInvalidCredentials
		}
		return nil, mapStoreError(err)
	}
	if !p.hasher.Verify(i.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return p.sessions.Issue(i.ID, i.Email)
}

// DeleteIdentity removes an identity created by this provider.
func (p *LocalProvider) DeleteIdentity(ctx context.Context, ref Ref) error {
	if err := p.repo.Delete(ctx, string(ref)); err != nil {
		return mapStoreError(err)
	}
	return nil
}

// dummy returns a hash made with the provider's hasher that no password matches.
func (p *LocalProvider) dummy() string {
	p.dummyOnce.Do(func() {
		h, _, err := p.hasher.Hash(utilities.NewKSUID())
		if err == nil {
			p.dummyHash = h
		}
	})
	return p.dummyHash
}

func mapStoreError(err error) error {
	switch {
	case errors.Is(err, identityrepo.ErrEmailTaken):
		return ErrDuplicateEmail
	case errors.Is(err, identityrepo.ErrUnavailable):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	default:
		return err
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
