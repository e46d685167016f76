package registration

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-signup/internal/identity"
	"github.com/ovaphlow/pitchfork/service-signup/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-signup/internal/registration/entity"
	"github.com/ovaphlow/pitchfork/service-signup/internal/registration/repo"
)

const (
	stageResolveInstitution = "resolve institution"
	stageInsertProfile      = "insert profile"

	compensationTimeout = 5 * time.Second
)

// InstitutionFinder looks institutions up by exact name.
type InstitutionFinder interface {
	FindByName(ctx context.Context, name string) ([]entity.Institution, error)
}

// ProfileStore persists profiles into a role collection.
type ProfileStore interface {
	Insert(ctx context.Context, c repo.Collection, p *entity.Profile) (int64, error)
}

// OrphanRecorder marks identities left without a profile.
type OrphanRecorder interface {
	Record(ctx context.Context, o *entity.OrphanIdentity) error
}

// Result describes a completed registration.
type Result struct {
	IdentityRef      identity.Ref
	ProfileID        int64
	Collection       repo.Collection
	InstitutionID    int64
	UsedFallback     bool
	InstitutionMatch int
}

// Service runs the signup pipeline: validate, create identity, link profile.
// Steps run strictly in that order; a profile is never written before its identity exists.
type Service struct {
	cfg          Config
	validator    *Validator
	provider     identity.Provider
	institutions InstitutionFinder
	profiles     ProfileStore
	orphans      OrphanRecorder
	metrics      *metrics.Registration
	logger       *zap.SugaredLogger
}

func NewService(cfg Config, provider identity.Provider, institutions InstitutionFinder, profiles ProfileStore,
	orphans OrphanRecorder, m *metrics.Registration, logger *zap.SugaredLogger) *Service {
	if cfg.FallbackInstitutionID == 0 {
		cfg.FallbackInstitutionID = DefaultFallbackInstitutionID
	}
	if cfg.Compensation == "" {
		cfg.Compensation = CompensateMark
	}
	if m == nil {
		m = metrics.New(prometheus.NewRegistry())
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{
		cfg:          cfg,
		validator:    NewValidator(),
		provider:     provider,
		institutions: institutions,
		profiles:     profiles,
		orphans:      orphans,
		metrics:      m,
		logger:       logger,
	}
}

// Register validates req, creates the identity and then the profile.
// Errors are *ValidationError, *IdentityCreationError or *LinkingError.
func (s *Service) Register(ctx context.Context, req *entity.RegistrationRequest) (*Result, error) {
	start := time.Now()
	res, err := s.register(ctx, req)
	outcome := "ok"
	if err != nil {
		if outcome = Kind(err); outcome == "" {
			outcome = "error"
		}
	}
	s.metrics.ObserveRegistration(outcome, start)
	return res, err
}

func (s *Service) register(ctx context.Context, req *entity.RegistrationRequest) (*Result, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	// identity, profile and orphan rows all carry the same spelling
	email := strings.ToLower(strings.TrimSpace(req.Email))
	role, _ := entity.ParseRole(req.Role)
	coll, err := repo.CollectionFor(role)
	if err != nil {
		return nil, &ValidationError{Fields: map[string]string{"role": "Please select a user type"}}
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	ref, err := s.provider.CreateIdentity(ctx, email, req.Password)
	if err != nil {
		s.logger.Infow("identity creation rejected", "email", email, "err", err)
		return nil, &IdentityCreationError{Err: err}
	}

	res, stage, err := s.link(ctx, ref, coll, email, req)
	if err != nil {
		lerr := &LinkingError{Ref: ref, Stage: stage, Err: err}
		s.compensate(ctx, lerr, email, role)
		s.logger.Errorw("profile linking failed",
			"identity", ref,
			"collection", coll.String(),
			"stage", stage,
			"compensation", lerr.Compensation,
			"err", err,
		)
		return nil, lerr
	}
	s.logger.Infow("registered",
		"identity", ref,
		"collection", coll.String(),
		"profile_id", res.ProfileID,
		"institution_id", res.InstitutionID,
		"fallback", res.UsedFallback,
	)
	return res, nil
}

// link resolves the institution and inserts the profile. On failure it
// returns the stage that failed.
func (s *Service) link(ctx context.Context, ref identity.Ref, coll repo.Collection, email string, req *entity.RegistrationRequest) (*Result, string, error) {
	res := &Result{IdentityRef: ref, Collection: coll}

	matches, err := s.institutions.FindByName(ctx, req.InstitutionName)
	if err != nil {
		return nil, stageResolveInstitution, err
	}
	res.InstitutionMatch = len(matches)
	switch len(matches) {
	case 0:
		res.InstitutionID = s.cfg.FallbackInstitutionID
		res.UsedFallback = true
		s.metrics.IncrementFallback()
		s.logger.Debugw("institution not found, using fallback",
			"institution", req.InstitutionName, "fallback_id", s.cfg.FallbackInstitutionID)
	case 1:
		res.InstitutionID = matches[0].ID
	default:
		// names are not unique in the store; lowest id wins
		res.InstitutionID = matches[0].ID
		s.logger.Warnw("institution name is ambiguous, using lowest id",
			"institution", req.InstitutionName, "matches", len(matches), "institution_id", res.InstitutionID)
	}

	p := &entity.Profile{
		IdentityID:    string(ref),
		InstitutionID: res.InstitutionID,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Email:         email,
	}
	id, err := s.profiles.Insert(ctx, coll, p)
	if err != nil {
		return nil, stageInsertProfile, err
	}
	res.ProfileID = id
	return res, "", nil
}

// compensate applies the configured policy to the identity left behind by a
// failed link. It runs detached from ctx so a caller timeout does not skip it.
func (s *Service) compensate(ctx context.Context, lerr *LinkingError, email string, role entity.Role) {
	policy := s.cfg.Compensation
	if policy == CompensateNone {
		lerr.Compensation = CompensateNone
		return
	}
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	if policy == CompensateDelete {
		remover, ok := s.provider.(identity.Remover)
		if !ok {
			s.logger.Warnw("identity provider cannot delete identities, marking orphan instead", "identity", lerr.Ref)
		} else {
			err := remover.DeleteIdentity(cctx, lerr.Ref)
			s.metrics.IncrementCompensation(string(CompensateDelete), err == nil)
			if err == nil {
				lerr.Compensation = CompensateDelete
				return
			}
			if !errors.Is(err, identity.ErrRemoveNotConfigured) {
				s.logger.Warnw("identity delete failed, marking orphan instead", "identity", lerr.Ref, "err", err)
			}
		}
	}

	if s.orphans == nil {
		lerr.Compensation = CompensateNone
		return
	}
	err := s.orphans.Record(cctx, &entity.OrphanIdentity{
		IdentityID: string(lerr.Ref),
		Email:      email,
		Role:       role,
		Reason:     lerr.Stage + ": " + lerr.Err.Error(),
	})
	s.metrics.IncrementCompensation(string(CompensateMark), err == nil)
	if err != nil {
		lerr.Compensation = CompensateNone
		lerr.CompensationErr = err
		s.logger.Errorw("recording orphan identity failed", "identity", lerr.Ref, "err", err)
		return
	}
	lerr.Compensation = CompensateMark
}
