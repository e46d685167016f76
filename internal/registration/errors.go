package registration

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ovaphlow/pitchfork/service-signup/internal/identity"
)

// Error kinds as reported to callers and metrics.
const (
	KindValidation = "validation"
	KindIdentity   = "identity"
	KindLinking    = "linking"
)

// ValidationError lists every invalid field with a human readable message.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return "invalid registration: " + strings.Join(names, ", ")
}

// IdentityCreationError means the provider refused the identity. Nothing was persisted.
type IdentityCreationError struct {
	Err error
}

func (e *IdentityCreationError) Error() string { return "create identity: " + e.Err.Error() }
func (e *IdentityCreationError) Unwrap() error { return e.Err }

// LinkingError means the identity exists but its profile could not be created.
type LinkingError struct {
	Ref   identity.Ref
	Stage string
	Err   error
	// Compensation is the action taken for the dangling identity.
	Compensation    Compensation
	CompensationErr error
}

func (e *LinkingError) Error() string {
	return fmt.Sprintf("link profile for identity %s: %s: %v", e.Ref, e.Stage, e.Err)
}

func (e *LinkingError) Unwrap() error { return e.Err }

// Kind classifies err into one of the Kind constants, or "" for anything else.
func Kind(err error) string {
	var (
		verr *ValidationError
		ierr *IdentityCreationError
		lerr *LinkingError
	)
	switch {
	case errors.As(err, &verr):
		return KindValidation
	case errors.As(err, &ierr):
		return KindIdentity
	case errors.As(err, &lerr):
		return KindLinking
	default:
		return ""
	}
}
