package repo

import (
	"errors"
	"fmt"

	"github.com/ovaphlow/pitchfork/service-signup/pkg/database"
)

var (
	ErrConstraintViolation = errors.New("constraint violation")
	ErrStoreUnavailable    = errors.New("store unavailable")
	ErrUnknownRole         = errors.New("no profile collection for role")
)

func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case database.IsConstraintViolation(err):
		return fmt.Errorf("%w: %w", ErrConstraintViolation, err)
	case database.IsUnavailable(err):
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	default:
		return err
	}
}
