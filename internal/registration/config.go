package registration

import (
	"os"
	"strconv"
	"time"
)

// Compensation decides what happens to an identity whose profile insert failed.
type Compensation string

const (
	// CompensateNone leaves the identity in place and only logs it.
	CompensateNone Compensation = "none"
	// CompensateMark leaves the identity in place and records it as orphaned.
	CompensateMark Compensation = "mark"
	// CompensateDelete asks the provider to delete the identity, marking it when that fails.
	CompensateDelete Compensation = "delete"
)

const DefaultFallbackInstitutionID int64 = 1

type Config struct {
	Timeout               time.Duration
	FallbackInstitutionID int64
	Compensation          Compensation
}

// ConfigFromEnv reads REGISTRATION_TIMEOUT, INSTITUTION_FALLBACK_ID and REGISTRATION_COMPENSATION.
func ConfigFromEnv() Config {
	timeout := 10 * time.Second
	if v, err := time.ParseDuration(os.Getenv("REGISTRATION_TIMEOUT")); err == nil && v > 0 {
		timeout = v
	}
	fallback := DefaultFallbackInstitutionID
	if v, err := strconv.ParseInt(os.Getenv("INSTITUTION_FALLBACK_ID"), 10, 64); err == nil && v > 0 {
		fallback = v
	}
	comp := CompensateMark
	switch c := Compensation(os.Getenv("REGISTRATION_COMPENSATION")); c {
	case CompensateNone, CompensateMark, CompensateDelete:
		comp = c
	}
	return Config{Timeout: timeout, FallbackInstitutionID: fallback, Compensation: comp}
}
