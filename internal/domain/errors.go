package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrArtifactNotFound    = errors.New("artifact not found")
	ErrReferralNotFound    = errors.New("referral not found")
	ErrInsufficientFunds   = errors.New("insufficient credits")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrValidation          = errors.New("validation failed")
	ErrConflict            = errors.New("conflict")
	ErrDuplicateExternalID = fmt.Errorf("%w: external id already registered", ErrConflict)
	ErrDuplicateReferral   = fmt.Errorf("%w: referral code already taken", ErrConflict)
	ErrDuplicateShareID    = fmt.Errorf("%w: share id already taken", ErrConflict)
	ErrInvalidReferralCode = errors.New("invalid referral code")
	ErrSelfReferral        = errors.New("self referral")
	ErrAlreadyReferred     = fmt.Errorf("%w: account already referred", ErrConflict)
	ErrTransient           = errors.New("transient storage failure")
	ErrUnauthorized        = errors.New("unauthorized")
)

// InsufficientFundsError carries the amounts reported back to the caller.
type InsufficientFundsError struct {
	Required  int64
	Available int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient credits: required %d, available %d", e.Required, e.Available)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Kind is the stable machine-readable error category exposed to callers.
type Kind string

const (
	KindValidation          Kind = "validation"
	KindNotFound            Kind = "not_found"
	KindInsufficientCredits Kind = "insufficient_credits"
	KindConflict            Kind = "conflict"
	KindTransient           Kind = "transient"
	KindUnauthorized        Kind = "unauthorized"
	KindInternal            Kind = "internal"
)

func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidReferralCode), errors.Is(err, ErrSelfReferral):
		return KindValidation
	case errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrArtifactNotFound),
		errors.Is(err, ErrReferralNotFound):
		return KindNotFound
	case errors.Is(err, ErrInsufficientFunds):
		return KindInsufficientCredits
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrTransient):
		return KindTransient
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	default:
		return KindInternal
	}
}
