package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"radpanel/internal/auth"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
	ErrInsufficientCredit = errors.New("insufficient credit")
	ErrNegativeBalance    = errors.New("wallet balance is negative")
	ErrPlanInactive       = errors.New("plan is not active")
	ErrPlanReferenced     = errors.New("plan terms are fixed once ordered")
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrPaymentNotPending  = errors.New("payment is not pending")
	ErrInvalidTransition  = errors.New("invalid order status transition")
	ErrProvisioning       = errors.New("provisioning gateway error")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrLimitExceeded      = errors.New("payment method daily limit reached")

	ErrForbidden       = auth.ErrForbidden
	ErrUnauthenticated = auth.ErrUnauthenticated
	ErrUserDisabled    = auth.ErrUserDisabled
)

// validation wraps a human-readable message in ErrValidation.
func validation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// notFound turns gorm's missing-row error into ErrNotFound.
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %w", what, ErrNotFound)
	}
	return err
}
