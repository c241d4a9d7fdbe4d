package service

import (
	"errors"
	"fmt"

	"go-inventory-ledger/pkg/validator"

	"gorm.io/gorm"
)

// Failure kinds surfaced by the services. Detailed errors wrap one of these;
// test with errors.Is.
var (
	ErrValidation           = errors.New("validation failed")
	ErrReference            = errors.New("referenced record does not exist")
	ErrNotFound             = errors.New("not found")
	ErrInsufficientQuantity = errors.New("insufficient quantity")
	ErrConflict             = errors.New("record was modified concurrently, try again")

	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrSessionExpired     = errors.New("session expired (logged in on another device)")
)

func validationErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// validate runs struct tags and reports the first failing field.
func validate(req interface{}) error {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return validationErrorf("%s", validator.Describe(errs))
	}
	return nil
}

// notFound translates a missing row into ErrNotFound and passes anything else
// through untouched.
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}

func checkPage(page, limit int) error {
	if page < 1 {
		return validationErrorf("page must be >= 1")
	}
	if limit < 1 {
		return validationErrorf("limit must be >= 1")
	}
	return nil
}
