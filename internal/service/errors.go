package service

import (
	"errors"
	"fmt"
)

var (
	ErrValidation       = errors.New("validation")
	ErrConflict         = errors.New("conflict")
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrExternalService  = errors.New("external service")
	ErrInvalidSignature = errors.New("invalid signature")
)

// ErrPriceMismatch is a validation error: errors.Is(ErrPriceMismatch, ErrValidation) holds.
var ErrPriceMismatch = fmt.Errorf("price does not match catalog: %w", ErrValidation)

// Name length rejections from Register. Both are validation errors.
var (
	ErrNameTooShort = fmt.Errorf("name too short: %w", ErrValidation)
	ErrNameTooLong  = fmt.Errorf("name too long: %w", ErrValidation)
)
