package models

import "errors"

// Custom errors
var (
	ErrPortfolioNameRequired = errors.New("portfolio name is required")
	ErrNotFound              = errors.New("record not found")
	ErrDuplicateKey          = errors.New("duplicate key violation")
	ErrInvalidID             = errors.New("invalid ID format")
)
