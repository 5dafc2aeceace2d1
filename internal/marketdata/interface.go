// Package marketdata fetches daily close prices from an external provider.
package marketdata

import (
	"context"
	"errors"
	"time"

	"github.com/yourusername/portfolio-backtester/internal/models"
)

// PriceSource defines the interface for fetching daily price history
type PriceSource interface {
	// FetchDailyCloses retrieves daily closes for a symbol within [start, end]
	FetchDailyCloses(ctx context.Context, symbol string, start, end time.Time) (models.PriceSeries, error)

	// Name returns the name of the price source
	Name() string
}

// ProviderError represents errors from market data operations
type ProviderError struct {
	Provider string // Provider name
	Code     string // Error code (e.g., "quota_exhausted")
	Message  string // Error message
	Err      error  // Underlying error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Provider + ": " + e.Code + ": " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Provider + ": " + e.Code + ": " + e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a new market data provider error
func NewProviderError(provider, code, message string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Code: code, Message: message, Err: err}
}

// Common error codes
const (
	ErrCodeQuotaExhausted       = "quota_exhausted"
	ErrCodeRateLimitExceeded    = "rate_limit_exceeded"
	ErrCodeAuthenticationFailed = "authentication_failed"
	ErrCodeNotFound             = "not_found"
	ErrCodeInvalidData          = "invalid_data"
	ErrCodeNetworkError         = "network_error"
	ErrCodeServerError          = "server_error"
)

// ErrQuotaExhausted is returned when the daily request quota has been spent
var ErrQuotaExhausted = errors.New("daily request quota exhausted")
