package backtest

import "fmt"

// ValidationError reports malformed or inconsistent backtest input. It is
// raised before simulation begins; the caller must fix the input and retry.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid backtest input: %s: %s", e.Field, e.Reason)
}

// MissingDataError reports an allocated asset with no price data at all.
type MissingDataError struct {
	AssetID string
}

func (e *MissingDataError) Error() string {
	return fmt.Sprintf("no price data available for asset %s", e.AssetID)
}
