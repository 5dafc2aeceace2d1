package backtest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yourusername/portfolio-backtester/internal/repository"
)

// ExportToJSON writes a full backtest result to a JSON file
func ExportToJSON(result *Result, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write result file: %w", err)
	}
	return nil
}

// ExportToDatabase persists a backtest result through the result repository
func ExportToDatabase(ctx context.Context, result *Result, repo repository.BacktestResultRepository) error {
	row, err := result.ToDB()
	if err != nil {
		return fmt.Errorf("failed to serialize result: %w", err)
	}
	if err := repo.SaveResult(ctx, row); err != nil {
		return fmt.Errorf("failed to persist backtest result: %w", err)
	}
	return nil
}
