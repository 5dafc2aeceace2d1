package service

import (
	"fmt"
	"sync"
	"time"
)

// SyncMetrics tracks statistics about one price sync run
type SyncMetrics struct {
	mu            sync.RWMutex
	StartTime     time.Time
	Duration      time.Duration
	SymbolsSynced int
	RowsWritten   int
	Errors        int
}

// NewSyncMetrics creates a new metrics tracker
func NewSyncMetrics() *SyncMetrics {
	return &SyncMetrics{
		StartTime: time.Now(),
	}
}

// RecordSymbol records a successfully synced symbol and its row count
func (m *SyncMetrics) RecordSymbol(rowsWritten int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SymbolsSynced++
	m.RowsWritten += rowsWritten
}

// RecordError increments the error count
func (m *SyncMetrics) RecordError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors++
}

// String returns a formatted string representation of metrics
func (m *SyncMetrics) String() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return fmt.Sprintf(
		"SyncMetrics{Symbols=%d, Rows=%d, Errors=%d, Duration=%v}",
		m.SymbolsSynced,
		m.RowsWritten,
		m.Errors,
		m.Duration,
	)
}
