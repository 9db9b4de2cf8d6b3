package backend

import (
	"context"

	"fintrack/internal/sheets"
	"fintrack/internal/storage"
)

// Exporter writes transactions to an external ledger and reads them back.
type Exporter interface {
	sheets.TransactionExporter
	sheets.ExportedLister
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result contains the opened stores and a cleanup releasing both.
type Result struct {
	KV       storage.KV
	Exporter Exporter
	Cleanup  CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	Create(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	Exporter ExporterType

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
}

// BackendType selects where collection snapshots live.
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// ExporterType selects where exported transactions are written.
type ExporterType string

const (
	GoogleExporter ExporterType = "google"
	MemoryExporter ExporterType = "memory"
)

func (et ExporterType) IsValid() bool {
	return et == GoogleExporter || et == MemoryExporter
}
