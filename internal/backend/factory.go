package backend

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/log"
	gsheet "fintrack/internal/sheets/google"
	sheetsmemory "fintrack/internal/sheets/memory"
	"fintrack/internal/storage"
	"fintrack/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// Create opens the snapshot store and the exporter described by config.
func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	kv, err := f.createStorage(config)
	if err != nil {
		return nil, err
	}

	exporter, err := f.createExporter(ctx, config)
	if err != nil {
		kv.Close()
		return nil, err
	}

	return &Result{
		KV:       kv,
		Exporter: exporter,
		Cleanup:  kv.Close,
	}, nil
}

func (f *DefaultFactory) createStorage(config Config) (storage.KV, error) {
	switch config.Type {
	case SQLiteBackend:
		kv, err := storage.NewSQLiteKV(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite storage: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return kv, nil
	case MemoryBackend:
		f.logger.Info("Initialized memory backend")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createExporter(ctx context.Context, config Config) (Exporter, error) {
	switch config.Exporter {
	case GoogleExporter:
		cli, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:      config.GoogleSpreadsheetID,
			SheetName:          config.GoogleSheetName,
			ServiceAccountFile: config.GoogleServiceAccountFile,
			ServiceAccountJSON: config.GoogleServiceAccountJSON,
		}, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		f.logger.Info("Initialized Google Sheets exporter", "spreadsheet_id", config.GoogleSpreadsheetID)
		return cli, nil
	case MemoryExporter:
		f.logger.Info("Initialized memory exporter")
		return sheetsmemory.New(), nil
	default:
		return nil, errors.New("unsupported exporter type: " + string(config.Exporter))
	}
}
