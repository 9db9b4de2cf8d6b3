package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/log"
	"fintrack/internal/query"
	"fintrack/internal/sheets"
	"fintrack/internal/stats"
	"fintrack/internal/store"
)

// ErrExportDisabled is returned when no exporter is configured.
var ErrExportDisabled = errors.New("export not configured")

// ExportResult reports one bulk export.
type ExportResult struct {
	Exported int      `json:"exported"`
	Refs     []string `json:"refs"`
}

// Export pushes a month of transactions to the spreadsheet exporter on
// demand. Single transactions are exported by the worker as they arrive.
type Export struct {
	txs      *store.Transactions
	exporter sheets.TransactionExporter
	plans    Entitlements
	logger   *log.Logger
}

func NewExport(txs *store.Transactions, exporter sheets.TransactionExporter, plans Entitlements, logger *log.Logger) *Export {
	if plans == nil {
		plans = FreeTier{}
	}
	return &Export{
		txs:      txs,
		exporter: exporter,
		plans:    plans,
		logger:   componentLogger(logger, log.ComponentSheets),
	}
}

// Month exports every transaction dated in month's calendar month, oldest
// first. It requires the export feature and stops at the first failure.
func (e *Export) Month(ctx context.Context, userID string, month time.Time) (ExportResult, error) {
	f, err := e.plans.Features(ctx, userID)
	if err != nil {
		return ExportResult{}, fmt.Errorf("resolve plan: %w", err)
	}
	if !f.Export {
		return ExportResult{}, fmt.Errorf("export: %w", ErrFeatureUnavailable)
	}
	if e.exporter == nil {
		return ExportResult{}, ErrExportDisabled
	}

	txs := query.Apply(stats.InMonth(e.txs.List(), month),
		query.Filter{},
		query.Sort{Field: query.SortByDate, Order: query.Asc})

	res := ExportResult{Refs: make([]string, 0, len(txs))}
	for _, t := range txs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		ref, err := e.exporter.Export(ctx, t)
		if err != nil {
			return res, fmt.Errorf("export transaction %s: %w", t.ID, err)
		}
		res.Exported++
		res.Refs = append(res.Refs, ref)
	}
	e.logger.InfoContext(ctx, "Exported month",
		log.FieldOperation, log.OpExport,
		"month", month.Format(monthKey),
		"count", res.Exported)
	return res, nil
}
