package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
	"fintrack/internal/stats"
	"fintrack/internal/storage"
)

// Consumer delivers events until ctx is done.
type Consumer interface {
	Consume(ctx context.Context, handler events.Handler) error
}

// ExportWorker copies newly created transactions to the spreadsheet.
//
// It shares the storage with the API process and always reads the latest
// snapshot, so a transaction edited before the worker caught up is exported
// in its current form and one deleted in the meantime is skipped.
type ExportWorker struct {
	kv       storage.KV
	exporter sheets.TransactionExporter
	logger   *log.Logger
}

func NewExportWorker(kv storage.KV, exporter sheets.TransactionExporter, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &ExportWorker{
		kv:       kv,
		exporter: exporter,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// Run consumes events from c until ctx is cancelled.
func (w *ExportWorker) Run(ctx context.Context, c Consumer) error {
	w.logger.InfoContext(ctx, "Export worker started")
	return c.Consume(ctx, w.Handle)
}

// Handle processes one event. A returned error asks the broker to redeliver.
func (w *ExportWorker) Handle(ctx context.Context, e events.Event) error {
	if e.Type != events.TransactionCreated {
		w.logger.DebugContext(ctx, "Ignoring event", log.FieldEventType, e.Type, log.FieldEventID, e.ID)
		return nil
	}

	var p events.TransactionPayload
	if err := e.Decode(&p); err != nil {
		w.logger.ErrorContext(ctx, "Dropping undecodable event", log.FieldEventID, e.ID, log.FieldError, err)
		return nil
	}
	id := p.Transaction.ID

	txs, err := w.snapshot(ctx)
	if err != nil {
		return err
	}
	t, ok := find(txs, id)
	if !ok {
		w.logger.InfoContext(ctx, "Transaction no longer exists, skipping export", log.FieldRecordID, id)
		return nil
	}
	return w.export(ctx, t)
}

// StartupCheck exports the transactions of month that the spreadsheet does
// not list yet. It recovers from events lost while the worker was down.
func (w *ExportWorker) StartupCheck(ctx context.Context, lister sheets.ExportedLister, month time.Time) error {
	exported, err := lister.ListExported(ctx, month.Year(), int(month.Month()))
	if err != nil {
		return fmt.Errorf("list exported transactions: %w", err)
	}
	done := make(map[string]bool, len(exported))
	for _, t := range exported {
		done[t.ID] = true
	}

	txs, err := w.snapshot(ctx)
	if err != nil {
		return err
	}

	synced, failed := 0, 0
	for _, t := range txs {
		if done[t.ID] || !stats.IsInMonth(t, month) {
			continue
		}
		if err := w.export(ctx, t); err != nil {
			failed++
			continue
		}
		synced++
	}

	w.logger.InfoContext(ctx, "Startup export check completed",
		"already_exported", len(done),
		"synced", synced,
		"errors", failed)
	return nil
}

func (w *ExportWorker) export(ctx context.Context, t core.Transaction) error {
	ref, err := w.exporter.Export(ctx, t)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to export transaction",
			log.FieldRecordID, t.ID,
			log.FieldError, err)
		return fmt.Errorf("export transaction %s: %w", t.ID, err)
	}
	w.logger.InfoContext(ctx, "Exported transaction",
		log.NewFields().
			WithTransaction(t.ID, t.Category, t.Amount).
			WithOperation(log.OpExport).
			ToSlice()...)
	w.logger.DebugContext(ctx, "Export reference", log.FieldSheetsRef, ref)
	return nil
}

// snapshot reads the current transactions slot. A malformed slot reads as
// empty, as it does for the API process.
func (w *ExportWorker) snapshot(ctx context.Context) ([]core.Transaction, error) {
	raw, ok, err := w.kv.Load(ctx, storage.KeyTransactions)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var txs []core.Transaction
	if err := json.Unmarshal(raw, &txs); err != nil {
		w.logger.WarnContext(ctx, "Transactions snapshot is malformed", log.FieldError, err)
		return nil, nil
	}
	return txs, nil
}

func find(txs []core.Transaction, id string) (core.Transaction, bool) {
	for _, t := range txs {
		if t.ID == id {
			return t, true
		}
	}
	return core.Transaction{}, false
}
