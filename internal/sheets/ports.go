package sheets

import (
	"context"

	"fintrack/internal/core"
)

// Ports for outbound export adapters.
type (
	// TransactionExporter writes one transaction to an external ledger and
	// returns a reference to the written row.
	TransactionExporter interface {
		Export(ctx context.Context, t core.Transaction) (rowRef string, err error)
	}

	// ExportedLister reads back the transactions exported for a month.
	ExportedLister interface {
		ListExported(ctx context.Context, year int, month int) ([]core.Transaction, error)
	}
)
