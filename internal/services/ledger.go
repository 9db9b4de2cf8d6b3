package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/log"
	"fintrack/internal/query"
	"fintrack/internal/stats"
	"fintrack/internal/store"
)

const (
	statsCacheSize = 64
	statsCacheTTL  = 10 * time.Minute
	monthKey       = "2006-01"
)

// Page is one slice of a filtered, sorted transaction list.
type Page struct {
	Items []core.Transaction `json:"items"`
	Total int                `json:"total"`
}

// Ledger manages transactions and the statistics derived from them.
type Ledger struct {
	txs    *store.Transactions
	events publisher
	logger *log.Logger

	summaries  *cache.Memo[stats.Summary]
	categories *cache.Memo[[]stats.CategoryShare]
	trends     *cache.Memo[[]stats.MonthSummary]
}

func NewLedger(txs *store.Transactions, pub events.Publisher, logger *log.Logger) *Ledger {
	logger = componentLogger(logger, log.ComponentLedger)
	return &Ledger{
		txs:        txs,
		events:     newPublisher(pub, logger),
		logger:     logger,
		summaries:  cache.NewMemo[stats.Summary](statsCacheSize, statsCacheTTL),
		categories: cache.NewMemo[[]stats.CategoryShare](statsCacheSize, statsCacheTTL),
		trends:     cache.NewMemo[[]stats.MonthSummary](statsCacheSize, statsCacheTTL),
	}
}

// Caches returns the memo caches for periodic cleanup.
func (l *Ledger) Caches() []cache.Cleaner {
	return []cache.Cleaner{l.summaries, l.categories, l.trends}
}

// List filters and sorts all transactions, then returns the requested page.
// Total counts the filtered transactions before paging.
func (l *Ledger) List(f query.Filter, s query.Sort, p query.Page) Page {
	matched := query.Apply(l.txs.List(), f, s)
	return Page{Items: query.Paginate(matched, p), Total: len(matched)}
}

func (l *Ledger) Get(id string) (core.Transaction, error) {
	return l.txs.Get(id)
}

// Create stores t and announces it. Description and category are cleaned of
// markup; the category is lower-cased.
func (l *Ledger) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.Description = cleanText(t.Description)
	t.Category = normalizeCategory(t.Category)

	created, err := l.txs.Add(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	l.logger.InfoContext(ctx, "Transaction created",
		log.NewFields().WithTransaction(created.ID, created.Category, created.Amount).ToSlice()...)

	l.events.publish(ctx, func(at time.Time) (events.Event, error) {
		return events.NewTransactionCreated(created, at)
	})
	return created, nil
}

func (l *Ledger) Update(ctx context.Context, id string, patch core.TransactionPatch) (core.Transaction, error) {
	patch.Description = cleanPtr(patch.Description)
	if patch.Category != nil {
		c := normalizeCategory(*patch.Category)
		patch.Category = &c
	}

	updated, err := l.txs.Update(ctx, id, patch)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	l.events.publish(ctx, func(at time.Time) (events.Event, error) {
		return events.NewTransactionUpdated(updated, at)
	})
	return updated, nil
}

func (l *Ledger) Delete(ctx context.Context, id string) error {
	if err := l.txs.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	l.logger.InfoContext(ctx, "Transaction deleted", log.FieldRecordID, id)
	l.events.publish(ctx, func(at time.Time) (events.Event, error) {
		return events.NewTransactionDeleted(id, at)
	})
	return nil
}

// Totals sums every transaction.
func (l *Ledger) Totals() stats.Summary {
	return l.summaries.Get("all", l.txs.Version(), func() stats.Summary {
		return stats.Totals(l.txs.List())
	})
}

// Monthly sums the transactions in the calendar month of ref.
func (l *Ledger) Monthly(ref time.Time) stats.Summary {
	return l.summaries.Get("month:"+ref.Format(monthKey), l.txs.Version(), func() stats.Summary {
		return stats.MonthlyTotals(l.txs.List(), ref)
	})
}

// Categories breaks expenses down by category, over all time when month is
// nil or over the calendar month it falls in.
func (l *Ledger) Categories(month *time.Time) []stats.CategoryShare {
	key := "all"
	if month != nil {
		key = month.Format(monthKey)
	}
	return l.categories.Get(key, l.txs.Version(), func() []stats.CategoryShare {
		txs := l.txs.List()
		if month != nil {
			txs = stats.InMonth(txs, *month)
		}
		return stats.CategoryBreakdown(txs)
	})
}

// Trend returns the totals of the months months ending with ref's month.
func (l *Ledger) Trend(ref time.Time, months int) []stats.MonthSummary {
	key := fmt.Sprintf("%s:%d", ref.Format(monthKey), months)
	return l.trends.Get(key, l.txs.Version(), func() []stats.MonthSummary {
		return stats.MonthlyTrend(l.txs.List(), ref, months)
	})
}

func normalizeCategory(c string) string {
	return strings.ToLower(cleanText(c))
}
