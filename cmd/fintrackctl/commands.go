package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/subcommands"

	"fintrack/internal/core"
	"fintrack/internal/market"
	"fintrack/internal/query"
)

var commands = []subcommands.Command{
	&totalsCmd{},
	&breakdownCmd{},
	&listCmd{},
	&goalsCmd{},
	&portfolioCmd{},
	&seedCmd{},
}

const monthLayout = "2006-01"

// run opens the environment, hands it to fn and maps the outcome to an exit
// status.
func run(ctx context.Context, forceSeed bool, fn func(*env, io.Writer) error) subcommands.ExitStatus {
	e, err := openEnv(ctx, forceSeed)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer e.Close()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if err := fn(e, w); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if err := w.Flush(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func parseMonth(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	m, err := time.Parse(monthLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid month %q: want YYYY-MM", s)
	}
	return &m, nil
}

type totalsCmd struct {
	month string
}

func (*totalsCmd) Name() string     { return "totals" }
func (*totalsCmd) Synopsis() string { return "print income, expense and balance" }
func (*totalsCmd) Usage() string {
	return `fintrackctl totals [-month YYYY-MM]

  Prints the totals over all transactions, or over one calendar month.
`
}

func (c *totalsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.month, "month", "", "Restrict the totals to a calendar month (YYYY-MM).")
}

func (c *totalsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	month, err := parseMonth(c.month)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	return run(ctx, false, func(e *env, w io.Writer) error {
		s := e.ledger.Totals()
		if month != nil {
			s = e.ledger.Monthly(*month)
		}
		fmt.Fprintf(w, "Income\t%s\n", e.money(s.TotalIncome))
		fmt.Fprintf(w, "Expense\t%s\n", e.money(s.TotalExpense))
		fmt.Fprintf(w, "Balance\t%s\n", e.money(s.Balance))
		fmt.Fprintf(w, "Transactions\t%d\n", s.Count)
		return nil
	})
}

type breakdownCmd struct {
	month string
}

func (*breakdownCmd) Name() string     { return "breakdown" }
func (*breakdownCmd) Synopsis() string { return "print expense totals per category" }
func (*breakdownCmd) Usage() string {
	return `fintrackctl breakdown [-month YYYY-MM]

  Prints each expense category with its total and share of spending,
  largest first.
`
}

func (c *breakdownCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.month, "month", "", "Restrict the breakdown to a calendar month (YYYY-MM).")
}

func (c *breakdownCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	month, err := parseMonth(c.month)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	return run(ctx, false, func(e *env, w io.Writer) error {
		lang := e.set.Settings.Get().Language
		fmt.Fprintln(w, "CATEGORY\tTOTAL\tCOUNT\tSHARE")
		for _, share := range e.ledger.Categories(month) {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
				core.LookupCategory(share.Category).Name(lang),
				e.money(share.Total),
				share.Count,
				share.Percentage)
		}
		return nil
	})
}

type listCmd struct {
	params map[string]*string
}

// listParams are forwarded as-is to the query parser used by the API.
var listParams = []struct{ name, usage string }{
	{"type", "Only income or expense transactions."},
	{"category", "Only transactions in this category."},
	{"from", "Earliest date, YYYY-MM-DD."},
	{"to", "Latest date, YYYY-MM-DD."},
	{"q", "Case-insensitive search in descriptions."},
	{"sort", "Sort field: date, amount or category."},
	{"order", "Sort order: asc or desc."},
	{"offset", "Number of transactions to skip."},
	{"limit", "Maximum number of transactions to print."},
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list transactions" }
func (*listCmd) Usage() string {
	return `fintrackctl list [-type income|expense] [-category id] [-from date] [-to date] [-q text]
                 [-sort field] [-order asc|desc] [-offset n] [-limit n]

  Lists transactions with the same filtering and sorting as the API.
`
}

func (c *listCmd) SetFlags(f *flag.FlagSet) {
	c.params = make(map[string]*string, len(listParams))
	for _, p := range listParams {
		c.params[p.name] = f.String(p.name, "", p.usage)
	}
}

func (c *listCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	v := url.Values{}
	for name, value := range c.params {
		if *value != "" {
			v.Set(name, *value)
		}
	}
	filter, err := query.ParseFilter(v)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	page, err := query.ParsePage(v, 1000)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}

	return run(ctx, false, func(e *env, w io.Writer) error {
		result := e.ledger.List(filter, query.ParseSort(v), page)
		fmt.Fprintln(w, "DATE\tTYPE\tCATEGORY\tAMOUNT\tDESCRIPTION")
		for _, t := range result.Items {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				t.Date.Format(time.DateOnly), t.Type, t.Category, e.money(t.Amount), t.Description)
		}
		fmt.Fprintf(w, "\n%d of %d transactions\n", len(result.Items), result.Total)
		return nil
	})
}

type goalsCmd struct{}

func (*goalsCmd) Name() string     { return "goals" }
func (*goalsCmd) Synopsis() string { return "print savings goals and their progress" }
func (*goalsCmd) Usage() string {
	return `fintrackctl goals

  Prints each goal with its progress, remaining amount and the daily saving
  needed to meet the deadline.
`
}

func (*goalsCmd) SetFlags(*flag.FlagSet) {}

func (*goalsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, false, func(e *env, w io.Writer) error {
		fmt.Fprintln(w, "GOAL\tSAVED\tTARGET\tPROGRESS\tDEADLINE\tPER DAY\tSTATUS")
		for _, g := range e.goals.List() {
			status := "active"
			switch {
			case g.Progress.IsCompleted:
				status = "completed"
			case g.Progress.IsOverdue:
				status = "overdue"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				g.Title,
				e.money(g.CurrentAmount),
				e.money(g.TargetAmount),
				g.Progress.Percentage,
				g.Deadline.Format(time.DateOnly),
				e.money(g.Progress.DailySavingsNeeded),
				status)
		}

		o := e.goals.Overview()
		fmt.Fprintf(w, "\n%d goals, %d completed, %d overdue, %s of %s saved (%s)\n",
			o.Total, o.Completed, o.Overdue, e.money(o.SavedTotal), e.money(o.TargetTotal), o.Percentage)
		return nil
	})
}

type portfolioCmd struct {
	offline  bool
	currency string
}

func (*portfolioCmd) Name() string     { return "portfolio" }
func (*portfolioCmd) Synopsis() string { return "value crypto holdings at market prices" }
func (*portfolioCmd) Usage() string {
	return `fintrackctl portfolio [-offline] [-currency code]

  Fetches current prices from the market data provider and prints each
  holding with its profit or loss. With -offline every symbol is unpriced.
`
}

func (c *portfolioCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.offline, "offline", false, "Skip the market request.")
	f.StringVar(&c.currency, "currency", "", "Quote currency, defaults to MARKET_CURRENCY.")
}

func (c *portfolioCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, false, func(e *env, w io.Writer) error {
		if !c.offline {
			currency := c.currency
			if currency == "" {
				currency = e.cfg.MarketCurrency
			}
			q := market.Query{VsCurrency: currency, PerPage: 250}
			if err := e.book.Refresh(ctx, e.market, q); err != nil {
				fmt.Fprintf(os.Stderr, "market prices unavailable: %v\n", err)
			}
		}

		holdings, err := e.portfolio.Holdings(ctx, "")
		if err != nil {
			return err
		}
		valuation, err := e.portfolio.Valuation(ctx, "")
		if err != nil {
			return err
		}

		fmt.Fprintln(w, "SYMBOL\tAMOUNT\tAVG COST\tPRICE\tVALUE\tP/L")
		for _, h := range holdings {
			price := "n/a"
			if h.Priced {
				price = h.CurrentPrice.String()
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				h.Symbol, h.Amount, h.AverageCost.StringFixed(2), price,
				h.CurrentValue.StringFixed(2), h.ProfitLoss.StringFixed(2))
		}
		fmt.Fprintf(w, "\nInvested %s, worth %s, P/L %s (%s)\n",
			valuation.TotalInvested.StringFixed(2),
			valuation.TotalCurrentValue.StringFixed(2),
			valuation.TotalProfitLoss.StringFixed(2),
			valuation.ProfitLossPercentage)
		if len(valuation.UnpricedSymbols) > 0 {
			fmt.Fprintf(w, "No price for %v\n", valuation.UnpricedSymbols)
		}
		return nil
	})
}

type seedCmd struct{}

func (*seedCmd) Name() string     { return "seed" }
func (*seedCmd) Synopsis() string { return "fill empty stores with sample records" }
func (*seedCmd) Usage() string {
	return `fintrackctl seed

  Fills every empty record store with sample data. Stores that already hold
  records are left untouched.
`
}

func (*seedCmd) SetFlags(*flag.FlagSet) {}

func (*seedCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, true, func(e *env, w io.Writer) error {
		fmt.Fprintf(w, "Transactions\t%d\n", e.set.Transactions.Len())
		fmt.Fprintf(w, "Goals\t%d\n", e.set.Goals.Len())
		fmt.Fprintf(w, "Crypto assets\t%d\n", e.set.Crypto.Len())
		fmt.Fprintf(w, "Notifications\t%d\n", e.set.Notifications.Len())
		return nil
	})
}
