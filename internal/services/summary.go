package services

import (
	"context"
	"time"

	"github.com/alfonsusenrico/cash-flow-tracker/internal/core"
	"github.com/alfonsusenrico/cash-flow-tracker/internal/cycle"
	"github.com/alfonsusenrico/cash-flow-tracker/internal/storage"
)

// Budget usage levels reported by the month summary.
const (
	BudgetStatusOK       = "ok"
	BudgetStatusWarn     = "warn"
	BudgetStatusCritical = "critical"
	BudgetStatusNone     = "no_budget"
)

// AccountSummary is one account's activity inside a cycle window.
type AccountSummary struct {
	AccountID   string
	AccountName string
	Profile     core.ProfileType
	Opening     int64
	Inflow      int64
	Outflow     int64
	SwitchIn    int64
	SwitchOut   int64
	Closing     int64
	// NetSpend is outflow adjusted for transfers, the figure budgets
	// are tracked against.
	NetSpend     int64
	Planned      *int64
	BudgetStatus string
}

// MonthSummary is the cycle overview for one (user, month).
type MonthSummary struct {
	Month        string
	Window       cycle.Window
	Accounts     []AccountSummary
	TotalOpening int64
	TotalClosing int64
	TotalInflow  int64
	TotalOutflow int64
}

// Summary builds the per-account cycle overview with budget usage levels.
func (s *LedgerService) Summary(ctx context.Context, username, month string) (MonthSummary, error) {
	window, err := s.cycles.Resolve(ctx, username, month)
	if err != nil {
		return MonthSummary{}, err
	}

	summary := MonthSummary{Month: month, Window: window}
	err = s.store.ReadTx(ctx, func(q *storage.Queries) error {
		accounts, err := q.ListAccounts(ctx, username)
		if err != nil {
			return err
		}

		spends, err := q.SpendTotals(ctx, username, window.From, window.To)
		if err != nil {
			return err
		}
		spendBy := make(map[string]int64, len(spends))
		for _, sp := range spends {
			spendBy[sp.AccountID] = sp.Spend
		}

		switches, err := q.SwitchTotals(ctx, username, window.From, window.To)
		if err != nil {
			return err
		}
		switchBy := make(map[string]storage.SwitchTotal, len(switches))
		for _, sw := range switches {
			switchBy[sw.AccountID] = sw
		}

		budgets, err := q.ListBudgets(ctx, username, month)
		if err != nil {
			return err
		}
		plannedBy := make(map[string]int64, len(budgets))
		for _, b := range budgets {
			plannedBy[b.AccountID] = b.Amount
		}

		for _, account := range accounts {
			rows, err := q.ListAccountWindowTransactions(ctx, account.ID, window.From, window.To)
			if err != nil {
				return err
			}
			before, err := q.SumSignedBefore(ctx, account.ID, window.From)
			if err != nil {
				return err
			}

			as := AccountSummary{
				AccountID:   account.ID,
				AccountName: account.Name,
				Profile:     account.Profile,
				Opening:     account.OpeningBalance + before,
				SwitchIn:    switchBy[account.ID].In,
				SwitchOut:   switchBy[account.ID].Out,
			}
			for _, r := range rows {
				if r.Type == core.Debit {
					as.Inflow += r.Amount
				} else {
					as.Outflow += r.Amount
				}
			}
			as.Closing = as.Opening + as.Inflow - as.Outflow
			as.NetSpend = spendBy[account.ID] - as.SwitchIn + as.SwitchOut

			if planned, ok := plannedBy[account.ID]; ok {
				as.Planned = &planned
				as.BudgetStatus = usageStatus(planned, as.NetSpend)
			} else {
				as.BudgetStatus = BudgetStatusNone
			}

			summary.Accounts = append(summary.Accounts, as)
			summary.TotalOpening += as.Opening
			summary.TotalClosing += as.Closing
			summary.TotalInflow += as.Inflow
			summary.TotalOutflow += as.Outflow
		}
		return nil
	})
	if err != nil {
		return MonthSummary{}, err
	}
	return summary, nil
}

// usageStatus grades net spend against the plan: warn at 80%, critical
// at 100%.
func usageStatus(planned, netSpend int64) string {
	if planned <= 0 {
		if netSpend > 0 {
			return BudgetStatusCritical
		}
		return BudgetStatusOK
	}
	switch {
	case netSpend >= planned:
		return BudgetStatusCritical
	case netSpend*100 >= planned*80:
		return BudgetStatusWarn
	default:
		return BudgetStatusOK
	}
}

// Analysis granularities.
const (
	GranularityDaily  = "daily"
	GranularityWeekly = "weekly"
)

// AnalysisPoint is one bucket of the cash-flow series.
type AnalysisPoint struct {
	Label  string
	Inflow int64
	Spend  int64
	Net    int64
}

// CashFlowAnalysis is the non-transfer in/out series over a cycle.
type CashFlowAnalysis struct {
	Month       string
	Window      cycle.Window
	Granularity string
	Points      []AnalysisPoint
	TotalInflow int64
	TotalSpend  int64
}

// Analysis aggregates the cycle's non-transfer flow per day or per
// 7-day bucket counted from the cycle start.
func (s *LedgerService) Analysis(ctx context.Context, username, month, granularity string) (CashFlowAnalysis, error) {
	if granularity == "" {
		granularity = GranularityDaily
	}
	if granularity != GranularityDaily && granularity != GranularityWeekly {
		return CashFlowAnalysis{}, core.Invalidf("invalid granularity %q", granularity)
	}

	window, err := s.cycles.Resolve(ctx, username, month)
	if err != nil {
		return CashFlowAnalysis{}, err
	}

	analysis := CashFlowAnalysis{Month: month, Window: window, Granularity: granularity}
	err = s.store.ReadTx(ctx, func(q *storage.Queries) error {
		days, err := q.DailyTotals(ctx, username, window.From, window.To)
		if err != nil {
			return err
		}

		if granularity == GranularityDaily {
			for _, d := range days {
				analysis.Points = append(analysis.Points, AnalysisPoint{
					Label:  d.Day,
					Inflow: d.Debit,
					Spend:  d.Credit,
					Net:    d.Debit - d.Credit,
				})
				analysis.TotalInflow += d.Debit
				analysis.TotalSpend += d.Credit
			}
			return nil
		}

		// Weekly buckets anchor on the cycle start, not calendar weeks.
		buckets := make(map[string]*AnalysisPoint)
		var order []string
		for _, d := range days {
			day, err := core.ParseDay(d.Day)
			if err != nil {
				return err
			}
			week := int(day.Sub(window.From).Hours() / (24 * 7))
			start := window.From.AddDate(0, 0, week*7)
			label := start.Format("2006-01-02")

			point, ok := buckets[label]
			if !ok {
				point = &AnalysisPoint{Label: label}
				buckets[label] = point
				order = append(order, label)
			}
			point.Inflow += d.Debit
			point.Spend += d.Credit
			point.Net += d.Debit - d.Credit
			analysis.TotalInflow += d.Debit
			analysis.TotalSpend += d.Credit
		}
		for _, label := range order {
			analysis.Points = append(analysis.Points, *buckets[label])
		}
		return nil
	})
	if err != nil {
		return CashFlowAnalysis{}, err
	}
	return analysis, nil
}

// RecomputedBalance is one account's balance derived from scratch.
type RecomputedBalance struct {
	AccountID   string
	AccountName string
	Opening     int64
	Delta       int64
	Balance     int64
	// MinBalance is the lowest point of the full replay, and
	// FirstNegativeAt the date of the first dip below zero, if any.
	MinBalance      int64
	FirstNegativeAt *time.Time
}

// RecomputeReport replays every account's full history. Balances are
// always derived, so this is a consistency check rather than a repair.
type RecomputeReport struct {
	Accounts    []RecomputedBalance
	TotalAssets int64
}

// replayHorizon bounds the full-history replay well past any storable date.
var replayHorizon = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// RecomputeBalances derives each account's current balance from its
// opening balance plus all live transactions.
func (s *LedgerService) RecomputeBalances(ctx context.Context, username string) (RecomputeReport, error) {
	var report RecomputeReport
	err := s.store.ReadTx(ctx, func(q *storage.Queries) error {
		accounts, err := q.ListAccounts(ctx, username)
		if err != nil {
			return err
		}
		for _, account := range accounts {
			rows, err := q.ListAccountWindowTransactions(ctx, account.ID, time.Unix(0, 0), replayHorizon)
			if err != nil {
				return err
			}

			balance := account.OpeningBalance
			rb := RecomputedBalance{
				AccountID:   account.ID,
				AccountName: account.Name,
				Opening:     account.OpeningBalance,
				MinBalance:  account.OpeningBalance,
			}
			for _, row := range rows {
				balance += row.SignedAmount()
				if balance < rb.MinBalance {
					rb.MinBalance = balance
				}
				if balance < 0 && rb.FirstNegativeAt == nil {
					at := row.Date
					rb.FirstNegativeAt = &at
				}
			}
			rb.Balance = balance
			rb.Delta = balance - account.OpeningBalance

			report.Accounts = append(report.Accounts, rb)
			report.TotalAssets += balance
		}
		return nil
	})
	if err != nil {
		return RecomputeReport{}, err
	}
	return report, nil
}
