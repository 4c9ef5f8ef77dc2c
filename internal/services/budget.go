package services

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/alfonsusenrico/cash-flow-tracker/internal/amqp"
	"github.com/alfonsusenrico/cash-flow-tracker/internal/core"
	"github.com/alfonsusenrico/cash-flow-tracker/internal/cycle"
	"github.com/alfonsusenrico/cash-flow-tracker/internal/storage"
)

// Budget statuses derived from the gap and a tolerance band.
const (
	StatusOverBudget  = "over_budget"
	StatusUnderBudget = "under_budget"
	StatusBalanced    = "balanced"
	StatusNoBudget    = "no_budget"
	StatusExcluded    = "excluded"
)

// BudgetService owns budget rows and the cycle reconciliation report.
type BudgetService struct {
	store          *storage.Store
	cycles         *cycle.Resolver
	events         eventPublisher
	roundIncrement int64
	now            func() time.Time
}

func NewBudgetService(store *storage.Store, cycles *cycle.Resolver, amqpClient *amqp.Client, roundIncrement int64) *BudgetService {
	if roundIncrement < 1 {
		roundIncrement = 1
	}
	return &BudgetService{
		store:          store,
		cycles:         cycles,
		events:         eventPublisher{client: amqpClient},
		roundIncrement: roundIncrement,
		now:            time.Now,
	}
}

// AccountReconciliation is the per-account line of the budget report.
type AccountReconciliation struct {
	AccountID   string
	AccountName string
	Profile     core.ProfileType
	ActualSpend int64
	SwitchIn    int64
	SwitchOut   int64
	// Planned is nil when no budget exists for the account this month.
	Planned *int64
	// Gap is planned minus net outflow; nil without a budget.
	Gap             *int64
	Status          string
	SuggestedBudget int64
}

// SwitchEdge is the net transfer flow from one account to another
// inside the window.
type SwitchEdge struct {
	FromAccountID string
	ToAccountID   string
	Amount        int64
}

// ReconciliationTotals aggregates the report across accounts.
type ReconciliationTotals struct {
	Planned     int64
	ActualSpend int64
	Gap         int64
	NetSwitch   int64
}

// BudgetReport is the full reconciliation output for one cycle.
type BudgetReport struct {
	Month       string
	Mode        string
	Window      cycle.Window
	Accounts    []AccountReconciliation
	SwitchEdges []SwitchEdge
	Totals      ReconciliationTotals
}

// Reconcile resolves the cycle and reports planned versus actual per
// account, with suggestions from the selected strategy. Savings
// accounts stay out of the gap accounting.
func (s *BudgetService) Reconcile(ctx context.Context, username, month, mode string) (BudgetReport, error) {
	strategy, err := strategyFor(mode)
	if err != nil {
		return BudgetReport{}, err
	}
	if mode == "" {
		mode = ModeNormal
	}

	window, err := s.cycles.Resolve(ctx, username, month)
	if err != nil {
		return BudgetReport{}, err
	}

	report := BudgetReport{Month: month, Mode: mode, Window: window}
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

		var inputs []allocationInput
		for _, account := range accounts {
			line := AccountReconciliation{
				AccountID:   account.ID,
				AccountName: account.Name,
				Profile:     account.Profile,
				ActualSpend: spendBy[account.ID],
				SwitchIn:    switchBy[account.ID].In,
				SwitchOut:   switchBy[account.ID].Out,
			}

			// Savings accounts show their flows but stay out of the gap
			// accounting, the totals and the strategy inputs.
			if account.Profile == core.ProfileSavings {
				line.Status = StatusExcluded
				report.Accounts = append(report.Accounts, line)
				continue
			}

			netOutflow := line.ActualSpend - line.SwitchIn + line.SwitchOut

			// An explicit fixed limit beats the month's budget row.
			planned, hasPlanned := plannedBy[account.ID]
			if account.FixedLimit != nil {
				planned, hasPlanned = *account.FixedLimit, true
			}

			input := allocationInput{Account: account, NetSpend: netOutflow}
			if hasPlanned {
				gap := planned - netOutflow
				line.Planned = &planned
				line.Gap = &gap
				line.Status = gapStatus(planned, gap)
				input.Gap = gap
				input.HasGap = true

				report.Totals.Planned += planned
				report.Totals.Gap += gap
			} else {
				line.Status = StatusNoBudget
			}
			report.Totals.ActualSpend += line.ActualSpend
			report.Totals.NetSwitch += line.SwitchIn - line.SwitchOut

			inputs = append(inputs, input)
			report.Accounts = append(report.Accounts, line)
		}

		suggested := strategy.allocate(inputs, s.roundIncrement)
		for i := range report.Accounts {
			report.Accounts[i].SuggestedBudget = suggested[report.Accounts[i].AccountID]
		}

		edges, err := s.switchEdges(ctx, q, username, window)
		if err != nil {
			return err
		}
		report.SwitchEdges = edges
		return nil
	})
	if err != nil {
		return BudgetReport{}, err
	}
	return report, nil
}

// switchEdges pairs transfer legs by transfer id and nets the flow per
// (source, target) account pair.
func (s *BudgetService) switchEdges(ctx context.Context, q *storage.Queries, username string, window cycle.Window) ([]SwitchEdge, error) {
	rows, err := q.ListWindowTransactions(ctx, username, window.From, window.To)
	if err != nil {
		return nil, err
	}

	type pair struct{ source, target string }
	legsBy := make(map[string][]storage.LedgerRow)
	for _, r := range rows {
		if !r.IsTransfer || r.TransferID == nil {
			continue
		}
		legsBy[*r.TransferID] = append(legsBy[*r.TransferID], r)
	}

	flow := make(map[pair]int64)
	for _, legs := range legsBy {
		if len(legs) != 2 {
			continue
		}
		var source, target string
		var amount int64
		for _, leg := range legs {
			if leg.Type == core.Credit {
				source = leg.AccountID
				amount = leg.Amount
			} else {
				target = leg.AccountID
			}
		}
		if source == "" || target == "" {
			continue
		}
		flow[pair{source, target}] += amount
	}

	edges := make([]SwitchEdge, 0, len(flow))
	for p, amount := range flow {
		edges = append(edges, SwitchEdge{FromAccountID: p.source, ToAccountID: p.target, Amount: amount})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].FromAccountID != edges[j].FromAccountID {
			return edges[i].FromAccountID < edges[j].FromAccountID
		}
		return edges[i].ToAccountID < edges[j].ToAccountID
	})
	return edges, nil
}

// gapStatus classifies the gap against a tolerance of 1% of the plan.
func gapStatus(planned, gap int64) string {
	tolerance := planned / 100
	switch {
	case gap > tolerance:
		return StatusUnderBudget
	case gap < -tolerance:
		return StatusOverBudget
	default:
		return StatusBalanced
	}
}

type UpsertBudgetRequest struct {
	Username  string
	AccountID string
	Month     string
	Amount    int64
}

// Upsert creates or replaces the plan for one (account, month).
func (s *BudgetService) Upsert(ctx context.Context, req UpsertBudgetRequest) (core.Budget, error) {
	if req.Amount < 0 {
		return core.Budget{}, core.Invalidf("budget amount must not be negative")
	}
	if _, _, err := core.ParseMonth(req.Month); err != nil {
		return core.Budget{}, err
	}

	account, err := s.store.GetAccount(ctx, req.AccountID)
	if err != nil {
		return core.Budget{}, err
	}
	if account.Username != req.Username {
		return core.Budget{}, core.Forbiddenf("account %s", req.AccountID)
	}

	budget := core.Budget{
		ID:        uuid.NewString(),
		Username:  req.Username,
		AccountID: req.AccountID,
		Month:     req.Month,
		Amount:    req.Amount,
	}
	err = s.store.WithTx(ctx, func(q *storage.Queries) error {
		return q.UpsertBudget(ctx, budget, s.now().UTC())
	})
	if err != nil {
		return core.Budget{}, err
	}

	s.events.publish(ctx, amqp.EventBudgetUpserted, req.Username, req.AccountID, "")
	return budget, nil
}

// Delete clears the plan for one (account, month).
func (s *BudgetService) Delete(ctx context.Context, username, accountID, month string) error {
	if _, _, err := core.ParseMonth(month); err != nil {
		return err
	}

	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if account.Username != username {
		return core.Forbiddenf("account %s", accountID)
	}

	err = s.store.WithTx(ctx, func(q *storage.Queries) error {
		return q.DeleteBudget(ctx, username, accountID, month)
	})
	if err != nil {
		return err
	}

	s.events.publish(ctx, amqp.EventBudgetDeleted, username, accountID, "")
	return nil
}

// List returns the user's budgets for one month.
func (s *BudgetService) List(ctx context.Context, username, month string) ([]core.Budget, error) {
	if _, _, err := core.ParseMonth(month); err != nil {
		return nil, err
	}
	return s.store.ListBudgets(ctx, username, month)
}
