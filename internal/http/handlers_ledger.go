package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/alfonsusenrico/cash-flow-tracker/internal/cycle"
	"github.com/alfonsusenrico/cash-flow-tracker/internal/log"
	"github.com/alfonsusenrico/cash-flow-tracker/internal/services"
)

const dateLayout = "2006-01-02"

type windowDTO struct {
	Month       string `json:"month"`
	From        string `json:"from"`
	To          string `json:"to"`
	PaydayDay   int    `json:"payday_day"`
	Source      string `json:"source"`
	DefaultDay  int    `json:"default_day"`
	OverrideDay *int   `json:"override_day,omitempty"`
	Clamped     bool   `json:"clamped"`
}

func toWindowDTO(w cycle.Window) windowDTO {
	return windowDTO{
		Month:       w.Month,
		From:        w.From.Format(dateLayout),
		To:          w.To.Format(dateLayout),
		PaydayDay:   w.PaydayDay,
		Source:      w.Source,
		DefaultDay:  w.DefaultDay,
		OverrideDay: w.OverrideDay,
		Clamped:     w.Clamped,
	}
}

type ledgerEntryDTO struct {
	ID           string  `json:"id"`
	AccountID    string  `json:"account_id"`
	AccountName  string  `json:"account_name"`
	Type         string  `json:"type"`
	Name         string  `json:"name"`
	Amount       int64   `json:"amount"`
	Date         string  `json:"date"`
	IsTransfer   bool    `json:"is_transfer"`
	TransferID   *string `json:"transfer_id,omitempty"`
	IsCycleTopup bool    `json:"is_cycle_topup"`
	Balance      int64   `json:"balance"`
}

type accountBalanceDTO struct {
	AccountID   string `json:"account_id"`
	AccountName string `json:"account_name"`
	Balance     int64  `json:"balance"`
}

type ledgerPageDTO struct {
	Window         windowDTO           `json:"window"`
	OpeningBalance int64               `json:"opening_balance"`
	ClosingBalance int64               `json:"closing_balance"`
	Entries        []ledgerEntryDTO    `json:"entries"`
	HasMore        bool                `json:"has_more"`
	NextOffset     int                 `json:"next_offset"`
	Summary        []accountBalanceDTO `json:"summary,omitempty"`
	TotalAssets    int64               `json:"total_assets,omitempty"`
}

func toLedgerPageDTO(page services.LedgerPage) ledgerPageDTO {
	dto := ledgerPageDTO{
		Window:         toWindowDTO(page.Window),
		OpeningBalance: page.OpeningBalance,
		ClosingBalance: page.ClosingBalance,
		Entries:        make([]ledgerEntryDTO, 0, len(page.Entries)),
		HasMore:        page.HasMore,
		NextOffset:     page.NextOffset,
		TotalAssets:    page.TotalAssets,
	}
	for _, e := range page.Entries {
		dto.Entries = append(dto.Entries, ledgerEntryDTO{
			ID:           e.ID,
			AccountID:    e.AccountID,
			AccountName:  e.AccountName,
			Type:         string(e.Type),
			Name:         e.Name,
			Amount:       e.Amount,
			Date:         e.Date.Format(dateLayout),
			IsTransfer:   e.IsTransfer,
			TransferID:   e.TransferID,
			IsCycleTopup: e.IsCycleTopup,
			Balance:      e.Balance,
		})
	}
	for _, b := range page.Summary {
		dto.Summary = append(dto.Summary, accountBalanceDTO{
			AccountID:   b.AccountID,
			AccountName: b.AccountName,
			Balance:     b.Balance,
		})
	}
	return dto
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	user := username(r)

	from, err := queryDate(r, "from")
	if err != nil {
		writeError(w, r, err)
		return
	}
	to, err := queryDate(r, "to")
	if err != nil {
		writeError(w, r, err)
		return
	}

	query := services.LedgerQuery{
		Username:         user,
		Month:            queryMonth(r, s.now),
		From:             from,
		To:               to,
		AccountID:        strings.TrimSpace(r.URL.Query().Get("account_id")),
		IncludeTransfers: queryBool(r, "include_transfers"),
		Search:           strings.TrimSpace(r.URL.Query().Get("search")),
		SortDesc:         r.URL.Query().Get("sort") == "desc",
		Limit:            queryInt(r, "limit", 0),
		Offset:           queryInt(r, "offset", 0),
		WithSummary:      queryBool(r, "with_summary"),
	}

	key := fmt.Sprintf("ledger:%s:%s|%v|%v|%s|%v|%q|%v|%d|%d|%v",
		user, query.Month, from, to, query.AccountID, query.IncludeTransfers,
		query.Search, query.SortDesc, query.Limit, query.Offset, query.WithSummary)

	if page, ok := s.ledgerCache.Get(key); ok {
		s.logger.DebugContext(r.Context(), "Ledger cache hit", log.FieldCacheKey, key)
		writeJSON(w, r, http.StatusOK, toLedgerPageDTO(page))
		return
	}

	result, err, _ := s.fills.Do(key, func() (any, error) {
		page, err := s.svc.Ledger.List(r.Context(), query)
		if err != nil {
			return nil, err
		}
		s.ledgerCache.Set(key, page)
		return page, nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toLedgerPageDTO(result.(services.LedgerPage)))
}

type accountSummaryDTO struct {
	AccountID    string `json:"account_id"`
	AccountName  string `json:"account_name"`
	Profile      string `json:"profile"`
	Opening      int64  `json:"opening"`
	Inflow       int64  `json:"inflow"`
	Outflow      int64  `json:"outflow"`
	SwitchIn     int64  `json:"switch_in"`
	SwitchOut    int64  `json:"switch_out"`
	Closing      int64  `json:"closing"`
	NetSpend     int64  `json:"net_spend"`
	Planned      *int64 `json:"planned,omitempty"`
	BudgetStatus string `json:"budget_status"`
}

type monthSummaryDTO struct {
	Month        string              `json:"month"`
	Window       windowDTO           `json:"window"`
	Accounts     []accountSummaryDTO `json:"accounts"`
	TotalOpening int64               `json:"total_opening"`
	TotalClosing int64               `json:"total_closing"`
	TotalInflow  int64               `json:"total_inflow"`
	TotalOutflow int64               `json:"total_outflow"`
}

func toMonthSummaryDTO(sum services.MonthSummary) monthSummaryDTO {
	dto := monthSummaryDTO{
		Month:        sum.Month,
		Window:       toWindowDTO(sum.Window),
		Accounts:     make([]accountSummaryDTO, 0, len(sum.Accounts)),
		TotalOpening: sum.TotalOpening,
		TotalClosing: sum.TotalClosing,
		TotalInflow:  sum.TotalInflow,
		TotalOutflow: sum.TotalOutflow,
	}
	for _, a := range sum.Accounts {
		dto.Accounts = append(dto.Accounts, accountSummaryDTO{
			AccountID:    a.AccountID,
			AccountName:  a.AccountName,
			Profile:      string(a.Profile),
			Opening:      a.Opening,
			Inflow:       a.Inflow,
			Outflow:      a.Outflow,
			SwitchIn:     a.SwitchIn,
			SwitchOut:    a.SwitchOut,
			Closing:      a.Closing,
			NetSpend:     a.NetSpend,
			Planned:      a.Planned,
			BudgetStatus: a.BudgetStatus,
		})
	}
	return dto
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	user := username(r)
	month := queryMonth(r, s.now)
	key := fmt.Sprintf("summary:%s:%s", user, month)

	if sum, ok := s.summaryCache.Get(key); ok {
		s.logger.DebugContext(r.Context(), "Summary cache hit", log.FieldCacheKey, key)
		writeJSON(w, r, http.StatusOK, toMonthSummaryDTO(sum))
		return
	}

	result, err, _ := s.fills.Do(key, func() (any, error) {
		sum, err := s.svc.Ledger.Summary(r.Context(), user, month)
		if err != nil {
			return nil, err
		}
		s.summaryCache.Set(key, sum)
		return sum, nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toMonthSummaryDTO(result.(services.MonthSummary)))
}

type analysisPointDTO struct {
	Label  string `json:"label"`
	Inflow int64  `json:"inflow"`
	Spend  int64  `json:"spend"`
	Net    int64  `json:"net"`
}

type analysisDTO struct {
	Month       string             `json:"month"`
	Window      windowDTO          `json:"window"`
	Granularity string             `json:"granularity"`
	Points      []analysisPointDTO `json:"points"`
	TotalInflow int64              `json:"total_inflow"`
	TotalSpend  int64              `json:"total_spend"`
}

func toAnalysisDTO(a services.CashFlowAnalysis) analysisDTO {
	dto := analysisDTO{
		Month:       a.Month,
		Window:      toWindowDTO(a.Window),
		Granularity: a.Granularity,
		Points:      make([]analysisPointDTO, 0, len(a.Points)),
		TotalInflow: a.TotalInflow,
		TotalSpend:  a.TotalSpend,
	}
	for _, p := range a.Points {
		dto.Points = append(dto.Points, analysisPointDTO{
			Label:  p.Label,
			Inflow: p.Inflow,
			Spend:  p.Spend,
			Net:    p.Net,
		})
	}
	return dto
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	user := username(r)
	month := queryMonth(r, s.now)
	granularity := strings.TrimSpace(r.URL.Query().Get("granularity"))
	key := fmt.Sprintf("analysis:%s:%s|%s", user, month, granularity)

	if a, ok := s.analysisCache.Get(key); ok {
		s.logger.DebugContext(r.Context(), "Analysis cache hit", log.FieldCacheKey, key)
		writeJSON(w, r, http.StatusOK, toAnalysisDTO(a))
		return
	}

	result, err, _ := s.fills.Do(key, func() (any, error) {
		a, err := s.svc.Ledger.Analysis(r.Context(), user, month, granularity)
		if err != nil {
			return nil, err
		}
		s.analysisCache.Set(key, a)
		return a, nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toAnalysisDTO(result.(services.CashFlowAnalysis)))
}

type recomputedBalanceDTO struct {
	AccountID       string  `json:"account_id"`
	AccountName     string  `json:"account_name"`
	Opening         int64   `json:"opening"`
	Delta           int64   `json:"delta"`
	Balance         int64   `json:"balance"`
	MinBalance      int64   `json:"min_balance"`
	FirstNegativeAt *string `json:"first_negative_at,omitempty"`
}

type recomputeReportDTO struct {
	Accounts    []recomputedBalanceDTO `json:"accounts"`
	TotalAssets int64                  `json:"total_assets"`
}

func (s *Server) handleRecomputeBalances(w http.ResponseWriter, r *http.Request) {
	user := username(r)

	report, err := s.svc.Ledger.RecomputeBalances(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}

	dto := recomputeReportDTO{
		Accounts:    make([]recomputedBalanceDTO, 0, len(report.Accounts)),
		TotalAssets: report.TotalAssets,
	}
	for _, a := range report.Accounts {
		b := recomputedBalanceDTO{
			AccountID:   a.AccountID,
			AccountName: a.AccountName,
			Opening:     a.Opening,
			Delta:       a.Delta,
			Balance:     a.Balance,
			MinBalance:  a.MinBalance,
		}
		if a.FirstNegativeAt != nil {
			at := a.FirstNegativeAt.Format(dateLayout)
			b.FirstNegativeAt = &at
		}
		dto.Accounts = append(dto.Accounts, b)
	}
	writeJSON(w, r, http.StatusOK, dto)
}
