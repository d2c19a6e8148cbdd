package projection

import (
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/runway/internal/common"
	"github.com/Veraticus/runway/internal/model"
)

// Input is everything one projection reads. Settings may be nil.
type Input struct {
	Today          time.Time
	CurrentBalance decimal.Decimal
	Settings       *model.UserFinancialSettings
	Patterns       []model.RecurringPattern
	IncomeHistory  []model.IncomeEvent
}

// Projector simulates cash flow up to a horizon. It holds only immutable
// configuration and is safe for concurrent use.
type Projector struct {
	logger *slog.Logger
	cfg    Config
}

// NewProjector creates a projector. A nil logger uses the default logger.
func NewProjector(cfg Config, logger *slog.Logger) *Projector {
	return &Projector{
		cfg:    cfg,
		logger: common.ComponentLogger(logger, "projection"),
	}
}

// Project forecasts the balance at the end of the horizon. It fails only when
// a declared bonus date is not after today.
func (p *Projector) Project(in Input) (*model.HealthResult, error) {
	today := in.Today
	if today.IsZero() {
		today = time.Now()
	}
	today = model.Day(today)

	end := today.AddDate(0, 0, p.cfg.HorizonDays)
	if in.Settings != nil && in.Settings.NextBonusDate != nil {
		date, err := bonusHorizon(*in.Settings.NextBonusDate, today)
		if err != nil {
			return nil, err
		}
		end = date
	}

	amount, source := p.paycheckAmount(in.Settings, in.IncomeHistory)
	inflows := make([]model.ProjectedTransaction, 0)
	if source != model.PaycheckNone {
		for _, date := range p.paycheckDates(today, end, in.IncomeHistory) {
			inflows = append(inflows, model.ProjectedTransaction{
				Date:        date,
				Amount:      amount,
				Description: "Paycheck",
				Kind:        model.ProjectedPaycheck,
			})
		}
	}
	// One bonus lands on the end date, whichever horizon is in use.
	if bonus := bonusAmount(in.Settings, in.IncomeHistory); bonus.IsPositive() {
		inflows = append(inflows, model.ProjectedTransaction{
			Date:        end,
			Amount:      bonus,
			Description: "Bonus",
			Kind:        model.ProjectedBonus,
		})
	}

	outflows := make([]model.ProjectedTransaction, 0)
	for _, pattern := range in.Patterns {
		outflows = append(outflows, p.expand(pattern, today, end)...)
	}

	sortProjected(inflows)
	sortProjected(outflows)

	totalIn := model.SumAmounts(inflows)
	totalOut := model.SumAmounts(outflows)
	balance := in.CurrentBalance.Add(totalIn).Sub(totalOut)

	p.logger.Debug("projected balance",
		"end_date", end.Format(model.DateLayout),
		"paycheck_source", source,
		"inflows", len(inflows),
		"outflows", len(outflows),
		"balance", balance.StringFixed(2))

	return &model.HealthResult{
		StartDate:        today,
		EndDate:          end,
		CurrentBalance:   in.CurrentBalance,
		ProjectedBalance: balance,
		TotalInflows:     totalIn,
		TotalOutflows:    totalOut,
		Status:           p.ClassifyStatus(balance),
		PaycheckSource:   source,
		Inflows:          inflows,
		Outflows:         outflows,
	}, nil
}

// ClassifyStatus grades a projected balance against the configured thresholds.
func (p *Projector) ClassifyStatus(balance decimal.Decimal) model.HealthStatus {
	switch {
	case balance.LessThan(p.cfg.ThresholdEnough):
		return model.StatusNotEnough
	case balance.GreaterThan(p.cfg.ThresholdTooMuch):
		return model.StatusTooMuch
	default:
		return model.StatusEnough
	}
}

// paycheckAmount resolves the per-period paycheck: declared, then the payroll
// median, then the configured default for users who saved settings.
func (p *Projector) paycheckAmount(settings *model.UserFinancialSettings, history []model.IncomeEvent) (decimal.Decimal, model.PaycheckSource) {
	if settings.HasPaycheck() {
		return *settings.PaycheckAmount, model.PaycheckDeclared
	}

	payroll := model.FilterIncome(history, model.IncomePayroll)
	if len(payroll) > 0 {
		amounts := make([]decimal.Decimal, len(payroll))
		for i, e := range payroll {
			amounts[i] = e.Amount
		}
		if median := model.Median(amounts).Round(2); median.IsPositive() {
			return median, model.PaycheckHistory
		}
	}

	if settings != nil && p.cfg.DefaultPaycheckAmount.IsPositive() {
		return p.cfg.DefaultPaycheckAmount, model.PaycheckDefault
	}

	return decimal.Zero, model.PaycheckNone
}

// paycheckDates lists pay dates in (today, end]. They follow the most recent
// payroll deposit when there is one, otherwise the first is one period out.
func (p *Projector) paycheckDates(today, end time.Time, history []model.IncomeEvent) []time.Time {
	period := p.cfg.PayPeriodDays
	next := today.AddDate(0, 0, period)

	if last, ok := latest(model.FilterIncome(history, model.IncomePayroll)); ok {
		next = model.Day(last.Date)
		for !next.After(today) {
			next = next.AddDate(0, 0, period)
		}
	}

	var dates []time.Time
	for ; !next.After(end); next = next.AddDate(0, 0, period) {
		dates = append(dates, next)
	}
	return dates
}

// bonusAmount prefers the declared bonus and falls back to the latest one received.
func bonusAmount(settings *model.UserFinancialSettings, history []model.IncomeEvent) decimal.Decimal {
	if settings.HasBonusAmount() {
		return *settings.BonusAmount
	}
	if last, ok := latest(model.FilterIncome(history, model.IncomeBonus)); ok {
		return last.Amount
	}
	return decimal.Zero
}

// expand lists a pattern's occurrences in (today, end].
func (p *Projector) expand(pattern model.RecurringPattern, today, end time.Time) []model.ProjectedTransaction {
	if !pattern.Frequency.Valid() || !pattern.TypicalAmount.IsPositive() {
		p.logger.Debug("skipping unusable pattern",
			"merchant", pattern.MerchantKey,
			"frequency", pattern.Frequency)
		return nil
	}

	var dates []time.Time
	if pattern.Frequency == model.FrequencyMonthly {
		day := pattern.AnchorDay()
		for i := 0; ; i++ {
			date := model.DateInMonth(today.Year(), today.Month()+time.Month(i), day)
			if date.After(end) {
				break
			}
			if date.After(today) {
				dates = append(dates, date)
			}
		}
	} else {
		if pattern.PredictedNextDate.IsZero() {
			return nil
		}
		gap := pattern.Frequency.ExpectedGap()
		next := model.Day(pattern.PredictedNextDate)
		for !next.After(today) {
			next = next.AddDate(0, 0, gap)
		}
		for ; !next.After(end); next = next.AddDate(0, 0, gap) {
			dates = append(dates, next)
		}
	}

	out := make([]model.ProjectedTransaction, 0, len(dates))
	for _, date := range dates {
		out = append(out, model.ProjectedTransaction{
			Date:        date,
			Amount:      pattern.TypicalAmount,
			Description: pattern.MerchantKey,
			MerchantKey: pattern.MerchantKey,
			Kind:        model.ProjectedRecurring,
		})
	}
	return out
}

// latest returns the most recent event, preferring the larger amount on ties.
func latest(events []model.IncomeEvent) (model.IncomeEvent, bool) {
	if len(events) == 0 {
		return model.IncomeEvent{}, false
	}
	best := events[0]
	for _, e := range events[1:] {
		if e.Date.After(best.Date) || (e.Date.Equal(best.Date) && e.Amount.GreaterThan(best.Amount)) {
			best = e
		}
	}
	return best, true
}

func sortProjected(txns []model.ProjectedTransaction) {
	sort.SliceStable(txns, func(i, j int) bool {
		if !txns[i].Date.Equal(txns[j].Date) {
			return txns[i].Date.Before(txns[j].Date)
		}
		return txns[i].Description < txns[j].Description
	})
}
