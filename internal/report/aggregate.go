// Package report computes dashboard totals over a user's records.
package report

import (
	"time"

	"moneypall/internal/core"
)

// Rolling window lengths, counted back from today.
const (
	WeekDays  = 7
	MonthDays = 30
	YearDays  = 365
)

// Aggregate sums incomes and expenses over rolling windows ending today, the
// calendar date of now in loc. The daily window matches today exactly; the
// others have a lower bound only, so future-dated records are counted.
func Aggregate(incomes, expenses []core.Record, now time.Time, loc *time.Location) core.Dashboard {
	today := core.DateOf(now, loc)
	in := sumWindows(incomes, today)
	out := sumWindows(expenses, today)

	return core.Dashboard{
		TotalIncome:    in.total,
		TotalExpense:   out.total,
		Balance:        in.total.Sub(out.total),
		DailyIncome:    in.daily,
		DailyExpense:   out.daily,
		WeeklyIncome:   in.weekly,
		WeeklyExpense:  out.weekly,
		MonthlyIncome:  in.monthly,
		MonthlyExpense: out.monthly,
		YearlyIncome:   in.yearly,
		YearlyExpense:  out.yearly,
	}
}

type windows struct {
	total, daily, weekly, monthly, yearly core.Money
}

func sumWindows(records []core.Record, today core.Date) windows {
	weekStart := today.AddDays(-WeekDays)
	monthStart := today.AddDays(-MonthDays)
	yearStart := today.AddDays(-YearDays)

	var w windows
	for _, r := range records {
		w.total = w.total.Add(r.Amount)
		if r.Date.SameDay(today) {
			w.daily = w.daily.Add(r.Amount)
		}
		if r.Date.OnOrAfter(weekStart) {
			w.weekly = w.weekly.Add(r.Amount)
		}
		if r.Date.OnOrAfter(monthStart) {
			w.monthly = w.monthly.Add(r.Amount)
		}
		if r.Date.OnOrAfter(yearStart) {
			w.yearly = w.yearly.Add(r.Amount)
		}
	}
	return w
}
