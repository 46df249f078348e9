package core

// Dashboard is the flat statistics view returned to an authenticated user.
type Dashboard struct {
	TotalIncome    Money `json:"total_income"`
	TotalExpense   Money `json:"total_expense"`
	Balance        Money `json:"balance"`
	DailyIncome    Money `json:"daily_income"`
	DailyExpense   Money `json:"daily_expense"`
	WeeklyIncome   Money `json:"weekly_income"`
	WeeklyExpense  Money `json:"weekly_expense"`
	MonthlyIncome  Money `json:"monthly_income"`
	MonthlyExpense Money `json:"monthly_expense"`
	YearlyIncome   Money `json:"yearly_income"`
	YearlyExpense  Money `json:"yearly_expense"`
}
