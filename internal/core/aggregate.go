package core

type (
	// CategoryTotal is the summed amount of one category.
	CategoryTotal struct {
		Category string `json:"category"`
		Total    Money  `json:"total"`
	}

	// MonthTotal is the summed amount of one calendar month, labelled "Jan 2025".
	MonthTotal struct {
		Month string `json:"month"`
		Total Money  `json:"total"`
	}

	// BudgetComparison sets the budgeted ceiling of a category against its
	// actual spending.
	BudgetComparison struct {
		Category string `json:"category"`
		Budget   Money  `json:"budget"`
		Actual   Money  `json:"actual"`
	}
)

// MonthLabel returns the short month name and full year of d, e.g. "Apr 2025".
func MonthLabel(d Date) string {
	return d.Format("Jan 2006")
}

// AggregateByCategory sums amounts per distinct category in first-seen order.
func AggregateByCategory(txs []Transaction) []CategoryTotal {
	index := make(map[string]int)
	out := make([]CategoryTotal, 0)
	for _, t := range txs {
		i, ok := index[t.Category]
		if !ok {
			index[t.Category] = len(out)
			out = append(out, CategoryTotal{Category: t.Category, Total: t.Amount})
			continue
		}
		out[i].Total = out[i].Total.Plus(t.Amount)
	}
	return out
}

// AggregateByMonth sums amounts per calendar month in first-seen order.
func AggregateByMonth(txs []Transaction) []MonthTotal {
	index := make(map[string]int)
	out := make([]MonthTotal, 0)
	for _, t := range txs {
		label := MonthLabel(t.Date)
		i, ok := index[label]
		if !ok {
			index[label] = len(out)
			out = append(out, MonthTotal{Month: label, Total: t.Amount})
			continue
		}
		out[i].Total = out[i].Total.Plus(t.Amount)
	}
	return out
}

// CompareBudgets sums budgets per category in first-seen order and pairs each
// with the spending recorded for that category. When month is not empty only
// budgets and transactions of that YYYY-MM month are considered.
func CompareBudgets(budgets []Budget, txs []Transaction, month string) []BudgetComparison {
	index := make(map[string]int)
	out := make([]BudgetComparison, 0)
	for _, b := range budgets {
		if month != "" && b.Month != month {
			continue
		}
		key := CategoryKey(b.Category)
		i, ok := index[key]
		if !ok {
			index[key] = len(out)
			out = append(out, BudgetComparison{Category: b.Category, Budget: b.Amount, Actual: Zero})
			continue
		}
		out[i].Budget = out[i].Budget.Plus(b.Amount)
	}
	for _, t := range txs {
		if month != "" && t.Date.MonthKey() != month {
			continue
		}
		if i, ok := index[CategoryKey(t.Category)]; ok {
			out[i].Actual = out[i].Actual.Plus(t.Amount)
		}
	}
	return out
}
