package models

// CategoryTotal is the summed amount spent in one category.
type CategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
}

// MonthTotal is the summed amount spent in one YYYY-MM month.
type MonthTotal struct {
	Month string  `json:"month"`
	Total float64 `json:"total"`
}

// Summary is the dashboard view of a user's spending.
type Summary struct {
	TotalSpent   float64
	TotalEntries int
	ByCategory   []CategoryTotal
	ByMonth      []MonthTotal
	Recent       []Expense

	// Category is the active filter for Recent, empty when unfiltered.
	Category   string
	Categories []string
}
