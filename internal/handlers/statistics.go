package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"

	"expensebook/internal/expenses"
	"expensebook/internal/models"
)

// CategoryDef defines the properties of a well-known category.
type CategoryDef struct {
	ID    string
	Icon  string
	Color string
}

var categories = []CategoryDef{
	{"food", "🍽️", "#60a5fa"},
	{"transport", "🚌", "#a78bfa"},
	{"entertainment", "🎮", "#f472b6"},
	{"utilities", "💡", "#fbbf24"},
	{"housing", "🏠", "#818cf8"},
	{"rent", "🏠", "#818cf8"},
	{"health", "💊", "#34d399"},
	{"shopping", "🛍️", "#f97316"},
	{"gifts", "🎁", "#fb7185"},
}

// CategoryStyle defines the visual style for a category.
type CategoryStyle struct {
	Icon  string
	Color string
}

var defaultStyle = CategoryStyle{Icon: "📦", Color: "#94a3b8"}

func getCategoryStyle(category string) CategoryStyle {
	catLower := strings.ToLower(strings.TrimSpace(category))
	for _, c := range categories {
		if c.ID == catLower {
			return CategoryStyle{Icon: c.Icon, Color: c.Color}
		}
	}
	return defaultStyle
}

// CategoryShare is a category with its share of total spending.
type CategoryShare struct {
	Category   string
	Total      float64
	Percentage float64
	Style      CategoryStyle
}

// MonthBar is a month's spending scaled against the largest month.
type MonthBar struct {
	Month      string
	Total      float64
	Percentage float64
}

// DashboardViewModel is the data passed to the dashboard template.
type DashboardViewModel struct {
	Summary *models.Summary
	Shares  []CategoryShare
	Months  []MonthBar
}

func categoryShares(totals []models.CategoryTotal, total float64) []CategoryShare {
	shares := make([]CategoryShare, 0, len(totals))
	for _, ct := range totals {
		percentage := 0.0
		if total > 0 && ct.Total > 0 {
			percentage = (ct.Total / total) * 100
		}
		shares = append(shares, CategoryShare{
			Category:   ct.Category,
			Total:      ct.Total,
			Percentage: percentage,
			Style:      getCategoryStyle(ct.Category),
		})
	}
	return shares
}

func monthBars(totals []models.MonthTotal) []MonthBar {
	var peak float64
	for _, mt := range totals {
		if mt.Total > peak {
			peak = mt.Total
		}
	}

	bars := make([]MonthBar, 0, len(totals))
	for _, mt := range totals {
		percentage := 0.0
		if peak > 0 && mt.Total > 0 {
			percentage = (mt.Total / peak) * 100
		}
		bars = append(bars, MonthBar{Month: mt.Month, Total: mt.Total, Percentage: percentage})
	}
	return bars
}

// Dashboard renders the summary page. The category query parameter filters
// the latest expenses list only.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	category := strings.TrimSpace(r.URL.Query().Get("category"))

	summary, err := h.expenses.Summary(r.Context(), user.ID, category)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, "dashboard.html", "Dashboard", DashboardViewModel{
		Summary: summary,
		Shares:  categoryShares(summary.ByCategory, summary.TotalSpent),
		Months:  monthBars(summary.ByMonth),
	})
}

// CategoryChart serves the category pie chart as PNG.
func (h *Handlers) CategoryChart(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	totals, err := h.expenses.ByCategory(r.Context(), user.ID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.writeChart(w, r, func(out io.Writer) error { return expenses.CategoryChart(out, totals) })
}

// MonthChart serves the monthly bar chart as PNG.
func (h *Handlers) MonthChart(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	totals, err := h.expenses.ByMonth(r.Context(), user.ID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.writeChart(w, r, func(out io.Writer) error { return expenses.MonthChart(out, totals) })
}

func (h *Handlers) writeChart(w http.ResponseWriter, r *http.Request, draw func(io.Writer) error) {
	var buf bytes.Buffer
	if err := draw(&buf); err != nil {
		if errors.Is(err, expenses.ErrNoChartData) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.serverError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}
