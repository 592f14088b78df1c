package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"expensebook/internal/expenses"
	applog "expensebook/internal/log"
	"expensebook/internal/models"
)

// ExpenseItem represents an expense in the list view.
type ExpenseItem struct {
	models.Expense
	Style CategoryStyle
}

// ExpenseGroup groups expenses by date.
type ExpenseGroup struct {
	Title string
	Date  string
	Total float64
	Items []ExpenseItem
}

// ListViewModel is the data passed to the list view template.
type ListViewModel struct {
	Total  float64
	Groups []ExpenseGroup
}

// FormViewModel is the data passed to the add expense template.
type FormViewModel struct {
	Amount     string
	Category   string
	Note       string
	Categories []string
}

// ListExpenses renders all of the user's expenses grouped by day.
func (h *Handlers) ListExpenses(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	list, err := h.expenses.List(r.Context(), user.ID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, "expenses.html", "Expenses", groupByDate(list, time.Now()))
}

func groupByDate(list []models.Expense, now time.Time) ListViewModel {
	groupsMap := make(map[string]*ExpenseGroup)
	var totalSpent float64

	for _, e := range list {
		if _, ok := groupsMap[e.Date]; !ok {
			groupsMap[e.Date] = &ExpenseGroup{Date: e.Date, Title: formatGroupTitle(e.Date, now)}
		}
		group := groupsMap[e.Date]
		group.Total += e.Amount
		totalSpent += e.Amount
		group.Items = append(group.Items, ExpenseItem{Expense: e, Style: getCategoryStyle(e.Category)})
	}

	groups := make([]ExpenseGroup, 0, len(groupsMap))
	for _, g := range groupsMap {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Date > groups[j].Date })

	return ListViewModel{Total: totalSpent, Groups: groups}
}

func formatGroupTitle(date string, now time.Time) string {
	if date == now.Format(models.DateLayout) {
		return "TODAY"
	}
	if date == now.AddDate(0, 0, -1).Format(models.DateLayout) {
		return "YESTERDAY"
	}
	t, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return date
	}
	return strings.ToUpper(t.Format("Mon, 02 Jan '06"))
}

// suggestions merges the user's own categories with the well-known ones.
func suggestions(own []string) []string {
	out := slices.Clone(own)
	for _, c := range categories {
		if !slices.ContainsFunc(out, func(s string) bool { return strings.EqualFold(s, c.ID) }) {
			out = append(out, c.ID)
		}
	}
	return out
}

func (h *Handlers) categorySuggestions(r *http.Request, userID int64) ([]string, error) {
	own, err := h.expenses.Categories(r.Context(), userID)
	if err != nil {
		return nil, err
	}
	return suggestions(own), nil
}

// AddExpenseForm renders the form to add an expense.
func (h *Handlers) AddExpenseForm(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	cats, err := h.categorySuggestions(r, user.ID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "add_expense.html", "Add Expense", FormViewModel{Categories: cats})
}

// AddExpense handles the add expense form submission. The expense is dated
// today.
func (h *Handlers) AddExpense(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, "add_expense.html", "Add Expense", FormViewModel{},
			Flash{FlashDanger, "Invalid form submission"})
		return
	}

	vm := FormViewModel{
		Amount:   r.FormValue("amount"),
		Category: r.FormValue("category"),
		Note:     r.FormValue("note"),
	}

	amount, err := expenses.ParseAmount(vm.Amount)
	if err != nil {
		if vm.Categories, err = h.categorySuggestions(r, user.ID); err != nil {
			h.serverError(w, r, err)
			return
		}
		h.render(w, r, http.StatusBadRequest, "add_expense.html", "Add Expense", vm,
			Flash{FlashDanger, "Please enter a valid amount!"})
		return
	}

	if _, err := h.expenses.Add(r.Context(), user.ID, amount, vm.Category, vm.Note); err != nil {
		if errors.Is(err, expenses.ErrMissingCategory) {
			if vm.Categories, err = h.categorySuggestions(r, user.ID); err != nil {
				h.serverError(w, r, err)
				return
			}
			h.render(w, r, http.StatusBadRequest, "add_expense.html", "Add Expense", vm,
				Flash{FlashDanger, "Please enter a category!"})
			return
		}
		h.serverError(w, r, err)
		return
	}

	h.setFlash(w, FlashSuccess, "Expense added successfully!")
	http.Redirect(w, r, "/expenses", http.StatusFound)
}

// DeleteExpense removes one of the user's expenses. Ids the user does not
// own are ignored.
func (h *Handlers) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if err := h.expenses.Delete(r.Context(), user.ID, id); err != nil {
		h.serverError(w, r, err)
		return
	}

	h.setFlash(w, FlashSuccess, "Expense deleted successfully!")
	http.Redirect(w, r, "/expenses", http.StatusFound)
}

// Export sends the user's expenses as a CSV attachment. Anonymous requests
// are redirected to the login page.
func (h *Handlers) Export(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	var buf bytes.Buffer
	rows, err := h.expenses.ExportCSV(r.Context(), user.ID, &buf)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	applog.FromContext(r.Context()).Debug("exported expenses", applog.FieldUserID, user.ID, "rows", rows)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="expenses.csv"`)
	_, _ = buf.WriteTo(w)
}
