// Package expenses records expenses and builds the per-user views of them:
// the dashboard summary, the CSV export and the dashboard charts.
package expenses

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"expensebook/internal/models"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrInvalidAmount is returned for amounts that are not finite numbers.
	ErrInvalidAmount = errors.New("amount must be a number")
	// ErrMissingCategory is returned when an expense has no category.
	ErrMissingCategory = errors.New("category is required")
)

// RecentLimit is how many expenses the dashboard lists.
const RecentLimit = 5

// Store is the persistence the expense service needs.
type Store interface {
	CreateExpense(ctx context.Context, e *models.Expense) error
	DeleteExpense(ctx context.Context, ownerID, id int64) error
	ListExpenses(ctx context.Context, ownerID int64) ([]models.Expense, error)
	ListRecent(ctx context.Context, ownerID int64, category string, limit int) ([]models.Expense, error)
	TotalSpent(ctx context.Context, ownerID int64) (float64, error)
	CountExpenses(ctx context.Context, ownerID int64) (int, error)
	CategoryTotals(ctx context.Context, ownerID int64) ([]models.CategoryTotal, error)
	MonthTotals(ctx context.Context, ownerID int64) ([]models.MonthTotal, error)
	Categories(ctx context.Context, ownerID int64) ([]string, error)
}

// Service implements expense operations for a single owner at a time.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates an expense service backed by store.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// SetClock overrides the time source used to date new expenses.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// ParseAmount parses a form amount. Negative values are accepted.
func ParseAmount(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ErrInvalidAmount
	}
	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, ErrInvalidAmount
	}
	return amount, nil
}

// Add records an expense dated today for ownerID.
func (s *Service) Add(ctx context.Context, ownerID int64, amount float64, category, note string) (*models.Expense, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, ErrInvalidAmount
	}
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, ErrMissingCategory
	}

	e := &models.Expense{
		UserID:   ownerID,
		Date:     s.now().Format(models.DateLayout),
		Amount:   amount,
		Category: category,
		Note:     strings.TrimSpace(note),
	}
	if err := s.store.CreateExpense(ctx, e); err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}
	return e, nil
}

// Delete removes an expense if ownerID owns it. Anything else is a no-op.
func (s *Service) Delete(ctx context.Context, ownerID, id int64) error {
	if err := s.store.DeleteExpense(ctx, ownerID, id); err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	return nil
}

// List returns all of ownerID's expenses, newest first.
func (s *Service) List(ctx context.Context, ownerID int64) ([]models.Expense, error) {
	list, err := s.store.ListExpenses(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return list, nil
}

// Categories returns the distinct categories ownerID has used.
func (s *Service) Categories(ctx context.Context, ownerID int64) ([]string, error) {
	cats, err := s.store.Categories(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// ByCategory returns ownerID's spending per category, largest first.
func (s *Service) ByCategory(ctx context.Context, ownerID int64) ([]models.CategoryTotal, error) {
	totals, err := s.store.CategoryTotals(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	return totals, nil
}

// ByMonth returns ownerID's spending per month, newest first.
func (s *Service) ByMonth(ctx context.Context, ownerID int64) ([]models.MonthTotal, error) {
	totals, err := s.store.MonthTotals(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("month totals: %w", err)
	}
	return totals, nil
}

// Summary computes the dashboard for ownerID. Totals always cover every
// expense; category only filters the recent list.
func (s *Service) Summary(ctx context.Context, ownerID int64, category string) (*models.Summary, error) {
	sum := &models.Summary{Category: category}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		total, err := s.store.TotalSpent(ctx, ownerID)
		if err != nil {
			return fmt.Errorf("total spent: %w", err)
		}
		sum.TotalSpent = total
		return nil
	})
	g.Go(func() error {
		count, err := s.store.CountExpenses(ctx, ownerID)
		if err != nil {
			return fmt.Errorf("count expenses: %w", err)
		}
		sum.TotalEntries = count
		return nil
	})
	g.Go(func() error {
		byCategory, err := s.store.CategoryTotals(ctx, ownerID)
		if err != nil {
			return fmt.Errorf("category totals: %w", err)
		}
		sum.ByCategory = byCategory
		return nil
	})
	g.Go(func() error {
		byMonth, err := s.store.MonthTotals(ctx, ownerID)
		if err != nil {
			return fmt.Errorf("month totals: %w", err)
		}
		sum.ByMonth = byMonth
		return nil
	})
	g.Go(func() error {
		recent, err := s.store.ListRecent(ctx, ownerID, category, RecentLimit)
		if err != nil {
			return fmt.Errorf("recent expenses: %w", err)
		}
		sum.Recent = recent
		return nil
	})
	g.Go(func() error {
		cats, err := s.store.Categories(ctx, ownerID)
		if err != nil {
			return fmt.Errorf("list categories: %w", err)
		}
		sum.Categories = cats
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sum, nil
}
