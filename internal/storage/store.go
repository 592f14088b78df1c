package storage

import (
	"context"
	"errors"
	"time"

	"expensebook/internal/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateUsername is returned when a username is already taken.
	ErrDuplicateUsername = errors.New("username already exists")
)

// Store is the full set of persistence operations the application needs.
// Every expense method is scoped to the owning user.
type Store interface {
	CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UserCount(ctx context.Context) (int, error)

	CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error
	ValidateSession(ctx context.Context, token string) (*models.Session, error)
	RenewSession(ctx context.Context, token string, expiresAt time.Time) error
	DeleteSession(ctx context.Context, token string) error
	CleanExpiredSessions(ctx context.Context) (int64, error)

	CreateExpense(ctx context.Context, e *models.Expense) error
	DeleteExpense(ctx context.Context, ownerID, id int64) error
	ListExpenses(ctx context.Context, ownerID int64) ([]models.Expense, error)
	ListRecent(ctx context.Context, ownerID int64, category string, limit int) ([]models.Expense, error)
	TotalSpent(ctx context.Context, ownerID int64) (float64, error)
	CountExpenses(ctx context.Context, ownerID int64) (int, error)
	CategoryTotals(ctx context.Context, ownerID int64) ([]models.CategoryTotal, error)
	MonthTotals(ctx context.Context, ownerID int64) ([]models.MonthTotal, error)
	Categories(ctx context.Context, ownerID int64) ([]string, error)

	Close() error
}

var _ Store = (*DB)(nil)
