package storage

import (
	"context"
	"database/sql"
	"fmt"

	"expensebook/internal/models"
)

// CreateExpense inserts e and sets its ID.
func (db *DB) CreateExpense(ctx context.Context, e *models.Expense) error {
	result, err := db.conn.ExecContext(ctx,
		"INSERT INTO expenses (user_id, date, amount, category, note) VALUES (?, ?, ?, ?, ?)",
		e.UserID, e.Date, e.Amount, e.Category, e.Note,
	)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

// DeleteExpense deletes the expense only if ownerID owns it. Unknown or
// foreign ids affect nothing and are not reported.
func (db *DB) DeleteExpense(ctx context.Context, ownerID, id int64) error {
	_, err := db.conn.ExecContext(ctx, "DELETE FROM expenses WHERE id = ? AND user_id = ?", id, ownerID)
	return err
}

// ListExpenses retrieves all of the owner's expenses, newest first.
func (db *DB) ListExpenses(ctx context.Context, ownerID int64) ([]models.Expense, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT id, user_id, date, amount, category, COALESCE(note, '') FROM expenses WHERE user_id = ? ORDER BY id DESC",
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	return scanExpenses(rows)
}

// ListRecent retrieves at most limit of the owner's newest expenses,
// restricted to category when it is not empty.
func (db *DB) ListRecent(ctx context.Context, ownerID int64, category string, limit int) ([]models.Expense, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if category != "" {
		rows, err = db.conn.QueryContext(ctx, `
			SELECT id, user_id, date, amount, category, COALESCE(note, '')
			FROM expenses
			WHERE user_id = ? AND category = ?
			ORDER BY id DESC
			LIMIT ?
		`, ownerID, category, limit)
	} else {
		rows, err = db.conn.QueryContext(ctx, `
			SELECT id, user_id, date, amount, category, COALESCE(note, '')
			FROM expenses
			WHERE user_id = ?
			ORDER BY id DESC
			LIMIT ?
		`, ownerID, limit)
	}
	if err != nil {
		return nil, err
	}
	return scanExpenses(rows)
}

func scanExpenses(rows *sql.Rows) ([]models.Expense, error) {
	defer rows.Close()

	expenses := []models.Expense{}
	for rows.Next() {
		var e models.Expense
		if err := rows.Scan(&e.ID, &e.UserID, &e.Date, &e.Amount, &e.Category, &e.Note); err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// TotalSpent sums the owner's expenses; zero when there are none.
func (db *DB) TotalSpent(ctx context.Context, ownerID int64) (float64, error) {
	var total float64
	err := db.conn.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(amount), 0) FROM expenses WHERE user_id = ?",
		ownerID,
	).Scan(&total)
	return total, err
}

// CountExpenses returns the number of expenses the owner has.
func (db *DB) CountExpenses(ctx context.Context, ownerID int64) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM expenses WHERE user_id = ?", ownerID).Scan(&count)
	return count, err
}

// CategoryTotals returns per-category sums, largest first and by name on ties.
func (db *DB) CategoryTotals(ctx context.Context, ownerID int64) ([]models.CategoryTotal, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT category, COALESCE(SUM(amount), 0) AS total
		FROM expenses
		WHERE user_id = ?
		GROUP BY category
		ORDER BY total DESC, category ASC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := []models.CategoryTotal{}
	for rows.Next() {
		var ct models.CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.Total); err != nil {
			return nil, err
		}
		totals = append(totals, ct)
	}
	return totals, rows.Err()
}

// MonthTotals returns per-month (YYYY-MM) sums, most recent month first.
func (db *DB) MonthTotals(ctx context.Context, ownerID int64) ([]models.MonthTotal, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT substr(date, 1, 7) AS month, COALESCE(SUM(amount), 0) AS total
		FROM expenses
		WHERE user_id = ?
		GROUP BY month
		ORDER BY month DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := []models.MonthTotal{}
	for rows.Next() {
		var mt models.MonthTotal
		if err := rows.Scan(&mt.Month, &mt.Total); err != nil {
			return nil, err
		}
		totals = append(totals, mt)
	}
	return totals, rows.Err()
}

// Categories returns the distinct categories the owner has used, sorted by name.
func (db *DB) Categories(ctx context.Context, ownerID int64) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT DISTINCT category FROM expenses WHERE user_id = ? ORDER BY category",
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
