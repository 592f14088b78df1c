// Package postgres implements storage.Store on PostgreSQL through GORM.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"expensebook/internal/models"
	"expensebook/internal/storage"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type userRow struct {
	ID       int64  `gorm:"primaryKey;autoIncrement"`
	Username string `gorm:"type:text;uniqueIndex;not null"`
	Password string `gorm:"type:text;not null"`
}

func (userRow) TableName() string { return "users" }

type expenseRow struct {
	ID       int64   `gorm:"primaryKey;autoIncrement"`
	UserID   int64   `gorm:"not null;index:idx_expenses_user_id"`
	User     userRow `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT"`
	Date     string  `gorm:"type:text;not null"`
	Amount   float64 `gorm:"not null"`
	Category string  `gorm:"type:text;not null"`
	Note     string  `gorm:"type:text"`
}

func (expenseRow) TableName() string { return "expenses" }

type sessionRow struct {
	Token        string    `gorm:"primaryKey;type:text"`
	UserID       int64     `gorm:"not null"`
	User         userRow   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	ExpiresAt    time.Time `gorm:"not null;index"`
	LastActivity time.Time `gorm:"not null"`
}

func (sessionRow) TableName() string { return "sessions" }

// DB is a PostgreSQL-backed store.
type DB struct {
	gdb *gorm.DB
}

var _ storage.Store = (*DB)(nil)

// Open connects to dsn and migrates the schema.
func Open(dsn string) (*DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := gdb.AutoMigrate(&userRow{}, &expenseRow{}, &sessionRow{}); err != nil {
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}

	return &DB{gdb: gdb}, nil
}

// Close closes the underlying connection pool.
func (db *DB) Close() error {
	sqlDB, err := db.gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (db *DB) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	row := userRow{Username: username, Password: passwordHash}
	if err := db.gdb.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, storage.ErrDuplicateUsername
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &models.User{ID: row.ID, Username: row.Username, PasswordHash: row.Password}, nil
}

func (db *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var row userRow
	if err := db.gdb.WithContext(ctx).Where("username = ?", username).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &models.User{ID: row.ID, Username: row.Username, PasswordHash: row.Password}, nil
}

func (db *DB) UserCount(ctx context.Context) (int, error) {
	var count int64
	err := db.gdb.WithContext(ctx).Model(&userRow{}).Count(&count).Error
	return int(count), err
}

func (db *DB) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	return db.gdb.WithContext(ctx).Create(&sessionRow{
		Token:        token,
		UserID:       userID,
		ExpiresAt:    expiresAt,
		LastActivity: time.Now(),
	}).Error
}

func (db *DB) ValidateSession(ctx context.Context, token string) (*models.Session, error) {
	var s models.Session
	result := db.gdb.WithContext(ctx).
		Table("sessions").
		Select("sessions.token, users.id AS user_id, users.username, sessions.expires_at, sessions.last_activity").
		Joins("JOIN users ON users.id = sessions.user_id").
		Where("sessions.token = ? AND sessions.expires_at > ?", token, time.Now()).
		Scan(&s)
	if result.Error != nil {
		return nil, fmt.Errorf("select session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, storage.ErrNotFound
	}
	return &s, nil
}

func (db *DB) RenewSession(ctx context.Context, token string, expiresAt time.Time) error {
	return db.gdb.WithContext(ctx).Model(&sessionRow{}).
		Where("token = ?", token).
		Updates(map[string]any{"expires_at": expiresAt, "last_activity": time.Now()}).Error
}

func (db *DB) DeleteSession(ctx context.Context, token string) error {
	return db.gdb.WithContext(ctx).Where("token = ?", token).Delete(&sessionRow{}).Error
}

func (db *DB) CleanExpiredSessions(ctx context.Context) (int64, error) {
	result := db.gdb.WithContext(ctx).Where("expires_at <= ?", time.Now()).Delete(&sessionRow{})
	return result.RowsAffected, result.Error
}

func (db *DB) CreateExpense(ctx context.Context, e *models.Expense) error {
	row := expenseRow{UserID: e.UserID, Date: e.Date, Amount: e.Amount, Category: e.Category, Note: e.Note}
	if err := db.gdb.WithContext(ctx).Omit("User").Create(&row).Error; err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	e.ID = row.ID
	return nil
}

func (db *DB) DeleteExpense(ctx context.Context, ownerID, id int64) error {
	return db.gdb.WithContext(ctx).Where("id = ? AND user_id = ?", id, ownerID).Delete(&expenseRow{}).Error
}

func (db *DB) ListExpenses(ctx context.Context, ownerID int64) ([]models.Expense, error) {
	var rows []expenseRow
	if err := db.gdb.WithContext(ctx).Where("user_id = ?", ownerID).Order("id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toExpenses(rows), nil
}

func (db *DB) ListRecent(ctx context.Context, ownerID int64, category string, limit int) ([]models.Expense, error) {
	q := db.gdb.WithContext(ctx).Where("user_id = ?", ownerID)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var rows []expenseRow
	if err := q.Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toExpenses(rows), nil
}

func toExpenses(rows []expenseRow) []models.Expense {
	expenses := make([]models.Expense, 0, len(rows))
	for _, r := range rows {
		expenses = append(expenses, models.Expense{
			ID:       r.ID,
			UserID:   r.UserID,
			Date:     r.Date,
			Amount:   r.Amount,
			Category: r.Category,
			Note:     r.Note,
		})
	}
	return expenses
}

func (db *DB) TotalSpent(ctx context.Context, ownerID int64) (float64, error) {
	var total float64
	err := db.gdb.WithContext(ctx).Model(&expenseRow{}).
		Where("user_id = ?", ownerID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}

func (db *DB) CountExpenses(ctx context.Context, ownerID int64) (int, error) {
	var count int64
	err := db.gdb.WithContext(ctx).Model(&expenseRow{}).Where("user_id = ?", ownerID).Count(&count).Error
	return int(count), err
}

func (db *DB) CategoryTotals(ctx context.Context, ownerID int64) ([]models.CategoryTotal, error) {
	totals := []models.CategoryTotal{}
	err := db.gdb.WithContext(ctx).Model(&expenseRow{}).
		Select("category, COALESCE(SUM(amount), 0) AS total").
		Where("user_id = ?", ownerID).
		Group("category").
		Order("total DESC, category ASC").
		Scan(&totals).Error
	return totals, err
}

func (db *DB) MonthTotals(ctx context.Context, ownerID int64) ([]models.MonthTotal, error) {
	totals := []models.MonthTotal{}
	err := db.gdb.WithContext(ctx).Model(&expenseRow{}).
		Select("SUBSTRING(date, 1, 7) AS month, COALESCE(SUM(amount), 0) AS total").
		Where("user_id = ?", ownerID).
		Group("month").
		Order("month DESC").
		Scan(&totals).Error
	return totals, err
}

func (db *DB) Categories(ctx context.Context, ownerID int64) ([]string, error) {
	categories := []string{}
	err := db.gdb.WithContext(ctx).Model(&expenseRow{}).
		Where("user_id = ?", ownerID).
		Distinct().
		Order("category").
		Pluck("category", &categories).Error
	return categories, err
}
