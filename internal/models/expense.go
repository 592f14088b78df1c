package models

import "time"

// DateLayout is the calendar date format expenses are stored with.
const DateLayout = "2006-01-02"

// Expense represents a single expense owned by a user.
type Expense struct {
	ID       int64   `json:"id"`
	UserID   int64   `json:"user_id"`
	Date     string  `json:"date"`
	Amount   float64 `json:"amount"`
	Category string  `json:"category"`
	Note     string  `json:"note,omitempty"`
}

// Month returns the YYYY-MM prefix of the expense date.
func (e Expense) Month() string {
	if len(e.Date) < 7 {
		return e.Date
	}
	return e.Date[:7]
}

// User represents a user account.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}

// Session represents a server-side login session.
type Session struct {
	Token        string    `json:"token"`
	UserID       int64     `json:"user_id"`
	Username     string    `json:"username"`
	ExpiresAt    time.Time `json:"expires_at"`
	LastActivity time.Time `json:"last_activity"`
}

// User returns the identity the session is bound to.
func (s *Session) User() *User {
	return &User{ID: s.UserID, Username: s.Username}
}
