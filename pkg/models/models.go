package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Frequency is the recurrence interval of a recurring transaction.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// Valid reports whether f is one of the supported frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

// CategoryKind distinguishes income categories from expense categories.
type CategoryKind string

const (
	CategoryIncome  CategoryKind = "income"
	CategoryExpense CategoryKind = "expense"
)

// Valid reports whether k is one of the supported kinds.
func (k CategoryKind) Valid() bool {
	return k == CategoryIncome || k == CategoryExpense
}

// User owns all other entities. Authentication lives outside this module;
// the user record only carries per-user settings and the optional
// credential for the AI categorization capability.
type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"size:150;uniqueIndex;not null" json:"name"`
	Currency string `gorm:"size:5;not null;default:$" json:"currency"`
	AIKey    string `gorm:"size:200" json:"-"`
}

// Account is a single money account. Balance is a running total that is
// kept equal to the sum of the account's transaction amounts on every
// mutation; it is never recomputed from scratch.
type Account struct {
	ID      uint            `gorm:"primaryKey" json:"id"`
	Name    string          `gorm:"size:100;not null" json:"name"`
	Type    string          `gorm:"size:50;not null;default:checking" json:"type"`
	Balance decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"balance"`
	UserID  uint            `gorm:"index;not null" json:"user_id"`
}

// Category groups transactions. Names are unique per owner, not globally.
type Category struct {
	ID     uint         `gorm:"primaryKey" json:"id"`
	Name   string       `gorm:"size:50;not null" json:"name"`
	Kind   CategoryKind `gorm:"size:10;not null" json:"kind"`
	UserID uint         `gorm:"index;not null" json:"user_id"`
}

// Transaction is a single booked movement. Positive amounts are income,
// negative amounts are expenses. ImportID links rows that arrived in the
// same statement import batch.
type Transaction struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Description string          `gorm:"size:200;not null" json:"description"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Date        time.Time       `gorm:"index;not null" json:"date"`
	AccountID   uint            `gorm:"index;not null" json:"account_id"`
	CategoryID  *uint           `gorm:"index" json:"category_id,omitempty"`
	ImportID    string          `gorm:"size:36" json:"import_id,omitempty"`
}

// RecurringTransaction is a rule that materializes transactions over time.
// NextDue is the cursor: the earliest occurrence that has not yet been
// materialized. Once the cursor passes EndDate the rule goes inactive.
type RecurringTransaction struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	Name       string          `gorm:"size:100;not null" json:"name"`
	Amount     decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Frequency  Frequency       `gorm:"size:10;not null" json:"frequency"`
	StartDate  time.Time       `gorm:"not null" json:"start_date"`
	NextDue    time.Time       `gorm:"index;not null" json:"next_due_date"`
	EndDate    *time.Time      `json:"end_date,omitempty"`
	AccountID  uint            `gorm:"index;not null" json:"account_id"`
	CategoryID *uint           `json:"category_id,omitempty"`
	UserID     uint            `gorm:"index;not null" json:"user_id"`
	Active     bool            `gorm:"not null;default:true" json:"is_active"`
}
