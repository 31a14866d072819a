// Package storage is the persistence boundary of finbook. Every query
// is scoped by the owning user so one tenant can never see another
// tenant's rows.
package storage

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finbook-app/finbook/pkg/models"
)

// ErrNotFound is returned for owner-scoped lookups that miss.
var ErrNotFound = errors.New("not found")

// CategoryTotal is one slice of the expense breakdown.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

// Store is the storage collaborator consumed by the service, importer
// and projector. Implementations must serialize concurrent units of
// work against the same data; callers never lock.
type Store interface {
	// Users.
	GetUser(id uint) (*models.User, error)
	FirstUser() (*models.User, error)
	CreateUser(u *models.User) error
	UpdateUser(u *models.User) error

	// Accounts. DeleteAccount cascades: the account's transactions and
	// recurring rules are removed in the same unit of work.
	ListAccounts(ownerID uint) ([]models.Account, error)
	GetAccount(ownerID, id uint) (*models.Account, error)
	CreateAccount(a *models.Account) error
	UpdateAccount(a *models.Account) error
	DeleteAccount(ownerID, id uint) error

	// Categories.
	ListCategories(ownerID uint) ([]models.Category, error)
	FindCategoryByName(ownerID uint, name string) (*models.Category, error)
	CreateCategory(c *models.Category) error
	DeleteCategory(ownerID, id uint) error

	// Transactions.
	GetTransaction(ownerID, id uint) (*models.Transaction, error)
	ListTransactions(accountID uint, limit int) ([]models.Transaction, error)
	RecentTransactions(ownerID uint, limit int) ([]models.Transaction, error)
	CreateTransaction(t *models.Transaction) error
	UpdateTransaction(t *models.Transaction) error
	DeleteTransaction(id uint) error
	// TransactionExists reports whether the account already has a
	// transaction with exactly this date, amount and description.
	TransactionExists(accountID uint, date time.Time, amount decimal.Decimal, description string) (bool, error)
	// FlowSince returns the summed income (positive amounts) and expense
	// (negative amounts, returned as a negative sum) booked since the
	// given time across all of the owner's accounts.
	FlowSince(ownerID uint, since time.Time) (income, expense decimal.Decimal, err error)
	ExpenseBreakdown(ownerID uint, since time.Time) ([]CategoryTotal, error)

	// Recurring rules.
	ListRules(ownerID uint) ([]models.RecurringTransaction, error)
	GetRule(ownerID, id uint) (*models.RecurringTransaction, error)
	// DueRules returns active rules whose cursor is on or before today.
	DueRules(ownerID uint, today time.Time) ([]models.RecurringTransaction, error)
	CreateRule(r *models.RecurringTransaction) error
	UpdateRule(r *models.RecurringTransaction) error
	DeleteRule(ownerID, id uint) error

	// Atomic runs fn as one unit of work: either every write inside fn
	// is committed, or none are.
	Atomic(fn func(Store) error) error
}
