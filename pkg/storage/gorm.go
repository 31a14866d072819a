package storage

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/finbook-app/finbook/pkg/models"
)

// DB is the SQLite-backed Store.
type DB struct {
	db *gorm.DB
}

// Open opens (or creates) the SQLite database at path and migrates the
// schema.
func Open(path string) (*DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Account{},
		&models.Category{},
		&models.Transaction{},
		&models.RecurringTransaction{},
	); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return &DB{db: db}, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (g *DB) GetUser(id uint) (*models.User, error) {
	var u models.User
	if err := g.db.First(&u, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (g *DB) FirstUser() (*models.User, error) {
	var u models.User
	if err := g.db.Order("id").First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (g *DB) CreateUser(u *models.User) error {
	return g.db.Create(u).Error
}

func (g *DB) UpdateUser(u *models.User) error {
	return g.db.Save(u).Error
}

func (g *DB) ListAccounts(ownerID uint) ([]models.Account, error) {
	var accounts []models.Account
	err := g.db.Where("user_id = ?", ownerID).Order("name").Find(&accounts).Error
	return accounts, err
}

func (g *DB) GetAccount(ownerID, id uint) (*models.Account, error) {
	var a models.Account
	if err := g.db.Where("id = ? AND user_id = ?", id, ownerID).First(&a).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (g *DB) CreateAccount(a *models.Account) error {
	return g.db.Create(a).Error
}

func (g *DB) UpdateAccount(a *models.Account) error {
	return g.db.Save(a).Error
}

// DeleteAccount removes the account together with its transactions and
// recurring rules. The cascade is spelled out here instead of relying on
// database-level foreign key actions.
func (g *DB) DeleteAccount(ownerID, id uint) error {
	return g.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, ownerID).Delete(&models.Account{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("account_id = ?", id).Delete(&models.Transaction{}).Error; err != nil {
			return err
		}
		return tx.Where("account_id = ?", id).Delete(&models.RecurringTransaction{}).Error
	})
}

func (g *DB) ListCategories(ownerID uint) ([]models.Category, error) {
	var categories []models.Category
	err := g.db.Where("user_id = ?", ownerID).Order("kind, name").Find(&categories).Error
	return categories, err
}

func (g *DB) FindCategoryByName(ownerID uint, name string) (*models.Category, error) {
	var c models.Category
	if err := g.db.Where("user_id = ? AND name = ?", ownerID, name).First(&c).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (g *DB) CreateCategory(c *models.Category) error {
	return g.db.Create(c).Error
}

func (g *DB) DeleteCategory(ownerID, id uint) error {
	return g.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, ownerID).Delete(&models.Category{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		// Transactions keep existing but lose the category reference.
		return tx.Model(&models.Transaction{}).
			Where("category_id = ?", id).
			Update("category_id", nil).Error
	})
}

func (g *DB) GetTransaction(ownerID, id uint) (*models.Transaction, error) {
	var t models.Transaction
	err := g.db.
		Joins("JOIN accounts ON accounts.id = transactions.account_id").
		Where("transactions.id = ? AND accounts.user_id = ?", id, ownerID).
		First(&t).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (g *DB) ListTransactions(accountID uint, limit int) ([]models.Transaction, error) {
	var txs []models.Transaction
	q := g.db.Where("account_id = ?", accountID).Order("date DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return txs, q.Find(&txs).Error
}

func (g *DB) RecentTransactions(ownerID uint, limit int) ([]models.Transaction, error) {
	var txs []models.Transaction
	q := g.db.
		Joins("JOIN accounts ON accounts.id = transactions.account_id").
		Where("accounts.user_id = ?", ownerID).
		Order("transactions.date DESC, transactions.id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return txs, q.Find(&txs).Error
}

func (g *DB) CreateTransaction(t *models.Transaction) error {
	return g.db.Create(t).Error
}

func (g *DB) UpdateTransaction(t *models.Transaction) error {
	return g.db.Save(t).Error
}

func (g *DB) DeleteTransaction(id uint) error {
	return g.db.Delete(&models.Transaction{}, id).Error
}

func (g *DB) TransactionExists(accountID uint, date time.Time, amount decimal.Decimal, description string) (bool, error) {
	// Amounts are stored as decimal strings, so equality is checked in
	// Go rather than relying on string comparison in SQL.
	var txs []models.Transaction
	err := g.db.
		Where("account_id = ? AND date = ? AND description = ?", accountID, date, description).
		Find(&txs).Error
	if err != nil {
		return false, err
	}
	for _, t := range txs {
		if t.Amount.Equal(amount) {
			return true, nil
		}
	}
	return false, nil
}

func (g *DB) FlowSince(ownerID uint, since time.Time) (decimal.Decimal, decimal.Decimal, error) {
	var txs []models.Transaction
	err := g.db.
		Joins("JOIN accounts ON accounts.id = transactions.account_id").
		Where("accounts.user_id = ? AND transactions.date >= ?", ownerID, since).
		Find(&txs).Error
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return sumFlow(txs)
}

func (g *DB) ExpenseBreakdown(ownerID uint, since time.Time) ([]CategoryTotal, error) {
	var txs []models.Transaction
	err := g.db.
		Joins("JOIN accounts ON accounts.id = transactions.account_id").
		Where("accounts.user_id = ? AND transactions.date >= ?", ownerID, since).
		Find(&txs).Error
	if err != nil {
		return nil, err
	}
	categories, err := g.ListCategories(ownerID)
	if err != nil {
		return nil, err
	}
	return buildBreakdown(txs, categories), nil
}

func (g *DB) ListRules(ownerID uint) ([]models.RecurringTransaction, error) {
	var rules []models.RecurringTransaction
	err := g.db.Where("user_id = ?", ownerID).Order("next_due").Find(&rules).Error
	return rules, err
}

func (g *DB) GetRule(ownerID, id uint) (*models.RecurringTransaction, error) {
	var r models.RecurringTransaction
	if err := g.db.Where("id = ? AND user_id = ?", id, ownerID).First(&r).Error; err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

func (g *DB) DueRules(ownerID uint, today time.Time) ([]models.RecurringTransaction, error) {
	var rules []models.RecurringTransaction
	err := g.db.
		Where("user_id = ? AND active = ? AND next_due <= ?", ownerID, true, today).
		Order("next_due").
		Find(&rules).Error
	return rules, err
}

func (g *DB) CreateRule(r *models.RecurringTransaction) error {
	return g.db.Create(r).Error
}

func (g *DB) UpdateRule(r *models.RecurringTransaction) error {
	return g.db.Save(r).Error
}

func (g *DB) DeleteRule(ownerID, id uint) error {
	res := g.db.Where("id = ? AND user_id = ?", id, ownerID).Delete(&models.RecurringTransaction{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *DB) Atomic(fn func(Store) error) error {
	return g.db.Transaction(func(tx *gorm.DB) error {
		return fn(&DB{db: tx})
	})
}

// sumFlow splits transactions into an income sum and an expense sum.
// The expense sum keeps its negative sign.
func sumFlow(txs []models.Transaction) (decimal.Decimal, decimal.Decimal, error) {
	income, expense := decimal.Zero, decimal.Zero
	for _, t := range txs {
		if t.Amount.IsPositive() {
			income = income.Add(t.Amount)
		} else {
			expense = expense.Add(t.Amount)
		}
	}
	return income, expense, nil
}

// buildBreakdown aggregates expense amounts per category name, largest
// spend first. Uncategorized expenses are grouped under an empty name.
func buildBreakdown(txs []models.Transaction, categories []models.Category) []CategoryTotal {
	names := make(map[uint]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	totals := map[string]decimal.Decimal{}
	var order []string
	for _, t := range txs {
		if !t.Amount.IsNegative() {
			continue
		}
		name := ""
		if t.CategoryID != nil {
			name = names[*t.CategoryID]
		}
		if _, seen := totals[name]; !seen {
			order = append(order, name)
		}
		totals[name] = totals[name].Add(t.Amount.Abs())
	}

	out := make([]CategoryTotal, 0, len(order))
	for _, name := range order {
		out = append(out, CategoryTotal{Category: name, Total: totals[name]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Total.GreaterThan(out[j].Total)
	})
	return out
}
