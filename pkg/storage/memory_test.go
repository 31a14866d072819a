package storage

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbook-app/finbook/pkg/models"
)

func seed(t *testing.T) (*Memory, *models.User, *models.Account) {
	t.Helper()
	m := NewMemory()
	owner := &models.User{Name: "lena", Currency: "€"}
	require.NoError(t, m.CreateUser(owner))
	account := &models.Account{Name: "Giro", Balance: decimal.NewFromInt(100), UserID: owner.ID}
	require.NoError(t, m.CreateAccount(account))
	return m, owner, account
}

func TestAtomicRollsBackOnError(t *testing.T) {
	m, owner, account := seed(t)

	boom := errors.New("boom")
	err := m.Atomic(func(tx Store) error {
		if err := tx.CreateTransaction(&models.Transaction{
			Description: "ghost", Amount: decimal.NewFromInt(-10),
			Date: time.Now(), AccountID: account.ID,
		}); err != nil {
			return err
		}
		a, err := tx.GetAccount(owner.ID, account.ID)
		if err != nil {
			return err
		}
		a.Balance = a.Balance.Sub(decimal.NewFromInt(10))
		if err := tx.UpdateAccount(a); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// Nothing inside the failed unit of work is visible.
	txs, err := m.RecentTransactions(owner.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, txs)
	a, err := m.GetAccount(owner.ID, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "100", a.Balance.String())
}

func TestAtomicCommits(t *testing.T) {
	m, owner, account := seed(t)

	err := m.Atomic(func(tx Store) error {
		return tx.CreateTransaction(&models.Transaction{
			Description: "Lunch", Amount: decimal.NewFromInt(-9),
			Date: time.Now(), AccountID: account.ID,
		})
	})
	require.NoError(t, err)

	txs, err := m.RecentTransactions(owner.ID, 0)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestAtomicSerializesConcurrentCommits(t *testing.T) {
	m, owner, account := seed(t)

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.Atomic(func(tx Store) error {
				a, err := tx.GetAccount(owner.ID, account.ID)
				if err != nil {
					return err
				}
				if err := tx.CreateTransaction(&models.Transaction{
					Description: "tick", Amount: decimal.NewFromInt(-1),
					Date: time.Now(), AccountID: account.ID,
				}); err != nil {
					return err
				}
				a.Balance = a.Balance.Sub(decimal.NewFromInt(1))
				return tx.UpdateAccount(a)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// No commit may be discarded by a concurrent one.
	txs, err := m.RecentTransactions(owner.ID, 0)
	require.NoError(t, err)
	assert.Len(t, txs, workers)
	a, err := m.GetAccount(owner.ID, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "92", a.Balance.String())
}

func TestDeleteAccountCascades(t *testing.T) {
	m, owner, account := seed(t)

	require.NoError(t, m.CreateTransaction(&models.Transaction{
		Description: "Lunch", Amount: decimal.NewFromInt(-9),
		Date: time.Now(), AccountID: account.ID,
	}))
	require.NoError(t, m.CreateRule(&models.RecurringTransaction{
		Name: "Rent", Amount: decimal.NewFromInt(-950),
		Frequency: models.FrequencyMonthly,
		StartDate: time.Now(), NextDue: time.Now(),
		AccountID: account.ID, UserID: owner.ID, Active: true,
	}))

	require.NoError(t, m.DeleteAccount(owner.ID, account.ID))

	txs, err := m.RecentTransactions(owner.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, txs)
	rules, err := m.ListRules(owner.ID)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestDeleteCategoryDetachesTransactions(t *testing.T) {
	m, owner, account := seed(t)

	cat := &models.Category{Name: "Food", Kind: models.CategoryExpense, UserID: owner.ID}
	require.NoError(t, m.CreateCategory(cat))
	tx := &models.Transaction{
		Description: "Lunch", Amount: decimal.NewFromInt(-9),
		Date: time.Now(), AccountID: account.ID, CategoryID: &cat.ID,
	}
	require.NoError(t, m.CreateTransaction(tx))

	require.NoError(t, m.DeleteCategory(owner.ID, cat.ID))

	got, err := m.GetTransaction(owner.ID, tx.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CategoryID)
}

func TestOwnerScoping(t *testing.T) {
	m, _, account := seed(t)

	other := &models.User{Name: "mallory"}
	require.NoError(t, m.CreateUser(other))

	_, err := m.GetAccount(other.ID, account.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.DeleteAccount(other.ID, account.ID), ErrNotFound)
}

func TestFlowSinceSplitsIncomeAndExpense(t *testing.T) {
	m, owner, account := seed(t)
	now := time.Now()

	for _, amount := range []string{"2500", "-60", "-40"} {
		require.NoError(t, m.CreateTransaction(&models.Transaction{
			Description: "x", Amount: decimal.RequireFromString(amount),
			Date: now, AccountID: account.ID,
		}))
	}
	// Before the window, must not count.
	require.NoError(t, m.CreateTransaction(&models.Transaction{
		Description: "old", Amount: decimal.NewFromInt(-500),
		Date: now.AddDate(0, 0, -60), AccountID: account.ID,
	}))

	income, expense, err := m.FlowSince(owner.ID, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, "2500", income.String())
	assert.Equal(t, "-100", expense.String())
}

func TestDueRulesFiltersInactiveAndFuture(t *testing.T) {
	m, owner, account := seed(t)
	today := time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)

	mk := func(name string, due time.Time, active bool) {
		require.NoError(t, m.CreateRule(&models.RecurringTransaction{
			Name: name, Amount: decimal.NewFromInt(-1),
			Frequency: models.FrequencyDaily,
			StartDate: due, NextDue: due,
			AccountID: account.ID, UserID: owner.ID, Active: active,
		}))
	}
	mk("due", today.AddDate(0, 0, -1), true)
	mk("today", today, true)
	mk("future", today.AddDate(0, 0, 1), true)
	mk("paused", today, false)

	due, err := m.DueRules(owner.ID, today)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "due", due[0].Name)
	assert.Equal(t, "today", due[1].Name)
}
