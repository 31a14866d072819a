package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finbook-app/finbook/pkg/models"
)

// Memory is an in-memory Store. It backs tests and the ephemeral
// server mode; nothing survives a restart.
type Memory struct {
	// commitMu serializes whole Atomic units of work; mu only protects
	// individual map accesses.
	commitMu     sync.Mutex
	mu           sync.Mutex
	users        map[uint]models.User
	accounts     map[uint]models.Account
	categories   map[uint]models.Category
	transactions map[uint]models.Transaction
	rules        map[uint]models.RecurringTransaction
	nextID       uint
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:        map[uint]models.User{},
		accounts:     map[uint]models.Account{},
		categories:   map[uint]models.Category{},
		transactions: map[uint]models.Transaction{},
		rules:        map[uint]models.RecurringTransaction{},
		nextID:       1,
	}
}

// Atomic runs fn against a deep copy of the store and adopts the copy's
// state only when fn succeeds, giving the same all-or-nothing behavior
// as a database transaction. Concurrent units of work are serialized so
// a later commit can never discard an earlier one.
func (m *Memory) Atomic(fn func(Store) error) error {
	m.commitMu.Lock()
	defer m.commitMu.Unlock()

	m.mu.Lock()
	clone := m.cloneLocked()
	m.mu.Unlock()

	if err := fn(clone); err != nil {
		return err
	}

	m.mu.Lock()
	m.users = clone.users
	m.accounts = clone.accounts
	m.categories = clone.categories
	m.transactions = clone.transactions
	m.rules = clone.rules
	m.nextID = clone.nextID
	m.mu.Unlock()
	return nil
}

func (m *Memory) cloneLocked() *Memory {
	clone := NewMemory()
	clone.nextID = m.nextID
	for k, v := range m.users {
		clone.users[k] = v
	}
	for k, v := range m.accounts {
		clone.accounts[k] = v
	}
	for k, v := range m.categories {
		clone.categories[k] = v
	}
	for k, v := range m.transactions {
		clone.transactions[k] = v
	}
	for k, v := range m.rules {
		clone.rules[k] = v
	}
	return clone
}

func (m *Memory) id() uint {
	id := m.nextID
	m.nextID++
	return id
}

func (m *Memory) GetUser(id uint) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *Memory) FirstUser() (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var first *models.User
	for id := range m.users {
		u := m.users[id]
		if first == nil || u.ID < first.ID {
			first = &u
		}
	}
	if first == nil {
		return nil, ErrNotFound
	}
	return first, nil
}

func (m *Memory) CreateUser(u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == 0 {
		u.ID = m.id()
	}
	m.users[u.ID] = *u
	return nil
}

func (m *Memory) UpdateUser(u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return ErrNotFound
	}
	m.users[u.ID] = *u
	return nil
}

func (m *Memory) ListAccounts(ownerID uint) ([]models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Account
	for _, a := range m.accounts {
		if a.UserID == ownerID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) GetAccount(ownerID, id uint) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok || a.UserID != ownerID {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (m *Memory) CreateAccount(a *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == 0 {
		a.ID = m.id()
	}
	m.accounts[a.ID] = *a
	return nil
}

func (m *Memory) UpdateAccount(a *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[a.ID]; !ok {
		return ErrNotFound
	}
	m.accounts[a.ID] = *a
	return nil
}

func (m *Memory) DeleteAccount(ownerID, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok || a.UserID != ownerID {
		return ErrNotFound
	}
	delete(m.accounts, id)
	for tid, t := range m.transactions {
		if t.AccountID == id {
			delete(m.transactions, tid)
		}
	}
	for rid, r := range m.rules {
		if r.AccountID == id {
			delete(m.rules, rid)
		}
	}
	return nil
}

func (m *Memory) ListCategories(ownerID uint) ([]models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Category
	for _, c := range m.categories {
		if c.UserID == ownerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (m *Memory) FindCategoryByName(ownerID uint, name string) (*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.categories {
		if c.UserID == ownerID && c.Name == name {
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) CreateCategory(c *models.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == 0 {
		c.ID = m.id()
	}
	m.categories[c.ID] = *c
	return nil
}

func (m *Memory) DeleteCategory(ownerID, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok || c.UserID != ownerID {
		return ErrNotFound
	}
	delete(m.categories, id)
	for tid, t := range m.transactions {
		if t.CategoryID != nil && *t.CategoryID == id {
			t.CategoryID = nil
			m.transactions[tid] = t
		}
	}
	return nil
}

func (m *Memory) GetTransaction(ownerID, id uint) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[id]
	if !ok {
		return nil, ErrNotFound
	}
	a, ok := m.accounts[t.AccountID]
	if !ok || a.UserID != ownerID {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (m *Memory) ListTransactions(accountID uint, limit int) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Transaction
	for _, t := range m.transactions {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	sortByDateDesc(out)
	return clip(out, limit), nil
}

func (m *Memory) RecentTransactions(ownerID uint, limit int) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Transaction
	for _, t := range m.transactions {
		if a, ok := m.accounts[t.AccountID]; ok && a.UserID == ownerID {
			out = append(out, t)
		}
	}
	sortByDateDesc(out)
	return clip(out, limit), nil
}

func (m *Memory) CreateTransaction(t *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == 0 {
		t.ID = m.id()
	}
	m.transactions[t.ID] = *t
	return nil
}

func (m *Memory) UpdateTransaction(t *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.transactions[t.ID]; !ok {
		return ErrNotFound
	}
	m.transactions[t.ID] = *t
	return nil
}

func (m *Memory) DeleteTransaction(id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.transactions[id]; !ok {
		return ErrNotFound
	}
	delete(m.transactions, id)
	return nil
}

func (m *Memory) TransactionExists(accountID uint, date time.Time, amount decimal.Decimal, description string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.transactions {
		if t.AccountID == accountID &&
			t.Date.Equal(date) &&
			t.Amount.Equal(amount) &&
			t.Description == description {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) FlowSince(ownerID uint, since time.Time) (decimal.Decimal, decimal.Decimal, error) {
	txs, err := m.ownerTransactionsSince(ownerID, since)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return sumFlow(txs)
}

func (m *Memory) ExpenseBreakdown(ownerID uint, since time.Time) ([]CategoryTotal, error) {
	txs, err := m.ownerTransactionsSince(ownerID, since)
	if err != nil {
		return nil, err
	}
	categories, err := m.ListCategories(ownerID)
	if err != nil {
		return nil, err
	}
	return buildBreakdown(txs, categories), nil
}

func (m *Memory) ownerTransactionsSince(ownerID uint, since time.Time) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Transaction
	for _, t := range m.transactions {
		if t.Date.Before(since) {
			continue
		}
		if a, ok := m.accounts[t.AccountID]; ok && a.UserID == ownerID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *Memory) ListRules(ownerID uint) ([]models.RecurringTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.RecurringTransaction
	for _, r := range m.rules {
		if r.UserID == ownerID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextDue.Before(out[j].NextDue) })
	return out, nil
}

func (m *Memory) GetRule(ownerID, id uint) (*models.RecurringTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rules[id]
	if !ok || r.UserID != ownerID {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *Memory) DueRules(ownerID uint, today time.Time) ([]models.RecurringTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.RecurringTransaction
	for _, r := range m.rules {
		if r.UserID == ownerID && r.Active && !r.NextDue.After(today) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextDue.Before(out[j].NextDue) })
	return out, nil
}

func (m *Memory) CreateRule(r *models.RecurringTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == 0 {
		r.ID = m.id()
	}
	m.rules[r.ID] = *r
	return nil
}

func (m *Memory) UpdateRule(r *models.RecurringTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rules[r.ID]; !ok {
		return ErrNotFound
	}
	m.rules[r.ID] = *r
	return nil
}

func (m *Memory) DeleteRule(ownerID, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rules[id]
	if !ok || r.UserID != ownerID {
		return ErrNotFound
	}
	delete(m.rules, id)
	return nil
}

func sortByDateDesc(txs []models.Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.After(txs[j].Date)
		}
		return txs[i].ID > txs[j].ID
	})
}

func clip(txs []models.Transaction, limit int) []models.Transaction {
	if limit > 0 && len(txs) > limit {
		return txs[:limit]
	}
	return txs
}
