package service

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/finbook-app/finbook/pkg/models"
	"github.com/finbook-app/finbook/pkg/storage"
)

// Dashboard is the aggregated read model behind the landing page.
type Dashboard struct {
	TotalBalance  decimal.Decimal         `json:"total_balance"`
	MonthlyIncome decimal.Decimal         `json:"monthly_income"`
	MonthlySpend  decimal.Decimal         `json:"monthly_spend"`
	Breakdown     []storage.CategoryTotal `json:"breakdown"`
	Recent        []models.Transaction    `json:"recent"`
	Accounts      []models.Account        `json:"accounts"`
	UpcomingRules []models.RecurringTransaction `json:"upcoming_rules"`
}

// recentWindowDays bounds the income/spend and breakdown aggregates.
const recentWindowDays = 30

// BuildDashboard projects any due recurring transactions first, then
// assembles the totals. The projection step is what makes recurring
// transactions appear without a background scheduler.
func (s *Service) BuildDashboard(ownerID uint) (*Dashboard, error) {
	if _, err := s.ProjectDue(ownerID); err != nil {
		return nil, err
	}

	accounts, err := s.store.ListAccounts(ownerID)
	if err != nil {
		return nil, err
	}
	total := decimal.Zero
	for _, a := range accounts {
		total = total.Add(a.Balance)
	}

	since := s.today().AddDate(0, 0, -recentWindowDays)
	income, expense, err := s.store.FlowSince(ownerID, since)
	if err != nil {
		return nil, err
	}
	breakdown, err := s.store.ExpenseBreakdown(ownerID, since)
	if err != nil {
		return nil, err
	}
	recent, err := s.store.RecentTransactions(ownerID, 10)
	if err != nil {
		return nil, err
	}
	rules, err := s.store.ListRules(ownerID)
	if err != nil {
		return nil, err
	}
	upcoming := rules[:0:0]
	for _, r := range rules {
		if r.Active {
			upcoming = append(upcoming, r)
		}
	}

	return &Dashboard{
		TotalBalance:  total,
		MonthlyIncome: income,
		MonthlySpend:  expense.Abs(),
		Breakdown:     breakdown,
		Recent:        recent,
		Accounts:      accounts,
		UpcomingRules: upcoming,
	}, nil
}

// AccountActivity returns the newest transactions booked against one
// account, capped at limit.
func (s *Service) AccountActivity(ownerID, accountID uint, limit int) ([]models.Transaction, error) {
	if _, err := s.store.GetAccount(ownerID, accountID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}
	return s.store.ListTransactions(accountID, limit)
}

// RecentTransactions returns the newest transactions across all of the
// owner's accounts.
func (s *Service) RecentTransactions(ownerID uint, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.store.RecentTransactions(ownerID, limit)
}

// Settings returns the owner's profile.
func (s *Service) Settings(ownerID uint) (*models.User, error) {
	return s.store.GetUser(ownerID)
}

// UpdateSettings changes the display currency and, when a non-empty
// value is given, the stored AI credential.
func (s *Service) UpdateSettings(ownerID uint, currency, aiKey string) (*models.User, error) {
	user, err := s.store.GetUser(ownerID)
	if err != nil {
		return nil, err
	}
	if c := strings.TrimSpace(currency); c != "" {
		user.Currency = c
	}
	if k := strings.TrimSpace(aiKey); k != "" {
		user.AIKey = k
	}
	if err := s.store.UpdateUser(user); err != nil {
		return nil, err
	}
	return user, nil
}
