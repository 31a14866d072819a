package service

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/finbook-app/finbook/pkg/models"
	"github.com/finbook-app/finbook/pkg/storage"
)

func (s *Service) ListAccounts(ownerID uint) ([]models.Account, error) {
	return s.store.ListAccounts(ownerID)
}

func (s *Service) GetAccount(ownerID, id uint) (*models.Account, error) {
	return s.store.GetAccount(ownerID, id)
}

// CreateAccount opens an account with an opening balance. The opening
// balance is not a transaction; it is the baseline the transaction sums
// build on.
func (s *Service) CreateAccount(ownerID uint, name, accountType string, balance decimal.Decimal) (*models.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationf("account name is required")
	}
	accountType = strings.TrimSpace(accountType)
	if accountType == "" {
		accountType = "checking"
	}

	account := &models.Account{Name: name, Type: accountType, Balance: balance, UserID: ownerID}
	if err := s.store.CreateAccount(account); err != nil {
		return nil, err
	}
	s.logger.Info("account created", "account", account.ID, "name", name)
	return account, nil
}

// UpdateAccount renames or retypes an account. The balance is never
// edited directly; it only moves through transactions.
func (s *Service) UpdateAccount(ownerID, id uint, name, accountType string) (*models.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationf("account name is required")
	}

	account, err := s.store.GetAccount(ownerID, id)
	if err != nil {
		return nil, err
	}
	account.Name = name
	if accountType = strings.TrimSpace(accountType); accountType != "" {
		account.Type = accountType
	}
	if err := s.store.UpdateAccount(account); err != nil {
		return nil, err
	}
	return account, nil
}

// DeleteAccount removes the account, its transactions and its recurring
// rules in one unit of work.
func (s *Service) DeleteAccount(ownerID, id uint) error {
	return s.store.Atomic(func(tx storage.Store) error {
		return tx.DeleteAccount(ownerID, id)
	})
}
