package service

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finbook-app/finbook/pkg/models"
	"github.com/finbook-app/finbook/pkg/storage"
)

// TransactionInput carries the user-editable fields of a transaction.
type TransactionInput struct {
	Description string
	Amount      decimal.Decimal
	Date        time.Time // zero means "now"
	CategoryID  *uint
}

// AddTransaction books a transaction and moves the account balance by
// its amount, atomically.
func (s *Service) AddTransaction(ownerID, accountID uint, in TransactionInput) (*models.Transaction, error) {
	in.Description = strings.TrimSpace(in.Description)
	if in.Description == "" {
		return nil, validationf("description is required")
	}
	if in.Date.IsZero() {
		in.Date = s.clock.Now().UTC()
	}

	var created *models.Transaction
	err := s.store.Atomic(func(tx storage.Store) error {
		account, err := tx.GetAccount(ownerID, accountID)
		if err != nil {
			return err
		}
		created = &models.Transaction{
			Description: in.Description,
			Amount:      in.Amount,
			Date:        in.Date,
			AccountID:   account.ID,
			CategoryID:  in.CategoryID,
		}
		if err := tx.CreateTransaction(created); err != nil {
			return err
		}
		account.Balance = account.Balance.Add(in.Amount)
		return tx.UpdateAccount(account)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateTransaction edits a transaction in place. The account balance
// absorbs the difference between the old and new amount.
func (s *Service) UpdateTransaction(ownerID, id uint, in TransactionInput) (*models.Transaction, error) {
	in.Description = strings.TrimSpace(in.Description)
	if in.Description == "" {
		return nil, validationf("description is required")
	}

	var updated *models.Transaction
	err := s.store.Atomic(func(tx storage.Store) error {
		t, err := tx.GetTransaction(ownerID, id)
		if err != nil {
			return err
		}
		account, err := tx.GetAccount(ownerID, t.AccountID)
		if err != nil {
			return err
		}

		oldAmount := t.Amount
		t.Description = in.Description
		t.Amount = in.Amount
		t.CategoryID = in.CategoryID
		if !in.Date.IsZero() {
			t.Date = in.Date
		}
		if err := tx.UpdateTransaction(t); err != nil {
			return err
		}
		account.Balance = account.Balance.Sub(oldAmount).Add(in.Amount)
		if err := tx.UpdateAccount(account); err != nil {
			return err
		}
		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteTransaction removes a transaction and backs its amount out of
// the account balance.
func (s *Service) DeleteTransaction(ownerID, id uint) error {
	return s.store.Atomic(func(tx storage.Store) error {
		t, err := tx.GetTransaction(ownerID, id)
		if err != nil {
			return err
		}
		account, err := tx.GetAccount(ownerID, t.AccountID)
		if err != nil {
			return err
		}
		if err := tx.DeleteTransaction(t.ID); err != nil {
			return err
		}
		account.Balance = account.Balance.Sub(t.Amount)
		return tx.UpdateAccount(account)
	})
}
