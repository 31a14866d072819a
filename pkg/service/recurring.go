package service

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finbook-app/finbook/pkg/models"
	"github.com/finbook-app/finbook/pkg/recurrence"
	"github.com/finbook-app/finbook/pkg/storage"
)

// RuleInput carries the user-editable fields of a recurring rule.
type RuleInput struct {
	Name       string
	Amount     decimal.Decimal
	Frequency  models.Frequency
	StartDate  time.Time
	EndDate    *time.Time
	AccountID  uint
	CategoryID *uint
}

func (in *RuleInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return validationf("rule name is required")
	}
	if !in.Frequency.Valid() {
		return validationf("frequency must be one of daily, weekly, monthly, yearly")
	}
	if in.StartDate.IsZero() {
		return validationf("start date is required")
	}
	if in.EndDate != nil && recurrence.CivilDate(*in.EndDate).Before(recurrence.CivilDate(in.StartDate)) {
		return validationf("end date must not be before start date")
	}
	return nil
}

func (s *Service) ListRules(ownerID uint) ([]models.RecurringTransaction, error) {
	return s.store.ListRules(ownerID)
}

// CreateRule registers a recurring rule. The cursor starts at the first
// occurrence on or after today: occurrences that already elapsed before
// the rule existed are skipped, never materialized.
func (s *Service) CreateRule(ownerID uint, in RuleInput) (*models.RecurringTransaction, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if _, err := s.store.GetAccount(ownerID, in.AccountID); err != nil {
		return nil, err
	}

	rule := &models.RecurringTransaction{
		Name:       in.Name,
		Amount:     in.Amount,
		Frequency:  in.Frequency,
		StartDate:  recurrence.CivilDate(in.StartDate),
		NextDue:    recurrence.FastForward(in.StartDate, in.Frequency, s.today()),
		EndDate:    in.EndDate,
		AccountID:  in.AccountID,
		CategoryID: in.CategoryID,
		UserID:     ownerID,
		Active:     true,
	}
	if err := s.store.CreateRule(rule); err != nil {
		return nil, err
	}
	s.logger.Info("recurring rule created",
		"rule", rule.ID, "name", rule.Name, "next_due", rule.NextDue.Format("2006-01-02"))
	return rule, nil
}

// UpdateRule edits a rule. Changing the start date or frequency resets
// the cursor via fast-forward, so the next materialization picks up
// from the new schedule instead of replaying the old one.
func (s *Service) UpdateRule(ownerID, id uint, in RuleInput) (*models.RecurringTransaction, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	rule, err := s.store.GetRule(ownerID, id)
	if err != nil {
		return nil, err
	}
	if in.AccountID != rule.AccountID {
		if _, err := s.store.GetAccount(ownerID, in.AccountID); err != nil {
			return nil, err
		}
	}

	scheduleChanged := !recurrence.CivilDate(in.StartDate).Equal(recurrence.CivilDate(rule.StartDate)) ||
		in.Frequency != rule.Frequency

	rule.Name = in.Name
	rule.Amount = in.Amount
	rule.Frequency = in.Frequency
	rule.StartDate = recurrence.CivilDate(in.StartDate)
	rule.EndDate = in.EndDate
	rule.AccountID = in.AccountID
	rule.CategoryID = in.CategoryID
	if scheduleChanged {
		rule.NextDue = recurrence.FastForward(rule.StartDate, rule.Frequency, s.today())
	}
	// Active is deliberately left alone: editing a rule must not undo an
	// explicit pause. Reactivation goes through ToggleRule.

	if err := s.store.UpdateRule(rule); err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *Service) DeleteRule(ownerID, id uint) error {
	return s.store.DeleteRule(ownerID, id)
}

// ToggleRule flips a rule between active and paused. Reactivating
// fast-forwards the cursor past the pause so the paused span is never
// backfilled.
func (s *Service) ToggleRule(ownerID, id uint) (*models.RecurringTransaction, error) {
	rule, err := s.store.GetRule(ownerID, id)
	if err != nil {
		return nil, err
	}
	rule.Active = !rule.Active
	if rule.Active {
		rule.NextDue = recurrence.FastForward(rule.NextDue, rule.Frequency, s.today())
	}
	if err := s.store.UpdateRule(rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// ProjectDue materializes every occurrence that has come due across the
// owner's active rules, in one unit of work. Each occurrence becomes a
// real transaction and moves the account balance; the rule cursor then
// points at the first future occurrence. Calling it again with the same
// today is a no-op, so it is safe to run before every dashboard read.
func (s *Service) ProjectDue(ownerID uint) (int, error) {
	today := s.today()

	var created int
	err := s.store.Atomic(func(tx storage.Store) error {
		due, err := tx.DueRules(ownerID, today)
		if err != nil {
			return err
		}
		for i := range due {
			n, err := s.projectRule(tx, &due[i], today)
			if err != nil {
				return err
			}
			created += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if created > 0 {
		s.logger.Info("recurring transactions materialized", "count", created)
	}
	return created, nil
}

// projectRule walks one rule's cursor from its next-due date up to and
// including today, booking a transaction per occurrence. The loop stops
// at the end date or when the frequency cannot advance, deactivating
// the rule in either case.
func (s *Service) projectRule(tx storage.Store, rule *models.RecurringTransaction, today time.Time) (int, error) {
	account, err := tx.GetAccount(rule.UserID, rule.AccountID)
	if err != nil {
		return 0, err
	}

	cursor := recurrence.CivilDate(rule.NextDue)
	created := 0
	for !cursor.After(today) {
		if rule.EndDate != nil && cursor.After(recurrence.CivilDate(*rule.EndDate)) {
			rule.Active = false
			break
		}
		t := &models.Transaction{
			Description: rule.Name,
			Amount:      rule.Amount,
			Date:        cursor,
			AccountID:   rule.AccountID,
			CategoryID:  rule.CategoryID,
		}
		if err := tx.CreateTransaction(t); err != nil {
			return created, err
		}
		account.Balance = account.Balance.Add(rule.Amount)
		created++

		next, ok := recurrence.Next(cursor, rule.Frequency)
		if !ok {
			rule.Active = false
			break
		}
		cursor = next
	}
	rule.NextDue = cursor

	// A cursor that landed past the end date means the rule is finished
	// even if the loop exited on the today bound.
	if rule.EndDate != nil && cursor.After(recurrence.CivilDate(*rule.EndDate)) {
		rule.Active = false
	}

	if err := tx.UpdateAccount(account); err != nil {
		return created, err
	}
	if err := tx.UpdateRule(rule); err != nil {
		return created, err
	}
	return created, nil
}
