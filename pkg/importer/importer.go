// Package importer drives statement imports: extraction, deduplication,
// optional AI categorization and the final atomic commit.
package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finbook-app/finbook/pkg/categorize"
	"github.com/finbook-app/finbook/pkg/models"
	"github.com/finbook-app/finbook/pkg/parser"
	"github.com/finbook-app/finbook/pkg/storage"
)

// defaultAITimeout bounds the enrichment call; a slow or hung completion
// service must never stall the rest of the pipeline.
const defaultAITimeout = 30 * time.Second

// Importer brings statement files into an account.
type Importer struct {
	store    storage.Store
	parser   *parser.Parser
	enricher *categorize.Enricher
	logger   *log.Logger

	// newCompleter builds the completion capability from a per-user
	// credential. Swapped out in tests.
	newCompleter func(apiKey string) categorize.Completer
	aiTimeout    time.Duration
}

func New(store storage.Store, p *parser.Parser, e *categorize.Enricher, model string, logger *log.Logger) *Importer {
	return &Importer{
		store:    store,
		parser:   p,
		enricher: e,
		logger:   logger,
		newCompleter: func(apiKey string) categorize.Completer {
			return categorize.NewGemini(apiKey, model)
		},
		aiTimeout: defaultAITimeout,
	}
}

// Import parses the statement, drops rows already present on the
// account, optionally asks the completion capability for categories and
// commits everything in one unit of work. It returns the number of
// transactions actually written. A duplicate row is a clean skip, not an
// error; an unrecognizable file or a storage failure aborts the whole
// import with nothing written.
func (imp *Importer) Import(ctx context.Context, ownerID, accountID uint, data []byte, filename string, useAI bool) (int, error) {
	records, err := imp.parser.ProcessBytes(data, filename)
	if err != nil {
		return 0, err
	}

	// Fail fast on a bad account before any expensive work.
	if _, err := imp.store.GetAccount(ownerID, accountID); err != nil {
		return 0, err
	}

	var suggestions map[string]string
	if useAI {
		suggestions = imp.suggestions(ctx, ownerID, records)
	}

	batchID := uuid.NewString()
	processed := 0

	err = imp.store.Atomic(func(tx storage.Store) error {
		account, err := tx.GetAccount(ownerID, accountID)
		if err != nil {
			return err
		}
		for _, rec := range records {
			exists, err := tx.TransactionExists(account.ID, rec.Date, rec.Amount, rec.Description)
			if err != nil {
				return err
			}
			if exists {
				imp.logger.Debug("skipping duplicate row",
					"date", rec.Date.Format("2006-01-02"), "description", rec.Description)
				continue
			}

			var categoryID *uint
			if name := suggestions[rec.Description]; name != "" {
				categoryID, err = imp.resolveCategory(tx, ownerID, name, rec.Amount)
				if err != nil {
					return err
				}
			}

			t := &models.Transaction{
				Description: rec.Description,
				Amount:      rec.Amount,
				Date:        rec.Date,
				AccountID:   account.ID,
				CategoryID:  categoryID,
				ImportID:    batchID,
			}
			if err := tx.CreateTransaction(t); err != nil {
				return err
			}
			account.Balance = account.Balance.Add(rec.Amount)
			processed++
		}
		return tx.UpdateAccount(account)
	})
	if err != nil {
		return 0, fmt.Errorf("import %s: %w", filename, err)
	}

	imp.logger.Info("statement imported",
		"file", filename, "rows", len(records), "processed", processed, "batch", batchID)
	return processed, nil
}

// suggestions gathers the enrichment inputs and calls the capability
// under a timeout. Every failure path returns nil: enrichment is never
// required for an import to succeed.
func (imp *Importer) suggestions(ctx context.Context, ownerID uint, records []parser.Record) map[string]string {
	user, err := imp.store.GetUser(ownerID)
	if err != nil {
		imp.logger.Debug("skipping categorization", "error", err)
		return nil
	}
	if user.AIKey == "" {
		imp.logger.Debug("skipping categorization: no credential configured", "user", ownerID)
		return nil
	}

	descriptions := parser.Descriptions(records)
	if len(descriptions) == 0 {
		return nil
	}

	existing, err := imp.store.ListCategories(ownerID)
	if err != nil {
		imp.logger.Debug("skipping categorization", "error", err)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, imp.aiTimeout)
	defer cancel()
	return imp.enricher.Suggest(ctx, imp.newCompleter(user.AIKey), descriptions, existing)
}

// resolveCategory finds the named category or creates it, inferring the
// kind from the sign of the record that first referenced it.
func (imp *Importer) resolveCategory(tx storage.Store, ownerID uint, name string, amount decimal.Decimal) (*uint, error) {
	c, err := tx.FindCategoryByName(ownerID, name)
	if err == nil {
		return &c.ID, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	kind := models.CategoryIncome
	if amount.IsNegative() {
		kind = models.CategoryExpense
	}
	created := &models.Category{Name: name, Kind: kind, UserID: ownerID}
	if err := tx.CreateCategory(created); err != nil {
		return nil, err
	}
	imp.logger.Debug("created suggested category", "name", name, "kind", kind)
	return &created.ID, nil
}
