package importer

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbook-app/finbook/pkg/categorize"
	"github.com/finbook-app/finbook/pkg/models"
	"github.com/finbook-app/finbook/pkg/parser"
	"github.com/finbook-app/finbook/pkg/storage"
)

const statementHTML = `<table>
  <tr><th>Datum</th><th>Verwendungszweck</th><th>Betrag</th></tr>
  <tr><td>01.03.2024</td><td>REWE Markt</td><td>-42,10</td></tr>
  <tr><td>02.03.2024</td><td>Gehalt</td><td>2.500,00</td></tr>
  <tr><td>03.03.2024</td><td>Miete</td><td>-950,00</td></tr>
</table>`

type fixture struct {
	store    *storage.Memory
	importer *Importer
	owner    *models.User
	account  *models.Account
}

func newFixture(t *testing.T, aiKey string) *fixture {
	t.Helper()
	logger := log.New(io.Discard)
	store := storage.NewMemory()

	owner := &models.User{Name: "tester", Currency: "€", AIKey: aiKey}
	require.NoError(t, store.CreateUser(owner))
	account := &models.Account{Name: "Girokonto", Type: "checking", Balance: decimal.Zero, UserID: owner.ID}
	require.NoError(t, store.CreateAccount(account))

	imp := New(store, parser.New(logger), categorize.NewEnricher(logger), "", logger)
	return &fixture{store: store, importer: imp, owner: owner, account: account}
}

func TestImportTwiceDeduplicates(t *testing.T) {
	f := newFixture(t, "")

	processed, err := f.importer.Import(context.Background(), f.owner.ID, f.account.ID,
		[]byte(statementHTML), "export.html", false)
	require.NoError(t, err)
	assert.Equal(t, 3, processed)

	// The exact same file again: everything is a duplicate.
	processed, err = f.importer.Import(context.Background(), f.owner.ID, f.account.ID,
		[]byte(statementHTML), "export.html", false)
	require.NoError(t, err)
	assert.Equal(t, 0, processed)

	txs, err := f.store.ListTransactions(f.account.ID, 0)
	require.NoError(t, err)
	assert.Len(t, txs, 3)

	account, err := f.store.GetAccount(f.owner.ID, f.account.ID)
	require.NoError(t, err)
	assert.True(t, account.Balance.Equal(decimal.RequireFromString("1507.90")),
		"balance = %s", account.Balance)
}

func TestImportUnknownAccount(t *testing.T) {
	f := newFixture(t, "")

	_, err := f.importer.Import(context.Background(), f.owner.ID, 999,
		[]byte(statementHTML), "export.html", false)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestImportUnrecognizedFormat(t *testing.T) {
	f := newFixture(t, "")

	_, err := f.importer.Import(context.Background(), f.owner.ID, f.account.ID,
		[]byte("<p>kein export</p>"), "export.html", false)
	assert.ErrorIs(t, err, parser.ErrUnrecognizedFormat)

	// Nothing was committed.
	txs, err := f.store.ListTransactions(f.account.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestImportWithoutCredentialStillSucceeds(t *testing.T) {
	f := newFixture(t, "") // use_ai requested, but no key configured

	processed, err := f.importer.Import(context.Background(), f.owner.ID, f.account.ID,
		[]byte(statementHTML), "export.html", true)
	require.NoError(t, err)
	assert.Equal(t, 3, processed)

	txs, err := f.store.ListTransactions(f.account.ID, 0)
	require.NoError(t, err)
	for _, tx := range txs {
		assert.Nil(t, tx.CategoryID, "no categories without a credential")
	}
}

type stubCompleter struct {
	response string
	err      error
}

func (s *stubCompleter) Generate(context.Context, string) (string, error) {
	return s.response, s.err
}

func TestImportWithEnrichment(t *testing.T) {
	f := newFixture(t, "test-key")
	require.NoError(t, f.store.CreateCategory(&models.Category{
		Name: "Groceries", Kind: models.CategoryExpense, UserID: f.owner.ID,
	}))

	f.importer.newCompleter = func(apiKey string) categorize.Completer {
		assert.Equal(t, "test-key", apiKey)
		return &stubCompleter{response: `{"REWE Markt": "Groceries", "Gehalt": "Salary"}`}
	}

	processed, err := f.importer.Import(context.Background(), f.owner.ID, f.account.ID,
		[]byte(statementHTML), "export.html", true)
	require.NoError(t, err)
	assert.Equal(t, 3, processed)

	// "Salary" did not exist: created with the kind inferred from the
	// positive amount of the row that referenced it.
	salary, err := f.store.FindCategoryByName(f.owner.ID, "Salary")
	require.NoError(t, err)
	assert.Equal(t, models.CategoryIncome, salary.Kind)

	groceries, err := f.store.FindCategoryByName(f.owner.ID, "Groceries")
	require.NoError(t, err)

	txs, err := f.store.ListTransactions(f.account.ID, 0)
	require.NoError(t, err)
	byDesc := map[string]models.Transaction{}
	for _, tx := range txs {
		byDesc[tx.Description] = tx
	}
	require.NotNil(t, byDesc["REWE Markt"].CategoryID)
	assert.Equal(t, groceries.ID, *byDesc["REWE Markt"].CategoryID)
	require.NotNil(t, byDesc["Gehalt"].CategoryID)
	assert.Equal(t, salary.ID, *byDesc["Gehalt"].CategoryID)
	assert.Nil(t, byDesc["Miete"].CategoryID, "unmapped description stays uncategorized")
}

func TestImportEnrichmentFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, "test-key")
	f.importer.newCompleter = func(string) categorize.Completer {
		return &stubCompleter{err: context.DeadlineExceeded}
	}

	processed, err := f.importer.Import(context.Background(), f.owner.ID, f.account.ID,
		[]byte(statementHTML), "export.html", true)
	require.NoError(t, err)
	assert.Equal(t, 3, processed)
}
