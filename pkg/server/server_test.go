package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbook-app/finbook/pkg/categorize"
	"github.com/finbook-app/finbook/pkg/importer"
	"github.com/finbook-app/finbook/pkg/models"
	"github.com/finbook-app/finbook/pkg/parser"
	"github.com/finbook-app/finbook/pkg/service"
	"github.com/finbook-app/finbook/pkg/storage"
)

const statementHTML = `<html><body><table>
<tr><th>Buchungstag</th><th>Verwendungszweck</th><th>Betrag</th></tr>
<tr><td>03.03.2025</td><td>REWE Markt</td><td>-42,10</td></tr>
<tr><td>01.03.2025</td><td>Gehalt</td><td>2.500,00</td></tr>
</table></body></html>`

func newTestServer(t *testing.T) (*httptest.Server, *storage.Memory, *models.Account) {
	t.Helper()
	store := storage.NewMemory()
	owner := &models.User{Name: "lena", Currency: "€"}
	require.NoError(t, store.CreateUser(owner))
	account := &models.Account{Name: "Giro", Type: "checking", Balance: decimal.NewFromInt(100), UserID: owner.ID}
	require.NoError(t, store.CreateAccount(account))

	logger := log.New(io.Discard)
	p := parser.New(logger)
	imp := importer.New(store, p, categorize.NewEnricher(logger), categorize.DefaultModel, logger)
	svc := service.New(store, service.SystemClock{}, logger)

	srv := httptest.NewServer(New(svc, imp, owner.ID, logger).Handler())
	t.Cleanup(srv.Close)
	return srv, store, account
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHandlerRegistersRoutesOnce(t *testing.T) {
	store := storage.NewMemory()
	owner := &models.User{Name: "lena", Currency: "€"}
	require.NoError(t, store.CreateUser(owner))

	logger := log.New(io.Discard)
	p := parser.New(logger)
	imp := importer.New(store, p, categorize.NewEnricher(logger), categorize.DefaultModel, logger)
	svc := service.New(store, service.SystemClock{}, logger)
	srv := New(svc, imp, owner.ID, logger)

	handler := srv.Handler()
	require.NotPanics(t, func() { srv.Handler() })

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDashboardEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/dashboard")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var dash struct {
		TotalBalance decimal.Decimal `json:"total_balance"`
	}
	decode(t, resp, &dash)
	assert.Equal(t, "100", dash.TotalBalance.String())
}

func TestCreateAccountEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	body := strings.NewReader(`{"name":"Savings","type":"savings","balance":"250.00"}`)
	resp, err := http.Post(srv.URL+"/api/accounts", "application/json", body)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var account models.Account
	decode(t, resp, &account)
	assert.Equal(t, "Savings", account.Name)
	assert.Equal(t, "250", account.Balance.String())
}

func TestValidationMapsToBadRequest(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/accounts", "application/json",
		strings.NewReader(`{"name":"  "}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMissingAccountMapsToNotFound(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/accounts/999")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAddTransactionEndpoint(t *testing.T) {
	srv, store, account := newTestServer(t)

	body := strings.NewReader(fmt.Sprintf(
		`{"description":"Bäckerei","amount":"-4.20","date":"2025-03-05","account_id":%d}`, account.ID))
	resp, err := http.Post(srv.URL+"/api/transactions", "application/json", body)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	a, err := store.GetAccount(account.UserID, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "95.8", a.Balance.String())
}

func TestImportEndpoint(t *testing.T) {
	srv, store, account := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("statement", "umsaetze.html")
	require.NoError(t, err)
	_, err = fw.Write([]byte(statementHTML))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("account_id", strconv.Itoa(int(account.ID))))
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/api/import", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Processed int `json:"processed"`
	}
	decode(t, resp, &result)
	assert.Equal(t, 2, result.Processed)

	a, err := store.GetAccount(account.UserID, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "2557.9", a.Balance.String())
}

func TestImportUnrecognizedFormat(t *testing.T) {
	srv, _, account := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("statement", "statement.html")
	require.NoError(t, err)
	_, err = fw.Write([]byte("<html><body>no tables here</body></html>"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("account_id", strconv.Itoa(int(account.ID))))
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/api/import", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestToggleRuleEndpoint(t *testing.T) {
	srv, _, account := newTestServer(t)

	body := strings.NewReader(fmt.Sprintf(
		`{"name":"Miete","amount":"-950","frequency":"monthly","start_date":"2030-01-01","account_id":%d}`, account.ID))
	resp, err := http.Post(srv.URL+"/api/recurring", "application/json", body)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var rule models.RecurringTransaction
	decode(t, resp, &rule)
	require.True(t, rule.Active)

	resp, err = http.Post(fmt.Sprintf("%s/api/recurring/%d/toggle", srv.URL, rule.ID), "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &rule)
	assert.False(t, rule.Active)
}
