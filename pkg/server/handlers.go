package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/finbook-app/finbook/pkg/models"
	"github.com/finbook-app/finbook/pkg/service"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}
	dash, err := s.svc.BuildDashboard(s.ownerID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, dash)
}

// ---------------- accounts ----------------

type accountRequest struct {
	Name    string          `json:"name"`
	Type    string          `json:"type"`
	Balance decimal.Decimal `json:"balance"`
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		accounts, err := s.svc.ListAccounts(s.ownerID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.respond(w, http.StatusOK, accounts)
	case http.MethodPost:
		var req accountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, r, http.StatusBadRequest, "invalid json body", err)
			return
		}
		account, err := s.svc.CreateAccount(s.ownerID, req.Name, req.Type, req.Balance)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.respond(w, http.StatusCreated, account)
	default:
		s.respondError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
	}
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	id, rest, err := pathID(r, "/api/accounts/")
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid account id", err)
		return
	}

	if rest == "transactions" {
		if r.Method != http.MethodGet {
			s.respondError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		txs, err := s.svc.AccountActivity(s.ownerID, id, limit)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.respond(w, http.StatusOK, txs)
		return
	}

	switch r.Method {
	case http.MethodGet:
		account, err := s.svc.GetAccount(s.ownerID, id)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.respond(w, http.StatusOK, account)
	case http.MethodPut:
		var req accountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, r, http.StatusBadRequest, "invalid json body", err)
			return
		}
		account, err := s.svc.UpdateAccount(s.ownerID, id, req.Name, req.Type)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.respond(w, http.StatusOK, account)
	case http.MethodDelete:
		if err := s.svc.DeleteAccount(s.ownerID, id); err != nil {
			s.fail(w, r, err)
			return
		}
		s.respond(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		s.respondError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
	}
}

// ---------------- transactions ----------------

type transactionRequest struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
	AccountID   uint            `json:"account_id"`
	CategoryID  *uint           `json:"category_id"`
}

func (req *transactionRequest) input() (service.TransactionInput, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return service.TransactionInput{}, err
	}
	return service.TransactionInput{
		Description: req.Description,
		Amount:      req.Amount,
		Date:        date,
		CategoryID:  req.CategoryID,
	}, nil
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		txs, err := s.svc.RecentTransactions(s.ownerID, limit)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.respond(w, http.StatusOK, txs)
	case http.MethodPost:
		var req transactionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, r, http.StatusBadRequest, "invalid json body", err)
			return
		}
		in, err := req.input()
		if err != nil {
			s.respondError(w, r, http.StatusBadRequest, "invalid date, want YYYY-MM-DD", err)
			return
		}
		tx, err := s.svc.AddTransaction(s.ownerID, req.AccountID, in)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.respond(w, http.StatusCreated, tx)
	default:
		s.respondError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
	}
}

func (s *Server) handleTransaction(w http.ResponseWriter, r *http.Request) {
	id, _, err := pathID(r, "/api/transactions/")
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid transaction id", err)
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req transactionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, r, http.StatusBadRequest, "invalid json body", err)
			return
		}
		in, err := req.input()
		if err != nil {
			s.respondError(w, r, http.StatusBadRequest, "invalid date, want YYYY-MM-DD", err)
			return
		}
		tx, err := s.svc.UpdateTransaction(s.ownerID, id, in)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.respond(w, http.StatusOK, tx)
	case http.MethodDelete:
		if err := s.svc.DeleteTransaction(s.ownerID, id); err != nil {
			s.fail(w, r, err)
			return
		}
		s.respond(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		s.respondError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
	}
}

// ---------------- categories ----------------

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		categories, err := s.svc.ListCategories(s.ownerID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.respond(w, http.StatusOK, categories)
	case http.MethodPost:
		var req struct {
			Name string              `json:"name"`
			Kind models.CategoryKind `json:"kind"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, r, http.StatusBadRequest, "invalid json body", err)
			return
		}
		category, err := s.svc.CreateCategory(s.ownerID, req.Name, req.Kind)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.respond(w, http.StatusCreated, category)
	default:
		s.respondError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
	}
}

func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request) {
	id, _, err := pathID(r, "/api/categories/")
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid category id", err)
		return
	}
	if r.Method != http.MethodDelete {
		s.respondError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}
	if err := s.svc.DeleteCategory(s.ownerID, id); err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ---------------- settings ----------------

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		user, err := s.svc.Settings(s.ownerID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.respond(w, http.StatusOK, user)
	case http.MethodPut:
		var req struct {
			Currency string `json:"currency"`
			AIKey    string `json:"ai_key"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, r, http.StatusBadRequest, "invalid json body", err)
			return
		}
		user, err := s.svc.UpdateSettings(s.ownerID, req.Currency, req.AIKey)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.respond(w, http.StatusOK, user)
	default:
		s.respondError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
	}
}
