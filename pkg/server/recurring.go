package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finbook-app/finbook/pkg/models"
	"github.com/finbook-app/finbook/pkg/service"
)

type ruleRequest struct {
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
	Frequency  string          `json:"frequency"`
	StartDate  string          `json:"start_date"`
	EndDate    string          `json:"end_date"`
	AccountID  uint            `json:"account_id"`
	CategoryID *uint           `json:"category_id"`
}

func (req *ruleRequest) input() (service.RuleInput, error) {
	start, err := parseDate(req.StartDate)
	if err != nil {
		return service.RuleInput{}, err
	}
	var end *time.Time
	if req.EndDate != "" {
		e, err := parseDate(req.EndDate)
		if err != nil {
			return service.RuleInput{}, err
		}
		end = &e
	}
	return service.RuleInput{
		Name:       req.Name,
		Amount:     req.Amount,
		Frequency:  models.Frequency(req.Frequency),
		StartDate:  start,
		EndDate:    end,
		AccountID:  req.AccountID,
		CategoryID: req.CategoryID,
	}, nil
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rules, err := s.svc.ListRules(s.ownerID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.respond(w, http.StatusOK, rules)
	case http.MethodPost:
		var req ruleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, r, http.StatusBadRequest, "invalid json body", err)
			return
		}
		in, err := req.input()
		if err != nil {
			s.respondError(w, r, http.StatusBadRequest, "invalid date, want YYYY-MM-DD", err)
			return
		}
		rule, err := s.svc.CreateRule(s.ownerID, in)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.respond(w, http.StatusCreated, rule)
	default:
		s.respondError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
	}
}

func (s *Server) handleRule(w http.ResponseWriter, r *http.Request) {
	id, rest, err := pathID(r, "/api/recurring/")
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid rule id", err)
		return
	}

	if rest == "toggle" {
		if r.Method != http.MethodPost {
			s.respondError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
			return
		}
		rule, err := s.svc.ToggleRule(s.ownerID, id)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.respond(w, http.StatusOK, rule)
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req ruleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, r, http.StatusBadRequest, "invalid json body", err)
			return
		}
		in, err := req.input()
		if err != nil {
			s.respondError(w, r, http.StatusBadRequest, "invalid date, want YYYY-MM-DD", err)
			return
		}
		rule, err := s.svc.UpdateRule(s.ownerID, id, in)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.respond(w, http.StatusOK, rule)
	case http.MethodDelete:
		if err := s.svc.DeleteRule(s.ownerID, id); err != nil {
			s.fail(w, r, err)
			return
		}
		s.respond(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		s.respondError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
	}
}

// ---------------- import ----------------

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	file, header, err := r.FormFile("statement")
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "statement file required", err)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, "failed to read file", err)
		return
	}

	accountID, err := strconv.ParseUint(r.FormValue("account_id"), 10, 32)
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "account_id required", err)
		return
	}
	useAI, _ := strconv.ParseBool(r.FormValue("ai"))

	processed, err := s.importer.Import(r.Context(), s.ownerID, uint(accountID), data, header.Filename, useAI)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.logger.Info("statement imported", "file", header.Filename, "processed", processed)
	s.respond(w, http.StatusOK, map[string]interface{}{
		"status":    "success",
		"file":      header.Filename,
		"processed": processed,
	})
}
