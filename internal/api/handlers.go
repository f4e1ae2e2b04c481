package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"github.com/foxzi/fundchain/internal/journal"
	"github.com/foxzi/fundchain/internal/session"
)

const (
	defaultJournalLimit = 50
	maxJournalLimit     = 500
	healthTimeout       = 5 * time.Second
)

// HealthResponse is the response for GET /health
type HealthResponse struct {
	Status  string         `json:"status"`
	Version string         `json:"version"`
	Uptime  string         `json:"uptime"`
	Ledger  LedgerHealth   `json:"ledger"`
	Journal *journal.Stats `json:"journal,omitempty"`
}

// LedgerHealth reports whether the contract could be read
type LedgerHealth struct {
	Reachable bool   `json:"reachable"`
	Campaigns uint64 `json:"campaigns"`
	Error     string `json:"error,omitempty"`
}

// ConnectRequest is the request body for POST /sessions
type ConnectRequest struct {
	Address    string `json:"address"`
	Passphrase string `json:"passphrase"`
}

// AccountsResponse is the response for GET /accounts
type AccountsResponse struct {
	Accounts []string `json:"accounts"`
}

// JournalResponse is the response for GET /journal
type JournalResponse struct {
	Stats   *journal.Stats   `json:"stats"`
	Entries []*journal.Entry `json:"entries"`
}

// ErrorResponse is the error response
type ErrorResponse struct {
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
	TxHash string `json:"tx_hash,omitempty"`
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:  "ok",
		Version: s.version,
		Uptime:  time.Since(s.startTime).Round(time.Second).String(),
	}

	count, err := s.orch.CampaignCount(ctx)
	if err != nil {
		resp.Status = "degraded"
		resp.Ledger.Error = err.Error()
	} else {
		resp.Ledger.Reachable = true
		resp.Ledger.Campaigns = count
	}

	if s.journal != nil {
		if stats, err := s.journal.Stats(ctx); err == nil {
			resp.Journal = stats
		} else {
			s.logger.Warn("failed to read journal stats", "error", err)
		}
	}

	s.sendJSON(w, http.StatusOK, resp)
}

// handleConnect handles POST /api/v1/sessions
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !common.IsHexAddress(req.Address) {
		s.sendError(w, http.StatusBadRequest, "address must be a hex account address")
		return
	}

	sess, err := s.sessions.Connect(common.HexToAddress(req.Address), req.Passphrase)
	switch {
	case errors.Is(err, session.ErrUnknownAccount):
		s.sendError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, session.ErrBadPassphrase):
		s.sendError(w, http.StatusUnauthorized, "could not unlock account")
		return
	case err != nil:
		s.logger.Error("failed to connect session", "account", req.Address, "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to connect session")
		return
	}

	s.sendJSON(w, http.StatusCreated, sess)
}

// handleDisconnect handles DELETE /api/v1/sessions/{id}
func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.sessions.Disconnect(id); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			s.sendError(w, http.StatusNotFound, "Session not found")
			return
		}
		s.logger.Error("failed to disconnect session", "session_id", id, "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to disconnect session")
		return
	}

	s.sendJSON(w, http.StatusOK, map[string]string{
		"id":     id,
		"status": "disconnected",
	})
}

// handleAccounts handles GET /api/v1/accounts
func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	accounts := s.sessions.Accounts()

	resp := AccountsResponse{Accounts: make([]string, 0, len(accounts))}
	for _, a := range accounts {
		resp.Accounts = append(resp.Accounts, a.Hex())
	}

	s.sendJSON(w, http.StatusOK, resp)
}

// handleJournal handles GET /api/v1/journal
func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		s.sendError(w, http.StatusServiceUnavailable, "Journal is not configured")
		return
	}

	q := r.URL.Query()
	filter := journal.ListFilter{
		Status: journal.Status(q.Get("status")),
		Limit:  defaultJournalLimit,
	}

	if account := q.Get("account"); account != "" {
		if !common.IsHexAddress(account) {
			s.sendError(w, http.StatusBadRequest, "account must be a hex address")
			return
		}
		filter.Account = common.HexToAddress(account).Hex()
	}
	if c := q.Get("campaign"); c != "" {
		id, err := strconv.ParseUint(c, 10, 64)
		if err != nil {
			s.sendError(w, http.StatusBadRequest, "campaign must be a campaign id")
			return
		}
		filter.CampaignID = id
	}
	if l := q.Get("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit <= 0 {
			s.sendError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = min(limit, maxJournalLimit)
	}

	entries, err := s.journal.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list journal", "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to list journal")
		return
	}

	stats, err := s.journal.Stats(r.Context())
	if err != nil {
		s.logger.Error("failed to get journal stats", "error", err)
		s.sendError(w, http.StatusInternalServerError, "Failed to get journal stats")
		return
	}

	if entries == nil {
		entries = []*journal.Entry{}
	}
	s.sendJSON(w, http.StatusOK, JournalResponse{Stats: stats, Entries: entries})
}

// sendJSON sends a JSON response
func (s *Server) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// sendError sends an error response
func (s *Server) sendError(w http.ResponseWriter, status int, message string) {
	s.sendJSON(w, status, ErrorResponse{Error: message})
}
