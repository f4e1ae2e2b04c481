package api

import (
	"encoding/json"
	"errors"
	"io"
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"github.com/foxzi/fundchain/internal/action"
	"github.com/foxzi/fundchain/internal/campaign"
	"github.com/foxzi/fundchain/internal/eligibility"
	"github.com/foxzi/fundchain/internal/session"
)

// SessionHeader carries the session id of the caller
const SessionHeader = "X-Session-ID"

var (
	errUnknownSession = errors.New("unknown session")
	errInvalidViewer  = errors.New("viewer must be a hex address")
)

// CampaignResponse is one campaign as seen by the viewer. Ether amounts
// are exact decimal strings. A record that could not be read carries
// only id and error
type CampaignResponse struct {
	ID              uint64            `json:"id"`
	Creator         string            `json:"creator,omitempty"`
	Name            string            `json:"name,omitempty"`
	Description     string            `json:"description,omitempty"`
	Target          string            `json:"target,omitempty"`
	AmountRaised    string            `json:"amount_raised,omitempty"`
	AmountWithdrawn string            `json:"amount_withdrawn,omitempty"`
	AmountRefunded  string            `json:"amount_refunded,omitempty"`
	Deadline        int64             `json:"deadline,omitempty"`
	Completed       bool              `json:"completed"`
	IsExpired       bool              `json:"is_expired"`
	Withdrawn       bool              `json:"withdrawn"`
	Status          string            `json:"status,omitempty"`
	Progress        string            `json:"progress,omitempty"`
	TimeLeft        string            `json:"time_left,omitempty"`
	Flags           eligibility.Flags `json:"flags"`
	Contribution    string            `json:"contribution,omitempty"`
	Error           string            `json:"error,omitempty"`
}

// CampaignsResponse is the response for GET /campaigns
type CampaignsResponse struct {
	Viewer    string             `json:"viewer,omitempty"`
	Campaigns []CampaignResponse `json:"campaigns"`
}

// CreateCampaignRequest is the request body for POST /campaigns
type CreateCampaignRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Target       string `json:"target"`
	DeadlineDays uint64 `json:"deadline_days"`
}

// FundRequest is the request body for POST /campaigns/{id}/fund
type FundRequest struct {
	Amount string `json:"amount"`
}

// ActionResponse is returned once a write has settled
type ActionResponse struct {
	Action      string           `json:"action"`
	TxHash      string           `json:"tx_hash"`
	BlockNumber uint64           `json:"block_number"`
	Campaign    CampaignResponse `json:"campaign"`
}

func newCampaignResponse(v *action.View) CampaignResponse {
	resp := CampaignResponse{ID: v.ID}

	c := v.Campaign
	if c == nil {
		resp.Error = "campaign unavailable"
		if v.Err != nil {
			resp.Error = v.Err.Error()
		}
		return resp
	}

	resp.Creator = c.Creator.Hex()
	resp.Name = c.Name
	resp.Description = c.Description
	resp.Target = campaign.FormatEther(c.Target)
	resp.AmountRaised = campaign.FormatEther(c.AmountRaised)
	resp.AmountWithdrawn = campaign.FormatEther(c.AmountWithdrawn)
	resp.AmountRefunded = campaign.FormatEther(c.AmountRefunded)
	resp.Deadline = c.Deadline
	resp.Completed = c.Completed
	resp.IsExpired = c.IsExpired
	resp.Withdrawn = c.Withdrawn()
	resp.Status = string(c.Status())
	resp.Progress = c.ProgressString()
	resp.TimeLeft = c.TimeLeft
	resp.Flags = v.Flags
	if v.Contribution != nil {
		resp.Contribution = campaign.FormatEther(v.Contribution)
	}

	return resp
}

// handleListCampaigns handles GET /api/v1/campaigns
func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	viewer, err := s.viewer(r)
	if err != nil {
		s.sendViewerError(w, err)
		return
	}

	views, err := s.orch.List(r.Context(), viewer)
	if err != nil {
		s.sendActionError(w, err)
		return
	}

	resp := CampaignsResponse{Campaigns: make([]CampaignResponse, 0, len(views))}
	if viewer != (common.Address{}) {
		resp.Viewer = viewer.Hex()
	}
	for _, v := range views {
		resp.Campaigns = append(resp.Campaigns, newCampaignResponse(v))
	}

	s.sendJSON(w, http.StatusOK, resp)
}

// handleGetCampaign handles GET /api/v1/campaigns/{id}
func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := s.campaignID(w, r)
	if !ok {
		return
	}

	viewer, err := s.viewer(r)
	if err != nil {
		s.sendViewerError(w, err)
		return
	}

	view, err := s.orch.View(r.Context(), id, viewer)
	if err != nil {
		s.sendActionError(w, err)
		return
	}

	s.sendJSON(w, http.StatusOK, newCampaignResponse(view))
}

// handleCreateCampaign handles POST /api/v1/campaigns
func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.sendError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var req CreateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	target, err := campaign.ParseEther(req.Target)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, "target: "+err.Error())
		return
	}

	res, err := s.orch.Create(r.Context(), sess, action.CreateRequest{
		Name:         req.Name,
		Description:  req.Description,
		Target:       target,
		DeadlineDays: req.DeadlineDays,
	})
	if err != nil {
		s.sendActionError(w, err)
		return
	}

	s.sendJSON(w, http.StatusCreated, ActionResponse{
		Action:      action.ActionCreate,
		TxHash:      res.TxHash,
		BlockNumber: res.BlockNumber,
		Campaign:    newCampaignResponse(&res.View),
	})
}

// handleCampaignAction handles POST /api/v1/campaigns/{id}/{action}
func (s *Server) handleCampaignAction(w http.ResponseWriter, r *http.Request) {
	act := eligibility.Action(chi.URLParam(r, "action"))
	if !act.Valid() {
		s.sendError(w, http.StatusNotFound, "Unknown action")
		return
	}

	id, ok := s.campaignID(w, r)
	if !ok {
		return
	}

	sess, err := s.session(r)
	if err != nil {
		s.sendError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var amount *big.Int
	if act == eligibility.ActionFund {
		var req FundRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			s.sendError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if amount, err = campaign.ParseEther(req.Amount); err != nil {
			s.sendError(w, http.StatusBadRequest, "amount: "+err.Error())
			return
		}
	}

	res, err := s.orch.Perform(r.Context(), sess, act, id, amount)
	if err != nil {
		s.sendActionError(w, err)
		return
	}

	s.sendJSON(w, http.StatusOK, ActionResponse{
		Action:      string(act),
		TxHash:      res.TxHash,
		BlockNumber: res.BlockNumber,
		Campaign:    newCampaignResponse(&res.View),
	})
}

// session resolves the caller's session. A missing header yields nil so
// the orchestrator reports the missing session itself
func (s *Server) session(r *http.Request) (*session.Session, error) {
	id := r.Header.Get(SessionHeader)
	if id == "" {
		return nil, nil
	}

	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, errUnknownSession
	}
	return sess, nil
}

// viewer resolves the viewing account from the session header, then the
// viewer query parameter. No viewer is the zero address
func (s *Server) viewer(r *http.Request) (common.Address, error) {
	sess, err := s.session(r)
	if err != nil {
		return common.Address{}, err
	}
	if sess != nil {
		return sess.Account, nil
	}

	v := r.URL.Query().Get("viewer")
	if v == "" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(v) {
		return common.Address{}, errInvalidViewer
	}
	return common.HexToAddress(v), nil
}

func (s *Server) campaignID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		s.sendError(w, http.StatusBadRequest, "id must be a positive campaign id")
		return 0, false
	}
	return id, true
}

func (s *Server) sendViewerError(w http.ResponseWriter, err error) {
	if errors.Is(err, errUnknownSession) {
		s.sendError(w, http.StatusUnauthorized, err.Error())
		return
	}
	s.sendError(w, http.StatusBadRequest, err.Error())
}

// sendActionError maps an orchestrator failure to an HTTP status
func (s *Server) sendActionError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error(), Kind: string(action.KindOf(err))}

	var ae *action.Error
	if errors.As(err, &ae) {
		resp.TxHash = ae.TxHash
	}

	s.sendJSON(w, statusFor(err), resp)
}

func statusFor(err error) int {
	switch action.KindOf(err) {
	case action.KindPrecondition:
		switch {
		case errors.Is(err, action.ErrNoSession):
			return http.StatusUnauthorized
		case action.IsInvalidInput(err):
			return http.StatusBadRequest
		}
		return http.StatusConflict
	case action.KindSubmission:
		return http.StatusBadGateway
	case action.KindConfirmation:
		if action.IsAbandoned(err) {
			return http.StatusAccepted
		}
		return http.StatusBadGateway
	case action.KindRead:
		if errors.Is(err, campaign.ErrCampaignNotFound) {
			return http.StatusNotFound
		}
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
