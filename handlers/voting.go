// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/danielhkuo/livepoll/ledger"
	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/models"
)

type VotingHandler struct {
	ledger *ledger.Ledger
}

func NewVotingHandler(l *ledger.Ledger) *VotingHandler {
	return &VotingHandler{ledger: l}
}

// CastVote handles POST /polls/{id}/votes
// The response carries the new counts so the voter can reconcile even if
// its own broadcast never arrives.
func (h *VotingHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")

	var req models.VoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.OptionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "optionId is required")
		return
	}

	event, err := h.ledger.RecordVote(r.Context(), pollID, req.OptionID)
	if err != nil {
		writeError(w, err, "Failed to record vote")
		return
	}

	slog.Info("vote recorded", "poll_id", pollID, "option_id", event.OptionID,
		"count", event.Count, "total", event.TotalVotes)

	middleware.JSONResponse(w, http.StatusOK, event)
}
