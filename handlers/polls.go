// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/livepoll/ledger"
	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/store"
)

type PollHandler struct {
	ledger *ledger.Ledger
}

func NewPollHandler(l *ledger.Ledger) *PollHandler {
	return &PollHandler{ledger: l}
}

// CreatePoll handles POST /polls
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	pollID, err := h.ledger.CreatePoll(r.Context(), req.Question, req.Options)
	if err != nil {
		writeError(w, err, "Failed to create poll")
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, models.CreatePollResponse{
		PollID: pollID,
	})
}

// GetPoll handles GET /polls/{id}
// This is the baseline read viewers take before applying stream events.
func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")

	poll, err := h.ledger.Poll(r.Context(), pollID)
	if err != nil {
		writeError(w, err, "Failed to load poll")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, poll.Response())
}

// writeError maps ledger and store errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ledger.ErrInvalidRequest):
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll or option not found")
	default:
		slog.Error(fallback, "error", err, "storage", store.IsStorageError(err))
		middleware.ErrorResponse(w, http.StatusInternalServerError, fallback)
	}
}
