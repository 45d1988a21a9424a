// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/livepoll/feed"
	"github.com/danielhkuo/livepoll/ledger"
	"github.com/danielhkuo/livepoll/middleware"
)

type StreamHandler struct {
	ledger *ledger.Ledger
	feed   *feed.Server
}

func NewStreamHandler(l *ledger.Ledger, f *feed.Server) *StreamHandler {
	return &StreamHandler{ledger: l, feed: f}
}

// Stream handles GET /polls/{id}/stream
// Unknown polls get a 404 before the stream opens. After that the
// connection only ends when the viewer leaves or the server shuts down.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")

	if _, err := h.ledger.Poll(r.Context(), pollID); err != nil {
		writeError(w, err, "Failed to open stream")
		return
	}

	slog.Info("stream opened", "poll_id", pollID, "remote", r.RemoteAddr)

	err := h.feed.Serve(r.Context(), w, pollID)
	if errors.Is(err, feed.ErrStreamingUnsupported) {
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	slog.Info("stream closed", "poll_id", pollID, "error", err)
}
