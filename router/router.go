// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/danielhkuo/livepoll/channel"
	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/feed"
	"github.com/danielhkuo/livepoll/handlers"
	"github.com/danielhkuo/livepoll/ledger"
	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/store"
)

func NewRouter(st store.Store, ch channel.Channel, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	l := ledger.New(st, ch)
	feedServer := feed.NewServer(ch, cfg.Heartbeat, cfg.RetryDelay)

	pollHandler := handlers.NewPollHandler(l)
	votingHandler := handlers.NewVotingHandler(l)
	streamHandler := handlers.NewStreamHandler(l, feedServer)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Polls
	mux.HandleFunc("POST /polls", middleware.WithLogging(pollHandler.CreatePoll))
	mux.HandleFunc("GET /polls/{id}", middleware.WithLogging(pollHandler.GetPoll))

	// Voting
	mux.HandleFunc("POST /polls/{id}/votes", middleware.WithLogging(votingHandler.CastVote))

	// Live feed
	mux.HandleFunc("GET /polls/{id}/stream", middleware.WithLogging(streamHandler.Stream))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("livepoll API v1"))
	})

	return mux
}
