// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router wires handlers to routes using Go 1.22+ pattern routing.

	mux := router.NewRouter(st, ch, cfg)

NewRouter builds the ledger and the feed server from the store and event
channel it is given; it does not own them, so main closes both.

# Routes

	GET  /health             → "OK"
	GET  /                   → banner
	POST /polls              → create poll
	GET  /polls/{id}         → current tally
	POST /polls/{id}/votes   → cast vote
	GET  /polls/{id}/stream  → live vote events

Wrap the mux in middleware.CORS for browser clients.
*/
package router
