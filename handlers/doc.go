// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the livepoll API.

# Handler Types

  - PollHandler: create a poll, read its current tally
  - VotingHandler: cast a vote
  - StreamHandler: live vote events as server-sent events

Handlers are created via constructor functions over a shared ledger:

	l := ledger.New(st, ch)
	pollHandler := handlers.NewPollHandler(l)

# Endpoints

	POST /polls               → CreatePoll (201 {pollId})
	GET  /polls/{id}          → GetPoll    (200 {question, options, totalVotes})
	POST /polls/{id}/votes    → CastVote   (200 {optionId, count, totalVotes})
	GET  /polls/{id}/stream   → Stream     (text/event-stream)

# Errors

	ledger.ErrInvalidRequest → 400
	store.ErrNotFound        → 404
	anything else            → 500
*/
package handlers
