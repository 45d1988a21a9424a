// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON:

  - CreatePollRequest: question, options
  - VoteRequest: optionId

# Response Types

Types for JSON responses:

  - CreatePollResponse: pollId
  - PollResponse: question, options, totalVotes
  - VoteResponse: optionId, count, totalVotes
  - StreamInit: status (payload of the stream's init event)
  - ErrorResponse: error, message

# Domain Types

  - Poll: question, ordered options, running total
  - Option: optionId, value, count
  - VoteEvent: counts produced by one vote, published to live viewers

VoteEvent is never persisted. Viewers rebuild state from a Poll read and
treat events as overwrites on top of it.

# Constants

Stream event names:

	EventInit    = "init"
	EventMessage = "message"
*/
package models
