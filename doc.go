// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the livepoll API server.

livepoll lets anyone create a single-choice poll, share its link, collect
votes and watch the tally move in real time on every open screen.

# Starting the Server

The server reads flags, environment variables and an optional .env file:

	DATABASE_URL=livepoll.db go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..." -c "redis://localhost:6379/0"

# Configuration

Required settings:

  - DATABASE_URL (-d): sqlite path, PostgreSQL URL or Redis URL

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite, postgres or redis (default: sqlite)
  - CHANNEL_URL (-c): Redis URL for vote fan-out across instances
  - STREAM_HEARTBEAT (-heartbeat): keep-alive interval (default: 25s)
  - STREAM_RETRY_DELAY (-retry): resubscribe delay (default: 1s)
  - LOG_LEVEL (-log-level): debug, info, warn, error

Without CHANNEL_URL a redis store shares its client with the event
channel; sqlite and postgres stores fall back to an in-process channel,
which only fans out votes cast on the same instance.

# Architecture

	vote → ledger → store (atomic increment) → channel (publish)
	                                               ↓
	                   viewer ← feed (SSE) ← subscription per viewer

  - store: aggregate store (sqlite, postgres, redis)
  - ledger: vote recording and poll reads
  - channel: publish/subscribe (in-process, redis)
  - feed: per-viewer event stream with resubscription
  - feedclient: Go client that follows a poll's tally
  - handlers, router, middleware, models: HTTP surface
  - cliparse: configuration parsing
  - db: SQL schema

The cmd/pollwatch tool follows a poll from the terminal.
*/
package main
