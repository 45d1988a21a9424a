// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package feed serves live vote events to viewers as server-sent events.

# Connection Lifecycle

	INIT → SUBSCRIBING → STREAMING → (RETRY_WAIT → SUBSCRIBING)* → CLOSED

Server.Serve writes the init event, then runs a Subscriber for the poll's
topic. A failed subscribe or a dropped subscription waits RetryDelay and
subscribes again while the viewer's stream stays open.

# Wire Format

	event: init
	data: {"status":"connected"}

	event: message
	data: {"optionId":"...","count":3,"totalVotes":7}

	: heartbeat 1760515200000

Events are never replayed. A viewer that reconnects reads the poll first
and applies later events on top of that baseline.
*/
package feed
