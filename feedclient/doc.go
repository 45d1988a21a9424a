// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package feedclient follows a poll's live tally from Go.

	c := feedclient.New("http://localhost:3318", pollID,
		feedclient.OnUpdate(func(t feedclient.Tally) { render(t) }),
	)
	go c.Run(ctx)

Run reads the current tally, then opens the poll's event stream. Every
vote event overwrites the option count and the total with the server's
values, and only when they are larger, so replays and out-of-order events
never move a number backwards. When the stream drops, or no bytes arrive
for two heartbeat periods, Run waits and starts over with a fresh read,
which replaces the tally outright. An unknown poll ends Run with
ErrPollNotFound.

# Voting

Vote casts a vote and applies the server's counts right away. A vote for
an option the poll lacks fails with ErrOptionNotFound. Markers record the
vote locally so the same client does not vote twice, even from
concurrent calls:

	m, _ := feedclient.OpenBoltMarkers("votes.db")
	c := feedclient.New(base, pollID, feedclient.WithMarkers(m))

The server does not enforce one vote per person.
*/
package feedclient
