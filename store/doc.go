// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package store is the aggregate store: polls, options and vote counters.

# Backends

	s, err := store.Open(ctx, cfg.DatabaseType, cfg.DatabaseURL)

  - sqlite (modernc.org/sqlite): default, also used by tests with ":memory:"
  - postgres (github.com/lib/pq)
  - redis (github.com/redis/go-redis/v9): poll:{id}, poll:{id}:votes and
    poll:{id}:meta hashes

# Counters

IncrementVote is the only way a counter changes. The option counter and
the poll total move together: a SQL transaction with two
UPDATE ... RETURNING statements, or one Lua script on Redis. An option
that does not belong to the poll yields ErrNotFound and nothing changes.

# Errors

  - ErrNotFound: unknown poll or option
  - *StorageError: backend failure, safe for the caller to retry
*/
package store
