// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles database schema creation for the SQL aggregate store.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.
The same statements run on SQLite (modernc.org/sqlite) and PostgreSQL.

# Tables

  - poll: question text and the running total_votes counter
  - poll_option: options in insertion order (position) with vote_count

# Relationships

	poll 1──* poll_option

Foreign keys use ON DELETE CASCADE.

# Counters

vote_count and total_votes are only ever changed by a single
UPDATE ... SET n = n + 1 per vote, both inside one transaction.
*/
package db
