// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

LoadDotEnv reads a .env file (if present) into the environment, then
ParseFlags returns a Config struct with all settings:

	_ = cliparse.LoadDotEnv()
	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - Port: Server listen port (default: 3318)
  - DatabaseURL: sqlite path, PostgreSQL or Redis URL (required)
  - DatabaseType: sqlite, postgres or redis (default: sqlite)
  - ChannelURL: Redis URL for the event channel (default: in-process)
  - Heartbeat: stream keep-alive interval (default: 25s)
  - RetryDelay: wait before resubscribing a stream (default: 1s)
  - LogLevel: debug, info, warn or error (default: info)

# CLI Flags

	-p           Server port
	-d           Database URL
	-t           Database type
	-c           Event channel URL
	-heartbeat   Stream heartbeat interval
	-retry       Stream resubscribe delay
	-log-level   Log level

# Environment Variables

Flags fall back to environment variables:

	PORT               → -p
	DATABASE_URL       → -d
	DATABASE_TYPE      → -t
	CHANNEL_URL        → -c
	STREAM_HEARTBEAT   → -heartbeat
	STREAM_RETRY_DELAY → -retry
	LOG_LEVEL          → -log-level

CLI flags take precedence over environment variables, and variables
already in the environment take precedence over .env entries.

# Validation

ParseFlags returns an error if DATABASE_URL is missing, the database type
is unknown, a duration does not parse, or the log level is unknown.
*/
package cliparse
