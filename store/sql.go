// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/danielhkuo/livepoll/db"
	"github.com/danielhkuo/livepoll/models"
)

// SQL is an aggregate store on SQLite or PostgreSQL.
type SQL struct {
	db     *sql.DB
	driver string
}

// OpenSQL opens the database, creates the schema and returns the store.
// driver is "sqlite" or "postgres".
func OpenSQL(ctx context.Context, driver, dsn string) (*SQL, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", driver, err)
	}

	if driver == TypeSQLite {
		// One connection: writers serialize and ":memory:" stays a single database
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
		conn.SetConnMaxLifetime(0)
		if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("configure sqlite db: %w", err)
		}
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s db: %w", driver, err)
	}

	if err := db.CreateSchema(conn); err != nil {
		conn.Close()
		return nil, err
	}

	return &SQL{db: conn, driver: driver}, nil
}

// DB returns the underlying sql.DB instance.
func (s *SQL) DB() *sql.DB {
	return s.db
}

func (s *SQL) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// CreatePoll inserts the poll and its options in one transaction.
func (s *SQL) CreatePoll(ctx context.Context, question string, options []string) (string, error) {
	pollID := newID()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", storageErr("create poll", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.rebind(`
		INSERT INTO poll (id, question, total_votes)
		VALUES (?, ?, 0)
	`), pollID, question)
	if err != nil {
		return "", storageErr("create poll", err)
	}

	for i, value := range options {
		_, err = tx.ExecContext(ctx, s.rebind(`
			INSERT INTO poll_option (id, poll_id, position, value, vote_count)
			VALUES (?, ?, ?, ?, 0)
		`), newID(), pollID, i, value)
		if err != nil {
			return "", storageErr("create option", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", storageErr("create poll", err)
	}

	return pollID, nil
}

// IncrementVote bumps the option counter and the poll total in one
// transaction. The option must belong to the poll.
func (s *SQL) IncrementVote(ctx context.Context, pollID, optionID string) (int64, int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, storageErr("increment vote", err)
	}
	defer tx.Rollback()

	var count int64
	err = tx.QueryRowContext(ctx, s.rebind(`
		UPDATE poll_option
		SET vote_count = vote_count + 1
		WHERE poll_id = ? AND id = ?
		RETURNING vote_count
	`), pollID, optionID).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, fmt.Errorf("option %s in poll %s: %w", optionID, pollID, ErrNotFound)
	}
	if err != nil {
		return 0, 0, storageErr("increment option", err)
	}

	var total int64
	err = tx.QueryRowContext(ctx, s.rebind(`
		UPDATE poll
		SET total_votes = total_votes + 1
		WHERE id = ?
		RETURNING total_votes
	`), pollID).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, fmt.Errorf("poll %s: %w", pollID, ErrNotFound)
	}
	if err != nil {
		return 0, 0, storageErr("increment total", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, storageErr("increment vote", err)
	}

	return count, total, nil
}

// GetPoll reads the poll and its options inside one read transaction so
// the counters and the total come from the same snapshot.
func (s *SQL) GetPoll(ctx context.Context, pollID string) (models.Poll, error) {
	tx, err := s.db.BeginTx(ctx, s.readTxOptions())
	if err != nil {
		return models.Poll{}, storageErr("get poll", err)
	}
	defer tx.Rollback()

	poll := models.Poll{ID: pollID}
	err = tx.QueryRowContext(ctx, s.rebind(`
		SELECT question, total_votes FROM poll WHERE id = ?
	`), pollID).Scan(&poll.Question, &poll.TotalVotes)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Poll{}, fmt.Errorf("poll %s: %w", pollID, ErrNotFound)
	}
	if err != nil {
		return models.Poll{}, storageErr("get poll", err)
	}

	rows, err := tx.QueryContext(ctx, s.rebind(`
		SELECT id, value, vote_count
		FROM poll_option
		WHERE poll_id = ?
		ORDER BY position
	`), pollID)
	if err != nil {
		return models.Poll{}, storageErr("get options", err)
	}
	defer rows.Close()

	poll.Options = []models.Option{}
	for rows.Next() {
		var opt models.Option
		if err := rows.Scan(&opt.ID, &opt.Value, &opt.Count); err != nil {
			return models.Poll{}, storageErr("scan option", err)
		}
		poll.Options = append(poll.Options, opt)
	}
	if err := rows.Err(); err != nil {
		return models.Poll{}, storageErr("get options", err)
	}

	return poll, nil
}

// readTxOptions picks the isolation for multi-statement reads. Postgres
// defaults to READ COMMITTED, which takes a new snapshot per statement.
// SQLite runs on one connection, so a plain transaction already sees a
// single state.
func (s *SQL) readTxOptions() *sql.TxOptions {
	if s.driver != TypePostgres {
		return nil
	}
	return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
}

// rebind turns ? placeholders into $n for postgres.
func (s *SQL) rebind(query string) string {
	if s.driver != TypePostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
