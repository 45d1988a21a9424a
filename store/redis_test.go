// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"os"
	"testing"
)

func openTestRedis(t *testing.T) *Redis {
	t.Helper()

	url := os.Getenv("LIVEPOLL_TEST_REDIS_URL")
	if url == "" {
		t.Skip("LIVEPOLL_TEST_REDIS_URL not set")
	}

	rs, err := OpenRedis(context.Background(), url)
	if err != nil {
		t.Fatalf("Failed to open redis store: %v", err)
	}
	t.Cleanup(func() { rs.Close() })
	return rs
}

func TestRedis_CorruptOptionsList(t *testing.T) {
	rs := openTestRedis(t)
	ctx := context.Background()

	pollID, err := rs.CreatePoll(ctx, "Broken?", []string{"a", "b"})
	if err != nil {
		t.Fatalf("CreatePoll failed: %v", err)
	}
	if err := rs.Client().HSet(ctx, pollKey(pollID), "options", "{not json").Err(); err != nil {
		t.Fatalf("Failed to corrupt options: %v", err)
	}

	poll, err := rs.GetPoll(ctx, pollID)
	if err != nil {
		t.Fatalf("Expected corrupt options to be tolerated, got %v", err)
	}
	if len(poll.Options) != 0 {
		t.Errorf("Expected no options, got %d", len(poll.Options))
	}
	if poll.Question != "Broken?" {
		t.Errorf("Expected question to survive, got %q", poll.Question)
	}
}

func TestRedis_MissingTotalFallsBackToSum(t *testing.T) {
	rs := openTestRedis(t)
	ctx := context.Background()

	pollID, _ := rs.CreatePoll(ctx, "Total?", []string{"a", "b"})
	poll, _ := rs.GetPoll(ctx, pollID)
	rs.IncrementVote(ctx, pollID, poll.Options[0].ID)
	rs.IncrementVote(ctx, pollID, poll.Options[1].ID)

	if err := rs.Client().Del(ctx, metaKey(pollID)).Err(); err != nil {
		t.Fatalf("Failed to drop meta hash: %v", err)
	}

	poll, err := rs.GetPoll(ctx, pollID)
	if err != nil {
		t.Fatalf("GetPoll failed: %v", err)
	}
	if poll.TotalVotes != 2 {
		t.Errorf("Expected total 2 from option sum, got %d", poll.TotalVotes)
	}
}

func TestRedis_SharedClientNotClosed(t *testing.T) {
	rs := openTestRedis(t)

	shared := NewRedis(rs.Client())
	if err := shared.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := rs.Client().Ping(context.Background()).Err(); err != nil {
		t.Errorf("Expected shared client to stay open, got %v", err)
	}
}
