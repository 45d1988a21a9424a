// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielhkuo/livepoll/channel"
	"github.com/danielhkuo/livepoll/feed"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/testutil"
)

func streamServer(t *testing.T) (*httptest.Server, *channel.Memory, string, []string) {
	t.Helper()

	l, st, ch := setupLedger(t)
	cfg := testutil.GetTestConfig()

	streams := NewStreamHandler(l, feed.NewServer(ch, cfg.Heartbeat, cfg.RetryDelay))
	votes := NewVotingHandler(l)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /polls/{id}/stream", streams.Stream)
	mux.HandleFunc("POST /polls/{id}/votes", votes.CastVote)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	pollID, optionIDs := testutil.CreateTestPoll(t, st, "Live?", "Yes", "No")
	return srv, ch, pollID, optionIDs
}

func TestStream_UnknownPoll(t *testing.T) {
	srv, _, _, _ := streamServer(t)

	resp, err := http.Get(srv.URL + "/polls/missing/stream")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON error before stream opens, got %s", ct)
	}
}

func TestStream_DeliversVotes(t *testing.T) {
	srv, ch, pollID, optionIDs := streamServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, "GET", srv.URL+"/polls/"+pollID+"/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to open stream: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Expected text/event-stream, got %s", ct)
	}

	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	expectLine := func(match func(string) bool, what string) string {
		t.Helper()
		deadline := time.After(3 * time.Second)
		for {
			select {
			case line, ok := <-lines:
				if !ok {
					t.Fatalf("Stream ended while waiting for %s", what)
				}
				if match(line) {
					return line
				}
			case <-deadline:
				t.Fatalf("Timed out waiting for %s", what)
			}
		}
	}

	expectLine(func(l string) bool { return l == "event: "+models.EventInit }, "init event")

	deadline := time.Now().Add(2 * time.Second)
	for ch.Subscribers(channel.PollTopic(pollID)) != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	for i := 0; i < 2; i++ {
		body := strings.NewReader(fmt.Sprintf(`{"optionId":%q}`, optionIDs[0]))
		resp, err := http.Post(srv.URL+"/polls/"+pollID+"/votes", "application/json", body)
		if err != nil {
			t.Fatalf("Vote failed: %v", err)
		}
		resp.Body.Close()
	}

	first := expectLine(func(l string) bool { return strings.HasPrefix(l, "data: {\"optionId\"") }, "first vote")
	second := expectLine(func(l string) bool { return strings.HasPrefix(l, "data: {\"optionId\"") }, "second vote")

	if !strings.Contains(first, `"totalVotes":1`) || !strings.Contains(second, `"totalVotes":2`) {
		t.Errorf("Expected totals 1 then 2, got %s and %s", first, second)
	}

	expectLine(func(l string) bool { return strings.HasPrefix(l, ": heartbeat ") }, "heartbeat")

	cancel()
	deadline = time.Now().Add(2 * time.Second)
	for ch.Subscribers(channel.PollTopic(pollID)) != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := ch.Subscribers(channel.PollTopic(pollID)); n != 0 {
		t.Errorf("Expected subscription to close with the connection, got %d", n)
	}
}
