// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package feed

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danielhkuo/livepoll/channel"
)

type pollStates struct {
	mu     sync.Mutex
	byPoll map[string][]State
}

func (p *pollStates) record(pollID string, s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.byPoll == nil {
		p.byPoll = make(map[string][]State)
	}
	p.byPoll[pollID] = append(p.byPoll[pollID], s)
}

func (p *pollStates) last(pollID string) State {
	p.mu.Lock()
	defer p.mu.Unlock()
	states := p.byPoll[pollID]
	if len(states) == 0 {
		return StateInit
	}
	return states[len(states)-1]
}

func newMemory(t *testing.T) *channel.Memory {
	t.Helper()

	m := channel.NewMemory()
	t.Cleanup(func() { m.Close() })
	return m
}

// readFrame reads one blank-line terminated frame.
func readFrame(t *testing.T, r *bufio.Reader) string {
	t.Helper()

	var lines []string
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("Failed to read stream: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		if line == "" {
			if len(lines) == 0 {
				continue
			}
			return strings.Join(lines, "\n")
		}
		lines = append(lines, line)
	}
}

// nextEvent skips heartbeat comments.
func nextEvent(t *testing.T, r *bufio.Reader) string {
	t.Helper()

	for {
		frame := readFrame(t, r)
		if !strings.HasPrefix(frame, ":") {
			return frame
		}
	}
}

func startStream(t *testing.T, s *Server, pollID string) (*bufio.Reader, *http.Response, context.CancelFunc) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Serve(r.Context(), w, pollID)
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		cancel()
		t.Fatalf("Failed to open stream: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		resp.Body.Close()
	})

	return bufio.NewReader(resp.Body), resp, cancel
}

func TestServe_InitThenMessagesInOrder(t *testing.T) {
	ch := newMemory(t)

	s := NewServer(ch, time.Hour, 10*time.Millisecond)
	r, resp, _ := startStream(t, s, "p1")

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Expected text/event-stream, got %s", ct)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("Expected no-cache, got %s", cc)
	}

	if got, want := readFrame(t, r), "event: init\ndata: {\"status\":\"connected\"}"; got != want {
		t.Fatalf("Expected init frame %q, got %q", want, got)
	}

	waitFor(t, "subscription", func() bool { return ch.Subscribers(channel.PollTopic("p1")) == 1 })

	ctx := context.Background()
	for _, id := range []string{"A", "B", "C"} {
		ch.Publish(ctx, channel.PollTopic("p1"), []byte(`{"optionId": "`+id+`", "count": 1, "totalVotes": 1}`))
	}
	// other polls stay out of this stream
	ch.Publish(ctx, channel.PollTopic("p2"), []byte(`{"optionId":"X","count":1,"totalVotes":1}`))

	for _, id := range []string{"A", "B", "C"} {
		want := "event: message\ndata: {\"optionId\":\"" + id + "\",\"count\":1,\"totalVotes\":1}"
		if got := nextEvent(t, r); got != want {
			t.Errorf("Expected %q, got %q", want, got)
		}
	}
}

func TestServe_Heartbeat(t *testing.T) {
	ch := newMemory(t)

	s := NewServer(ch, 20*time.Millisecond, 10*time.Millisecond)
	r, _, _ := startStream(t, s, "p1")

	readFrame(t, r) // init

	frame := readFrame(t, r)
	if !strings.HasPrefix(frame, ": heartbeat ") {
		t.Errorf("Expected heartbeat comment, got %q", frame)
	}
}

func TestServe_DropsMalformedPayload(t *testing.T) {
	ch := newMemory(t)

	s := NewServer(ch, time.Hour, 10*time.Millisecond)
	r, _, _ := startStream(t, s, "p1")
	readFrame(t, r)

	waitFor(t, "subscription", func() bool { return ch.Subscribers(channel.PollTopic("p1")) == 1 })
	ch.Publish(context.Background(), channel.PollTopic("p1"), []byte("{broken"))
	ch.Publish(context.Background(), channel.PollTopic("p1"), []byte(`{"optionId":"ok"}`))

	if got := nextEvent(t, r); got != "event: message\ndata: {\"optionId\":\"ok\"}" {
		t.Errorf("Expected malformed payload to be skipped, got %q", got)
	}
}

func TestServe_CleanupOnDisconnect(t *testing.T) {
	ch := newMemory(t)
	states := &pollStates{}

	s := NewServer(ch, 10*time.Millisecond, 10*time.Millisecond)
	s.OnState = states.record

	r, resp, cancel := startStream(t, s, "p1")
	readFrame(t, r)
	waitFor(t, "subscription", func() bool { return ch.Subscribers(channel.PollTopic("p1")) == 1 })

	cancel()
	resp.Body.Close()

	waitFor(t, "subscription closed", func() bool { return ch.Subscribers(channel.PollTopic("p1")) == 0 })
	waitFor(t, "closed state", func() bool { return states.last("p1") == StateClosed })
}

func TestServe_KeepsStreamThroughChannelOutage(t *testing.T) {
	ch := newTestChannel(t, 0)

	s := NewServer(ch, time.Hour, time.Millisecond)
	r, _, _ := startStream(t, s, "p1")
	readFrame(t, r)

	waitFor(t, "subscription", func() bool { return ch.Subscribers(channel.PollTopic("p1")) == 1 })
	ch.drop()
	waitFor(t, "resubscribe", func() bool {
		attempts, _, _ := ch.stats()
		return attempts == 2 && ch.Subscribers(channel.PollTopic("p1")) == 1
	})

	ch.Publish(context.Background(), channel.PollTopic("p1"), []byte(`{"optionId":"late"}`))
	if got := nextEvent(t, r); got != "event: message\ndata: {\"optionId\":\"late\"}" {
		t.Errorf("Expected event after resubscribe, got %q", got)
	}
}

type plainWriter struct {
	header http.Header
}

func (p *plainWriter) Header() http.Header         { return p.header }
func (p *plainWriter) Write(b []byte) (int, error) { return len(b), nil }
func (p *plainWriter) WriteHeader(int)             {}

func TestServe_RequiresFlusher(t *testing.T) {
	s := NewServer(channel.NewMemory(), 0, 0)

	err := s.Serve(context.Background(), &plainWriter{header: http.Header{}}, "p1")
	if !errors.Is(err, ErrStreamingUnsupported) {
		t.Errorf("Expected ErrStreamingUnsupported, got %v", err)
	}
}
