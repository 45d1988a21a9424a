// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package feedclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/danielhkuo/livepoll/models"
)

const (
	// DefaultReconnectDelay is the wait between stream attempts.
	DefaultReconnectDelay = 3 * time.Second

	// DefaultIdleTimeout is two missed heartbeats plus slack.
	DefaultIdleTimeout = 2*25*time.Second + 10*time.Second
)

var (
	ErrPollNotFound   = errors.New("poll not found")
	ErrOptionNotFound = errors.New("option not found in poll")
	ErrAlreadyVoted   = errors.New("already voted in this poll")
	ErrIdleTimeout    = errors.New("stream idle timeout")
)

// StatusError is a non-2xx answer from the server.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Code)
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// State is the connection status shown to the user.
type State int

const (
	StateConnecting State = iota
	StateConnected
	StateDisconnected
	StateError
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Client follows one poll's tally.
type Client struct {
	baseURL     string
	pollID      string
	http        *http.Client
	reconnect   backoff.BackOff
	idleTimeout time.Duration
	markers     Markers
	onUpdate    func(Tally)
	onState     func(State)

	mu    sync.Mutex
	tally Tally
	state State

	heartbeats atomic.Int64
}

type Option func(*Client)

// WithHTTPClient sets the client used for every request. The stream
// request must not have a response timeout, so the default has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithReconnectDelay(d time.Duration) Option {
	return func(c *Client) { c.reconnect = backoff.NewConstantBackOff(d) }
}

// WithBackOff replaces the reconnect policy. A policy that returns
// backoff.Stop ends Run with the last stream error.
func WithBackOff(b backoff.BackOff) Option {
	return func(c *Client) { c.reconnect = b }
}

func WithIdleTimeout(d time.Duration) Option {
	return func(c *Client) { c.idleTimeout = d }
}

func WithMarkers(m Markers) Option {
	return func(c *Client) { c.markers = m }
}

// OnUpdate is called with a copy of the tally after every change.
func OnUpdate(fn func(Tally)) Option {
	return func(c *Client) { c.onUpdate = fn }
}

func OnState(fn func(State)) Option {
	return func(c *Client) { c.onState = fn }
}

func New(baseURL, pollID string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		pollID:      pollID,
		http:        &http.Client{},
		reconnect:   backoff.NewConstantBackOff(DefaultReconnectDelay),
		idleTimeout: DefaultIdleTimeout,
		markers:     NewMemoryMarkers(),
		state:       StateDisconnected,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns a copy of the current tally.
func (c *Client) Snapshot() Tally {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tally.clone()
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Heartbeats returns how many keep-alive comments have been received.
func (c *Client) Heartbeats() int64 {
	return c.heartbeats.Load()
}

// Run reads a baseline tally, then follows the live stream until ctx is
// done. A dropped stream is retried with a fresh baseline. Run returns
// ErrPollNotFound if the poll does not exist.
func (c *Client) Run(ctx context.Context) error {
	defer c.setState(StateDisconnected)

	for {
		err := c.follow(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, ErrPollNotFound) {
			c.setState(StateError)
			return err
		}

		var se *StatusError
		if errors.As(err, &se) {
			c.setState(StateError)
		} else {
			c.setState(StateDisconnected)
		}

		delay := c.reconnect.NextBackOff()
		if delay == backoff.Stop {
			return err
		}
		slog.Warn("poll stream lost, reconnecting", "poll_id", c.pollID, "error", err, "delay", delay)

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

// follow runs one attempt: baseline read, then the stream until it ends.
func (c *Client) follow(ctx context.Context) error {
	c.setState(StateConnecting)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	poll, err := c.fetchPoll(ctx)
	if err != nil {
		return err
	}
	c.update(func(t *Tally) bool {
		t.merge(poll)
		return true
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pollURL("stream"), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	var idle atomic.Bool
	watchdog := time.AfterFunc(c.idleTimeout, func() {
		idle.Store(true)
		cancel()
	})
	defer watchdog.Stop()

	events := newEventReader(resp.Body)
	for {
		ev, err := events.Next()
		if err != nil {
			if idle.Load() {
				return ErrIdleTimeout
			}
			if errors.Is(err, io.EOF) {
				return errors.New("stream closed by server")
			}
			return fmt.Errorf("read stream: %w", err)
		}
		watchdog.Reset(c.idleTimeout)

		switch {
		case ev.IsComment():
			c.heartbeats.Add(1)
		case ev.Name == models.EventInit:
			c.reconnect.Reset()
			c.setState(StateConnected)
		case ev.Name == models.EventMessage:
			var vote models.VoteEvent
			if err := json.Unmarshal(ev.Data, &vote); err != nil || vote.OptionID == "" {
				slog.Warn("dropping malformed vote event", "poll_id", c.pollID, "data", string(ev.Data))
				continue
			}
			c.update(func(t *Tally) bool { return t.apply(vote) })
		default:
			slog.Debug("ignoring stream event", "poll_id", c.pollID, "event", ev.Name)
		}
	}
}

// Vote casts a vote for optionID. With markers set, a second vote in the
// same poll returns ErrAlreadyVoted without contacting the server. A vote
// for an option the poll does not have returns ErrOptionNotFound.
func (c *Client) Vote(ctx context.Context, optionID string) (models.VoteEvent, error) {
	prev, marked, err := c.markers.MarkIfAbsent(c.pollID, optionID)
	if err != nil {
		return models.VoteEvent{}, fmt.Errorf("write vote marker: %w", err)
	}
	if !marked {
		return models.VoteEvent{}, fmt.Errorf("%w (option %s)", ErrAlreadyVoted, prev)
	}

	ev, err := c.postVote(ctx, optionID)
	if err != nil {
		if cerr := c.markers.Clear(c.pollID); cerr != nil {
			slog.Warn("failed to clear vote marker", "poll_id", c.pollID, "error", cerr)
		}
		if errors.Is(err, ErrPollNotFound) {
			err = c.voteNotFound(ctx, optionID, err)
		}
		return models.VoteEvent{}, err
	}

	c.update(func(t *Tally) bool { return t.apply(ev) })
	return ev, nil
}

func (c *Client) postVote(ctx context.Context, optionID string) (models.VoteEvent, error) {
	body, err := json.Marshal(models.VoteRequest{OptionID: optionID})
	if err != nil {
		return models.VoteEvent{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.pollURL("votes"), bytes.NewReader(body))
	if err != nil {
		return models.VoteEvent{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var ev models.VoteEvent
	if err := c.doJSON(req, &ev); err != nil {
		return models.VoteEvent{}, fmt.Errorf("cast vote: %w", err)
	}
	return ev, nil
}

// voteNotFound tells an unknown option from an unknown poll. The server
// answers 404 for both, so the poll itself is read back.
func (c *Client) voteNotFound(ctx context.Context, optionID string, err error) error {
	if _, perr := c.fetchPoll(ctx); perr != nil {
		return err
	}
	return fmt.Errorf("cast vote: %w: %s", ErrOptionNotFound, optionID)
}

func (c *Client) fetchPoll(ctx context.Context) (models.PollResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pollURL(""), nil)
	if err != nil {
		return models.PollResponse{}, err
	}

	var poll models.PollResponse
	if err := c.doJSON(req, &poll); err != nil {
		return models.PollResponse{}, fmt.Errorf("read poll: %w", err)
	}
	return poll, nil
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) pollURL(suffix string) string {
	u := c.baseURL + "/polls/" + url.PathEscape(c.pollID)
	if suffix != "" {
		u += "/" + suffix
	}
	return u
}

func (c *Client) update(fn func(*Tally) bool) {
	c.mu.Lock()
	if !fn(&c.tally) {
		c.mu.Unlock()
		return
	}
	snap := c.tally.clone()
	c.mu.Unlock()

	if c.onUpdate != nil {
		c.onUpdate(snap)
	}
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	c.mu.Unlock()

	if c.onState != nil {
		c.onState(s)
	}
}

// CreatePoll creates a poll and returns its ID.
func CreatePoll(ctx context.Context, hc *http.Client, baseURL, question string, options []string) (string, error) {
	if hc == nil {
		hc = http.DefaultClient
	}
	body, err := json.Marshal(models.CreatePollRequest{Question: question, Options: options})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+"/polls", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	c := &Client{http: hc}
	var out models.CreatePollResponse
	if err := c.doJSON(req, &out); err != nil {
		return "", fmt.Errorf("create poll: %w", err)
	}
	return out.PollID, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var body models.ErrorResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body)

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrPollNotFound, body.Error)
	}
	return &StatusError{Code: resp.StatusCode, Message: body.Error}
}
