// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/danielhkuo/livepoll/channel"
	"github.com/danielhkuo/livepoll/models"
)

// DefaultHeartbeat keeps idle proxies from closing the stream.
const DefaultHeartbeat = 25 * time.Second

var ErrStreamingUnsupported = errors.New("response writer does not support flushing")

var initPayload = mustJSON(models.StreamInit{Status: "connected"})

// Server streams a poll's vote events to one viewer per Serve call.
type Server struct {
	Channel    channel.Channel
	Heartbeat  time.Duration
	RetryDelay time.Duration
	// OnState observes the subscription lifecycle of every connection.
	OnState func(pollID string, st State)
}

func NewServer(ch channel.Channel, heartbeat, retryDelay time.Duration) *Server {
	return &Server{Channel: ch, Heartbeat: heartbeat, RetryDelay: retryDelay}
}

// Serve writes an event stream until ctx ends or a write fails.
//
// The viewer gets an init event right away, then one message event per
// vote event on the poll's topic and a heartbeat comment every Heartbeat.
// Subscription failures are retried behind the scenes; the stream stays
// open. When Serve returns, the heartbeat ticker is stopped and the
// subscription is closed.
func (s *Server) Serve(ctx context.Context, w http.ResponseWriter, pollID string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return ErrStreamingUnsupported
	}

	heartbeat := s.Heartbeat
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	retryDelay := s.RetryDelay
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	ew := &eventWriter{w: w, f: flusher}
	s.setState(pollID, StateInit)
	if err := ew.event(models.EventInit, initPayload); err != nil {
		return err
	}

	log := slog.With("poll_id", pollID)

	ctx, cancel := context.WithCancel(ctx)
	events := make(chan []byte)

	sub := &Subscriber{
		Channel: s.Channel,
		Topic:   channel.PollTopic(pollID),
		BackOff: backoff.NewConstantBackOff(retryDelay),
		OnState: func(st State) { s.setState(pollID, st) },
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sub.Run(ctx, func(payload []byte) error {
			select {
			case events <- payload:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()
	defer wg.Wait()
	defer cancel()

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := ew.comment(fmt.Sprintf("heartbeat %d", time.Now().UnixMilli())); err != nil {
				return err
			}
		case payload := <-events:
			var buf bytes.Buffer
			if err := json.Compact(&buf, payload); err != nil {
				log.Warn("dropping malformed vote event", "error", err)
				continue
			}
			if err := ew.event(models.EventMessage, buf.Bytes()); err != nil {
				return err
			}
		}
	}
}

func (s *Server) setState(pollID string, st State) {
	if s.OnState != nil {
		s.OnState(pollID, st)
	}
}

// eventWriter formats server-sent events and flushes after each one.
type eventWriter struct {
	w io.Writer
	f http.Flusher
}

func (e *eventWriter) event(name string, data []byte) error {
	if _, err := fmt.Fprintf(e.w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	e.f.Flush()
	return nil
}

func (e *eventWriter) comment(text string) error {
	if _, err := fmt.Fprintf(e.w, ": %s\n\n", text); err != nil {
		return err
	}
	e.f.Flush()
	return nil
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
