// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/danielhkuo/livepoll/channel"
)

// DefaultRetryDelay is the wait between subscription attempts.
const DefaultRetryDelay = time.Second

// State is a step of a live connection's subscription lifecycle.
type State int

const (
	StateInit State = iota
	StateSubscribing
	StateStreaming
	StateRetryWait
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateSubscribing:
		return "subscribing"
	case StateStreaming:
		return "streaming"
	case StateRetryWait:
		return "retry_wait"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Subscriber keeps one subscription to Topic alive until its context ends.
//
// A failed subscribe or a subscription that dies moves to StateRetryWait,
// waits BackOff.NextBackOff() and subscribes again. The old subscription
// is always closed before the next attempt, so at most one is open.
type Subscriber struct {
	Channel channel.Channel
	Topic   string
	// BackOff defaults to a constant DefaultRetryDelay.
	BackOff backoff.BackOff
	OnState func(State)
}

// Run delivers every payload received on Topic, in arrival order.
// It returns nil once ctx is done, or the first error from deliver.
// When BackOff gives up (returns backoff.Stop) Run returns the last
// subscription error.
func (s *Subscriber) Run(ctx context.Context, deliver func([]byte) error) error {
	b := s.BackOff
	if b == nil {
		b = backoff.NewConstantBackOff(DefaultRetryDelay)
	}
	b.Reset()

	log := slog.With("topic", s.Topic)
	defer s.setState(StateClosed)

	for {
		if ctx.Err() != nil {
			return nil
		}

		s.setState(StateSubscribing)
		sub, err := s.Channel.Subscribe(ctx, s.Topic)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn("subscribe failed", "error", err)
		} else {
			b.Reset()
			s.setState(StateStreaming)

			var deliverErr error
			deliverErr, err = stream(ctx, sub, deliver)
			if deliverErr != nil {
				return deliverErr
			}
			if ctx.Err() != nil {
				return nil
			}
			log.Warn("subscription lost", "error", err)
		}

		delay := b.NextBackOff()
		if delay == backoff.Stop {
			return err
		}

		s.setState(StateRetryWait)
		if !sleep(ctx, delay) {
			return nil
		}
	}
}

// stream pumps one subscription and always closes it before returning.
func stream(ctx context.Context, sub channel.Subscription, deliver func([]byte) error) (deliverErr, subErr error) {
	defer sub.Close()

	msgs := sub.Messages()
	for {
		select {
		case <-ctx.Done():
			return nil, nil
		case msg, ok := <-msgs:
			if !ok {
				if err := sub.Err(); err != nil {
					return nil, err
				}
				return nil, channel.ErrClosed
			}
			if err := deliver(msg); err != nil {
				return err, nil
			}
		}
	}
}

func (s *Subscriber) setState(st State) {
	if s.OnState != nil {
		s.OnState(st)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
