// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package channel

import (
	"context"
	"errors"
)

var ErrClosed = errors.New("channel closed")

// Channel is a topic-keyed publish/subscribe bus. Delivery is best
// effort: a message published while nobody listens is gone.
type Channel interface {
	// Publish returns how many subscribers the message was handed to.
	Publish(ctx context.Context, topic string, payload []byte) (int, error)
	Subscribe(ctx context.Context, topic string) (Subscription, error)
	Close() error
}

// Subscription is one listener on one topic.
type Subscription interface {
	// Messages is closed when the subscription ends for any reason.
	Messages() <-chan []byte
	// Err explains why Messages was closed. Nil after a Close call.
	Err() error
	Close() error
}

// PollTopic names the topic carrying a poll's vote events.
func PollTopic(pollID string) string {
	return "poll:" + pollID
}
