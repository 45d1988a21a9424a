// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package channel

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
)

func openTestRedis(t *testing.T) *Redis {
	t.Helper()

	url := os.Getenv("LIVEPOLL_TEST_REDIS_URL")
	if url == "" {
		t.Skip("LIVEPOLL_TEST_REDIS_URL not set")
	}

	r, err := OpenRedis(context.Background(), url)
	if err != nil {
		t.Fatalf("Failed to open redis channel: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRedis_PublishSubscribe(t *testing.T) {
	r := openTestRedis(t)
	ctx := context.Background()
	topic := PollTopic(uuid.NewString())

	sub, err := r.Subscribe(ctx, topic)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Close()

	for _, payload := range []string{"a", "b", "c"} {
		n, err := r.Publish(ctx, topic, []byte(payload))
		if err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
		if n != 1 {
			t.Errorf("Expected 1 receiver, got %d", n)
		}
	}

	for _, want := range []string{"a", "b", "c"} {
		if got := string(recv(t, sub)); got != want {
			t.Errorf("Expected %s, got %s", want, got)
		}
	}
}

func TestRedis_CloseSubscription(t *testing.T) {
	r := openTestRedis(t)
	ctx := context.Background()
	topic := PollTopic(uuid.NewString())

	sub, err := r.Subscribe(ctx, topic)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if err := sub.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, ok := <-sub.Messages(); ok {
		t.Error("Expected messages channel to be closed")
	}
	if sub.Err() != nil {
		t.Errorf("Expected nil Err after own close, got %v", sub.Err())
	}

	n, err := r.Publish(ctx, topic, []byte("late"))
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected 0 receivers after close, got %d", n)
	}
}
