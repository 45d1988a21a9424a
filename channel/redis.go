// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package channel

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Redis is a Channel on Redis PUBLISH/SUBSCRIBE.
type Redis struct {
	client *redis.Client
	owned  bool
}

// OpenRedis connects to the redis URL and owns the client.
func OpenRedis(ctx context.Context, url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Redis{client: client, owned: true}, nil
}

// NewRedis shares an existing client. Close leaves the client open.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Publish(ctx context.Context, topic string, payload []byte) (int, error) {
	n, err := r.client.Publish(ctx, topic, payload).Result()
	if err != nil {
		return 0, fmt.Errorf("publish %s: %w", topic, err)
	}
	return int(n), nil
}

// Subscribe waits for the server to confirm the subscription, so a dead
// connection fails here instead of silently delivering nothing.
func (r *Redis) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	ps := r.client.Subscribe(ctx, topic)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	sub := &redisSub{
		ps:     ps,
		out:    make(chan []byte, DefaultBuffer),
		cancel: cancel,
		exited: make(chan struct{}),
	}
	go sub.run(runCtx)

	return sub, nil
}

func (r *Redis) Close() error {
	if !r.owned {
		return nil
	}
	return r.client.Close()
}

type redisSub struct {
	ps     *redis.PubSub
	out    chan []byte
	cancel context.CancelFunc
	exited chan struct{}

	mu     sync.Mutex
	err    error
	closed bool
}

func (s *redisSub) run(ctx context.Context) {
	defer close(s.exited)
	defer close(s.out)

	for {
		msg, err := s.ps.ReceiveMessage(ctx)
		if err != nil {
			s.mu.Lock()
			if !s.closed {
				s.err = err
			}
			s.mu.Unlock()
			return
		}

		select {
		case s.out <- []byte(msg.Payload):
		case <-ctx.Done():
			return
		}
	}
}

func (s *redisSub) Messages() <-chan []byte {
	return s.out
}

func (s *redisSub) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close unsubscribes and waits for the reader goroutine to exit.
func (s *redisSub) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	err := s.ps.Close()
	<-s.exited

	return err
}
