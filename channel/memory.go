// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package channel

import (
	"context"
	"log/slog"
	"sync"
)

// DefaultBuffer is the per-subscriber queue length of the memory channel.
const DefaultBuffer = 64

// Memory is an in-process Channel. Each subscriber has a bounded queue;
// when it is full the message is dropped for that subscriber only.
type Memory struct {
	mu     sync.Mutex
	subs   map[string]map[*memorySub]struct{}
	buffer int
	closed bool
}

func NewMemory() *Memory {
	return NewMemoryBuffer(DefaultBuffer)
}

func NewMemoryBuffer(buffer int) *Memory {
	if buffer < 1 {
		buffer = 1
	}
	return &Memory{
		subs:   make(map[string]map[*memorySub]struct{}),
		buffer: buffer,
	}
}

func (m *Memory) Publish(ctx context.Context, topic string, payload []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}

	delivered := 0
	for sub := range m.subs[topic] {
		msg := make([]byte, len(payload))
		copy(msg, payload)
		select {
		case sub.out <- msg:
			delivered++
		default:
			slog.Warn("subscriber queue full, dropping message", "topic", topic)
		}
	}

	return delivered, nil
}

func (m *Memory) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	sub := &memorySub{
		m:     m,
		topic: topic,
		out:   make(chan []byte, m.buffer),
	}
	if m.subs[topic] == nil {
		m.subs[topic] = make(map[*memorySub]struct{})
	}
	m.subs[topic][sub] = struct{}{}

	return sub, nil
}

// Subscribers returns the number of live subscriptions on topic.
func (m *Memory) Subscribers(topic string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs[topic])
}

// Close ends every subscription with ErrClosed.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	for _, set := range m.subs {
		for sub := range set {
			sub.finish(ErrClosed)
		}
	}
	m.subs = nil

	return nil
}

type memorySub struct {
	m     *Memory
	topic string
	out   chan []byte

	// guarded by m.mu
	err  error
	done bool
}

func (s *memorySub) Messages() <-chan []byte {
	return s.out
}

func (s *memorySub) Err() error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.err
}

func (s *memorySub) Close() error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if s.done {
		return nil
	}
	if set := s.m.subs[s.topic]; set != nil {
		delete(set, s)
		if len(set) == 0 {
			delete(s.m.subs, s.topic)
		}
	}
	s.finish(nil)

	return nil
}

// finish must be called with m.mu held.
func (s *memorySub) finish(err error) {
	if s.done {
		return
	}
	s.done = true
	s.err = err
	close(s.out)
}
