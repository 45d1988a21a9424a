// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/danielhkuo/livepoll/channel"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/store"
)

// MaxIDLength bounds poll and option identifiers.
const MaxIDLength = 128

var ErrInvalidRequest = errors.New("invalid request")

// Ledger turns vote requests into counter updates and vote events.
// It keeps no state of its own; ordering comes from the store.
type Ledger struct {
	store   store.Store
	channel channel.Channel
}

func New(s store.Store, ch channel.Channel) *Ledger {
	return &Ledger{store: s, channel: ch}
}

// CreatePoll validates and stores a new poll.
func (l *Ledger) CreatePoll(ctx context.Context, question string, options []string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("%w: question is required", ErrInvalidRequest)
	}
	if len(options) == 0 {
		return "", fmt.Errorf("%w: options are required", ErrInvalidRequest)
	}

	values := make([]string, 0, len(options))
	for i, opt := range options {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			return "", fmt.Errorf("%w: option %d is empty", ErrInvalidRequest, i+1)
		}
		values = append(values, opt)
	}

	pollID, err := l.store.CreatePoll(ctx, question, values)
	if err != nil {
		return "", err
	}

	slog.Info("poll created", "poll_id", pollID, "options", len(values))
	return pollID, nil
}

// Poll returns the current aggregate. The running total is authoritative;
// a mismatch with the option sum is logged and left to heal.
func (l *Ledger) Poll(ctx context.Context, pollID string) (models.Poll, error) {
	if err := ValidateID(pollID); err != nil {
		return models.Poll{}, fmt.Errorf("poll id: %w", err)
	}

	poll, err := l.store.GetPoll(ctx, pollID)
	if err != nil {
		return models.Poll{}, err
	}

	if sum := poll.SumCounts(); sum != poll.TotalVotes {
		slog.Warn("vote total differs from option sum",
			"poll_id", pollID, "total", poll.TotalVotes, "sum", sum)
	}

	return poll, nil
}

// RecordVote counts one vote and announces it to live viewers.
//
// The store update must succeed; the publish is best effort. A failed
// publish is logged and the vote still counts.
func (l *Ledger) RecordVote(ctx context.Context, pollID, optionID string) (models.VoteEvent, error) {
	if err := ValidateID(pollID); err != nil {
		return models.VoteEvent{}, fmt.Errorf("poll id: %w", err)
	}
	if err := ValidateID(optionID); err != nil {
		return models.VoteEvent{}, fmt.Errorf("option id: %w", err)
	}

	count, total, err := l.store.IncrementVote(ctx, pollID, optionID)
	if err != nil {
		return models.VoteEvent{}, err
	}

	event := models.VoteEvent{
		OptionID:   optionID,
		Count:      count,
		TotalVotes: total,
	}

	l.publish(ctx, pollID, event)

	return event, nil
}

func (l *Ledger) publish(ctx context.Context, pollID string, event models.VoteEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to encode vote event", "poll_id", pollID, "error", err)
		return
	}

	topic := channel.PollTopic(pollID)
	delivered, err := l.channel.Publish(context.WithoutCancel(ctx), topic, payload)
	if err != nil {
		slog.Warn("vote recorded but publish failed", "poll_id", pollID, "topic", topic, "error", err)
		return
	}

	slog.Debug("vote event published", "poll_id", pollID, "option_id", event.OptionID, "delivered", delivered)
}

// ValidateID accepts non-empty opaque tokens without whitespace or
// control characters.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidRequest)
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("%w: id longer than %d bytes", ErrInvalidRequest, MaxIDLength)
	}
	for _, r := range id {
		if unicode.IsSpace(r) || unicode.IsControl(r) || r == unicode.ReplacementChar {
			return fmt.Errorf("%w: id contains invalid characters", ErrInvalidRequest)
		}
	}
	return nil
}
