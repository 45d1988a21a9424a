// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package feedclient

import "github.com/danielhkuo/livepoll/models"

// Tally is the client's view of a poll.
type Tally struct {
	Question   string
	Options    []models.Option
	TotalVotes int64
}

// Count returns the count of an option and whether it is known.
func (t Tally) Count(optionID string) (int64, bool) {
	for _, opt := range t.Options {
		if opt.ID == optionID {
			return opt.Count, true
		}
	}
	return 0, false
}

func (t Tally) clone() Tally {
	out := t
	out.Options = append([]models.Option(nil), t.Options...)
	return out
}

// merge takes a baseline read. The baseline is the store's full
// aggregate, so it replaces the option list, the counts and the total.
func (t *Tally) merge(p models.PollResponse) {
	t.Question = p.Question
	t.Options = append([]models.Option(nil), p.Options...)
	t.TotalVotes = p.TotalVotes
}

// apply overwrites the option count and the total with the event's
// values when they are newer. Applying the same event twice is a no-op.
// Events only move counts up between two baseline reads.
func (t *Tally) apply(ev models.VoteEvent) bool {
	changed := false
	for i := range t.Options {
		if t.Options[i].ID == ev.OptionID && ev.Count > t.Options[i].Count {
			t.Options[i].Count = ev.Count
			changed = true
		}
	}
	if ev.TotalVotes > t.TotalVotes {
		t.TotalVotes = ev.TotalVotes
		changed = true
	}
	return changed
}
