package models

// Stream event names
const (
	EventInit    = "init"
	EventMessage = "message"
)

// Request types

type CreatePollRequest struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

type VoteRequest struct {
	OptionID string `json:"optionId"`
}

// Response types

type CreatePollResponse struct {
	PollID string `json:"pollId"`
}

// VoteResponse doubles as the payload published to live viewers.
type VoteResponse = VoteEvent

type PollResponse struct {
	Question   string   `json:"question"`
	Options    []Option `json:"options"`
	TotalVotes int64    `json:"totalVotes"`
}

type StreamInit struct {
	Status string `json:"status"`
}

// Domain types

type Poll struct {
	ID         string   `json:"id"`
	Question   string   `json:"question"`
	Options    []Option `json:"options"`
	TotalVotes int64    `json:"totalVotes"`
}

type Option struct {
	ID    string `json:"optionId"`
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// VoteEvent carries the counts produced by one vote. It is never stored.
type VoteEvent struct {
	OptionID   string `json:"optionId"`
	Count      int64  `json:"count"`
	TotalVotes int64  `json:"totalVotes"`
}

// SumCounts adds up the per-option counters.
func (p Poll) SumCounts() int64 {
	var sum int64
	for _, opt := range p.Options {
		sum += opt.Count
	}
	return sum
}

// Response returns the public JSON view of the poll.
func (p Poll) Response() PollResponse {
	options := p.Options
	if options == nil {
		options = []Option{}
	}
	return PollResponse{
		Question:   p.Question,
		Options:    options,
		TotalVotes: p.TotalVotes,
	}
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
