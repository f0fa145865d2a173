package room

import (
	"context"
	"time"
)

const (
	MinOptions = 2
	MaxOptions = 5
)

type Room struct {
	ID          string    `json:"id"`
	CreatorID   string    `json:"creator"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Options     []Option  `json:"options"`
	Deadline    time.Time `json:"deadline"`
	Voters      []string  `json:"voters"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Option struct {
	Text          string   `json:"text"`
	Votes         int64    `json:"votes"`
	Justification []string `json:"justification"`
}

// Summary is the listing view of a room.
type Summary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

// Result is one option's tally as shown to the room creator.
type Result struct {
	Text          string   `json:"text"`
	Votes         int64    `json:"votes"`
	Justification []string `json:"justification"`
}

// Ballot is a single vote request after identity resolution.
type Ballot struct {
	RoomID        string
	OptionIndex   int
	VoterID       string
	Justification string
	CastAt        time.Time
}

// HasVoted reports whether voterID is already in the room's voter list.
func (r *Room) HasVoted(voterID string) bool {
	for _, v := range r.Voters {
		if v == voterID {
			return true
		}
	}
	return false
}

// Open reports whether votes are accepted at t. The deadline itself is inclusive.
func (r *Room) Open(t time.Time) bool {
	return !t.After(r.Deadline)
}

// TotalVotes sums the option counters.
func (r *Room) TotalVotes() int64 {
	var total int64
	for _, o := range r.Options {
		total += o.Votes
	}
	return total
}

// Repository persists rooms. RecordVote must apply the ballot atomically with
// respect to other ballots on the same room, re-checking the deadline and
// voter membership under that guarantee.
type Repository interface {
	Create(ctx context.Context, r *Room) error
	GetByID(ctx context.Context, id string) (*Room, error)
	ListByCreator(ctx context.Context, creatorID string) ([]Summary, error)
	RecordVote(ctx context.Context, b Ballot) error
}

// Cache is an optional read-through cache for GetRoom.
type Cache interface {
	Get(ctx context.Context, id string) (*Room, bool, error)
	Set(ctx context.Context, r *Room) error
	Invalidate(ctx context.Context, id string) error
}
