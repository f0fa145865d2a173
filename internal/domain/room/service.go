package room

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

type CreateInput struct {
	CreatorID   string
	Title       string
	Description string
	Options     []string
	Deadline    time.Time
}

type Service struct {
	repo       Repository
	cache      Cache
	maxOptions int
	now        func() time.Time
	log        *slog.Logger
}

func NewService(repo Repository) *Service {
	return &Service{
		repo:       repo,
		maxOptions: MaxOptions,
		now:        time.Now,
		log:        slog.Default(),
	}
}

// SetCache enables read-through caching of GetRoom.
func (s *Service) SetCache(c Cache) {
	s.cache = c
}

// SetMaxOptions overrides the upper option bound; values below MinOptions are ignored.
func (s *Service) SetMaxOptions(n int) {
	if n >= MinOptions {
		s.maxOptions = n
	}
}

func (s *Service) SetLogger(l *slog.Logger) {
	if l != nil {
		s.log = l
	}
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Room, error) {
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	if title == "" || description == "" || in.Options == nil || in.Deadline.IsZero() {
		return nil, ErrMissingField
	}
	if in.CreatorID == "" {
		return nil, invalidArgument("creator is required")
	}
	if len(in.Options) < MinOptions {
		return nil, ErrTooFewOptions
	}
	if len(in.Options) > s.maxOptions {
		return nil, &Error{Kind: KindTooManyOptions, Msg: fmt.Sprintf("at most %d options are allowed", s.maxOptions)}
	}

	now := s.now()
	if !in.Deadline.After(now) {
		return nil, ErrPastDeadline
	}

	opts := make([]Option, 0, len(in.Options))
	for _, text := range in.Options {
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, &Error{Kind: KindMissingField, Msg: "option text is required"}
		}
		opts = append(opts, Option{Text: text, Justification: []string{}})
	}

	r := &Room{
		ID:          uuid.NewString(),
		CreatorID:   in.CreatorID,
		Title:       title,
		Description: description,
		Options:     opts,
		Deadline:    in.Deadline.UTC(),
		Voters:      []string{},
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, Persistence(err)
	}

	s.log.Info("room created", "room_id", r.ID, "options", len(r.Options))
	return r, nil
}

// Get returns a room with its current tallies and voter list. No authorization
// is applied; clients use Voters to tell whether they have already voted.
func (s *Service) Get(ctx context.Context, id string) (*Room, error) {
	if id == "" {
		return nil, ErrRoomNotFound
	}
	if s.cache != nil {
		r, ok, err := s.cache.Get(ctx, id)
		if err != nil {
			s.log.Warn("room cache get failed", "room_id", id, "error", err)
		} else if ok {
			return r, nil
		}
	}

	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, Persistence(err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, r); err != nil {
			s.log.Warn("room cache set failed", "room_id", id, "error", err)
		}
	}
	return r, nil
}

func (s *Service) ListByCreator(ctx context.Context, creatorID string) ([]Summary, error) {
	if creatorID == "" {
		return nil, ErrMissingField
	}
	res, err := s.repo.ListByCreator(ctx, creatorID)
	if err != nil {
		return nil, Persistence(err)
	}
	if res == nil {
		res = []Summary{}
	}
	return res, nil
}

// Vote records one ballot. Checks run in order: room exists, deadline not
// passed, voter not yet counted, then voter id and option index valid. A
// closed room or a repeat voter is reported as such whatever the other
// arguments hold. The repository repeats the deadline and voter checks under
// its atomicity guarantee, so a snapshot that goes stale between the read and
// the write cannot double count.
func (s *Service) Vote(ctx context.Context, roomID string, optionIndex int, voterID, justification string) error {
	r, err := s.repo.GetByID(ctx, roomID)
	if err != nil {
		return Persistence(err)
	}
	voterID = strings.TrimSpace(voterID)

	now := s.now()
	if !r.Open(now) {
		s.log.Info("vote rejected", "room_id", roomID, "reason", KindVotingClosed.String())
		return ErrVotingClosed
	}
	if voterID != "" && r.HasVoted(voterID) {
		s.log.Info("vote rejected", "room_id", roomID, "reason", KindAlreadyVoted.String())
		return ErrAlreadyVoted
	}
	if voterID == "" {
		return invalidArgument("voter id is required")
	}
	if optionIndex < 0 || optionIndex >= len(r.Options) {
		return invalidArgument(fmt.Sprintf("option index must be between 0 and %d", len(r.Options)-1))
	}

	b := Ballot{
		RoomID:        roomID,
		OptionIndex:   optionIndex,
		VoterID:       voterID,
		Justification: strings.TrimSpace(justification),
		CastAt:        now.UTC(),
	}
	if err := s.repo.RecordVote(ctx, b); err != nil {
		if k := KindOf(err); k != 0 && k != KindPersistence {
			s.log.Info("vote rejected", "room_id", roomID, "reason", k.String())
		}
		return Persistence(err)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, roomID); err != nil {
			s.log.Warn("room cache invalidate failed", "room_id", roomID, "error", err)
		}
	}

	s.log.Info("vote recorded", "room_id", roomID, "option_index", optionIndex)
	return nil
}

// Results returns the justification-annotated tally in creation order. Only
// the room's creator may read it.
func (s *Service) Results(ctx context.Context, roomID, requesterID string) ([]Result, error) {
	r, err := s.repo.GetByID(ctx, roomID)
	if err != nil {
		return nil, Persistence(err)
	}
	if requesterID == "" || requesterID != r.CreatorID {
		return nil, ErrForbidden
	}

	res := make([]Result, 0, len(r.Options))
	for _, o := range r.Options {
		just := make([]string, len(o.Justification))
		copy(just, o.Justification)
		res = append(res, Result{
			Text:          o.Text,
			Votes:         o.Votes,
			Justification: just,
		})
	}
	return res, nil
}
