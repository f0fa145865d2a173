package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"pollpulse/internal/domain/room"
	"pollpulse/internal/platform/database"
)

// openTestDB connects to POLLPULSE_TEST_DSN or skips the test.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("POLLPULSE_TEST_DSN")
	if dsn == "" {
		t.Skip("POLLPULSE_TEST_DSN not set")
	}
	db, err := database.NewPostgres(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := CreateSchema(context.Background(), db); err != nil {
		t.Fatalf("schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestGetByIDTallyMatchesVotersUnderConcurrentVotes(t *testing.T) {
	db := openTestDB(t)
	repo := NewRoomRepo(db)
	ctx := context.Background()

	now := time.Now().UTC()
	rm := &room.Room{
		ID:          uuid.NewString(),
		CreatorID:   "creator",
		Title:       "Lunch",
		Description: "Where?",
		Options:     []room.Option{{Text: "a"}, {Text: "b"}},
		Deadline:    now.Add(time.Hour),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := repo.Create(ctx, rm); err != nil {
		t.Fatalf("create: %v", err)
	}

	const voters = 40
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < voters; i++ {
			b := room.Ballot{RoomID: rm.ID, OptionIndex: i % 2, VoterID: fmt.Sprintf("v%d", i), CastAt: time.Now().UTC()}
			if err := repo.RecordVote(ctx, b); err != nil {
				t.Errorf("vote %d: %v", i, err)
				return
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	for {
		got, err := repo.GetByID(ctx, rm.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.TotalVotes() != int64(len(got.Voters)) {
			t.Fatalf("tally %d does not match %d voters", got.TotalVotes(), len(got.Voters))
		}
		select {
		case <-done:
			final, err := repo.GetByID(ctx, rm.ID)
			if err != nil {
				t.Fatalf("final get: %v", err)
			}
			if len(final.Voters) != voters || final.TotalVotes() != voters {
				t.Fatalf("final tally %d with %d voters, want %d", final.TotalVotes(), len(final.Voters), voters)
			}
			return
		default:
		}
	}
}

func TestRecordVoteRejectsRepeatVoter(t *testing.T) {
	db := openTestDB(t)
	repo := NewRoomRepo(db)
	ctx := context.Background()

	now := time.Now().UTC()
	rm := &room.Room{
		ID:          uuid.NewString(),
		CreatorID:   "creator",
		Title:       "Lunch",
		Description: "Where?",
		Options:     []room.Option{{Text: "a"}, {Text: "b"}},
		Deadline:    now.Add(time.Hour),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := repo.Create(ctx, rm); err != nil {
		t.Fatalf("create: %v", err)
	}

	b := room.Ballot{RoomID: rm.ID, OptionIndex: 0, VoterID: "A", CastAt: now}
	if err := repo.RecordVote(ctx, b); err != nil {
		t.Fatalf("first vote: %v", err)
	}
	b.OptionIndex = 7
	if err := repo.RecordVote(ctx, b); err != room.ErrAlreadyVoted {
		t.Fatalf("expected already voted, got %v", err)
	}
}
