package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pollpulse/internal/domain/room"
)

type optionDoc struct {
	Text          string   `bson:"text"`
	Votes         int64    `bson:"votes"`
	Justification []string `bson:"justification"`
}

type roomDoc struct {
	ID          string      `bson:"_id"`
	CreatorID   string      `bson:"creator"`
	Title       string      `bson:"title"`
	Description string      `bson:"description"`
	Options     []optionDoc `bson:"options"`
	Deadline    time.Time   `bson:"deadline"`
	Voters      []string    `bson:"voters"`
	CreatedAt   time.Time   `bson:"createdAt"`
	UpdatedAt   time.Time   `bson:"updatedAt"`
}

func toDoc(r *room.Room) roomDoc {
	opts := make([]optionDoc, len(r.Options))
	for i, o := range r.Options {
		just := o.Justification
		if just == nil {
			just = []string{}
		}
		opts[i] = optionDoc{Text: o.Text, Votes: o.Votes, Justification: just}
	}
	voters := r.Voters
	if voters == nil {
		voters = []string{}
	}
	return roomDoc{
		ID:          r.ID,
		CreatorID:   r.CreatorID,
		Title:       r.Title,
		Description: r.Description,
		Options:     opts,
		Deadline:    r.Deadline,
		Voters:      voters,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func (d roomDoc) toRoom() *room.Room {
	opts := make([]room.Option, len(d.Options))
	for i, o := range d.Options {
		just := o.Justification
		if just == nil {
			just = []string{}
		}
		opts[i] = room.Option{Text: o.Text, Votes: o.Votes, Justification: just}
	}
	voters := d.Voters
	if voters == nil {
		voters = []string{}
	}
	return &room.Room{
		ID:          d.ID,
		CreatorID:   d.CreatorID,
		Title:       d.Title,
		Description: d.Description,
		Options:     opts,
		Deadline:    d.Deadline.UTC(),
		Voters:      voters,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

type RoomRepo struct {
	coll *mongo.Collection
}

func NewRoomRepo(db *mongo.Database) *RoomRepo {
	return &RoomRepo{coll: db.Collection("rooms")}
}

func (r *RoomRepo) Create(ctx context.Context, rm *room.Room) error {
	_, err := r.coll.InsertOne(ctx, toDoc(rm))
	return err
}

func (r *RoomRepo) GetByID(ctx context.Context, id string) (*room.Room, error) {
	var d roomDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, room.ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return d.toRoom(), nil
}

func (r *RoomRepo) ListByCreator(ctx context.Context, creatorID string) ([]room.Summary, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetProjection(bson.M{"title": 1, "createdAt": 1})
	cur, err := r.coll.Find(ctx, bson.M{"creator": creatorID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	res := []room.Summary{}
	for cur.Next(ctx) {
		var d roomDoc
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		res = append(res, room.Summary{ID: d.ID, Title: d.Title, CreatedAt: d.CreatedAt.UTC()})
	}
	return res, cur.Err()
}

// RecordVote applies the ballot as one conditional update on the room
// document. The filter carries every precondition, so concurrent ballots from
// the same voter cannot both match.
func (r *RoomRepo) RecordVote(ctx context.Context, b room.Ballot) error {
	filter, update := voteUpdate(b)
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 1 {
		return nil
	}
	return r.classifyMiss(ctx, b)
}

func voteUpdate(b room.Ballot) (bson.M, bson.M) {
	optKey := fmt.Sprintf("options.%d", b.OptionIndex)
	filter := bson.M{
		"_id":      b.RoomID,
		"deadline": bson.M{"$gte": b.CastAt},
		"voters":   bson.M{"$ne": b.VoterID},
		optKey:     bson.M{"$exists": true},
	}
	push := bson.M{"voters": b.VoterID}
	if b.Justification != "" {
		push[optKey+".justification"] = b.Justification
	}
	update := bson.M{
		"$inc":  bson.M{optKey + ".votes": 1},
		"$push": push,
		"$set":  bson.M{"updatedAt": b.CastAt},
	}
	return filter, update
}

// classifyMiss re-reads the room to report which precondition failed.
func (r *RoomRepo) classifyMiss(ctx context.Context, b room.Ballot) error {
	rm, err := r.GetByID(ctx, b.RoomID)
	if err != nil {
		return err
	}
	return missReason(rm, b)
}

// missReason reports the first failed precondition in the same order the
// service checks them.
func missReason(rm *room.Room, b room.Ballot) error {
	switch {
	case !rm.Open(b.CastAt):
		return room.ErrVotingClosed
	case rm.HasVoted(b.VoterID):
		return room.ErrAlreadyVoted
	case b.OptionIndex < 0 || b.OptionIndex >= len(rm.Options):
		return room.ErrInvalidArgument
	default:
		return fmt.Errorf("vote on room %s was not applied", b.RoomID)
	}
}

// EnsureIndexes creates the indexes the repositories rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("rooms").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "creator", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("rooms index: %w", err)
	}
	_, err = db.Collection("users").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("users index: %w", err)
	}
	return nil
}
