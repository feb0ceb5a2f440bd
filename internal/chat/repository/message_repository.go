package repository

import (
	"context"
	"errors"
	"fmt"

	"apartment_chat_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageRepository definition chat message log
type MessageRepository interface {
	// AppendMessage assign Seq and CreatedAt, persist the message, refresh the room's
	// last-message cache and bump the recipient side's unread counter.
	AppendMessage(ctx context.Context, msg *domain.ChatMessage) error
	// MarkRead flip role's read flag on every unread message of the room, returns the count flipped.
	// The role's cached unread counter is brought in line in the same step, ordered with
	// AppendMessage so a concurrent append is never lost from the counter.
	MarkRead(ctx context.Context, roomID string, role domain.Role) (int64, error)
	CountUnread(ctx context.Context, roomID string, role domain.Role) (int64, error)
	// ListMessages newest first; beforeSeq > 0 keeps only older messages
	ListMessages(ctx context.Context, roomID string, beforeSeq int64, offset, limit int) ([]domain.ChatMessage, error)
	CountMessages(ctx context.Context, roomID string, beforeSeq int64) (int64, error)
}

type chatMessageRepository struct {
	coll      *mongo.Collection
	roomsColl *mongo.Collection
}

// NewMongoChatMessageRepository create a ChatMessageRepository
func NewMongoChatMessageRepository(db *mongo.Database) MessageRepository {
	return &chatMessageRepository{
		coll:      db.Collection(string(domain.Messages)),
		roomsColl: db.Collection(string(domain.Rooms)),
	}
}

// EnsureMessageIndexes unique seq per room plus the unread lookups
func EnsureMessageIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(string(domain.Messages)).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "room_id", Value: 1}, {Key: "seq", Value: -1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "room_id", Value: 1}, {Key: "is_read_by_admin", Value: 1}}},
		{Keys: bson.D{{Key: "room_id", Value: 1}, {Key: "is_read_by_resident", Value: 1}}},
	})
	return err
}

func readField(role domain.Role) string {
	if role == domain.RoleAdmin {
		return "is_read_by_admin"
	}
	return "is_read_by_resident"
}

func unreadField(role domain.Role) string {
	if role == domain.RoleAdmin {
		return "unread_count_for_admin"
	}
	return "unread_count_for_resident"
}

// AppendMessage the room document is the serialisation point: one pipeline update
// takes the next seq and a strictly increasing server timestamp for the room.
func (r *chatMessageRepository) AppendMessage(ctx context.Context, msg *domain.ChatMessage) error {
	recipient := unreadField(msg.SenderRole.Opposite())
	next := bson.D{{Key: "$add", Value: bson.A{bson.D{{Key: "$ifNull", Value: bson.A{"$message_seq", 0}}}, 1}}}
	// max(now, previous + 1ms)
	stamp := bson.D{{Key: "$max", Value: bson.A{
		"$$NOW",
		bson.D{{Key: "$add", Value: bson.A{bson.D{{Key: "$ifNull", Value: bson.A{"$last_message_at", "$$NOW"}}}, 1}}},
	}}}

	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "message_seq", Value: next},
			{Key: "last_message_at", Value: stamp},
			{Key: "last_message_content", Value: bson.D{{Key: "$literal", Value: msg.Content}}},
			{Key: recipient, Value: bson.D{{Key: "$add", Value: bson.A{bson.D{{Key: "$ifNull", Value: bson.A{"$" + recipient, 0}}}, 1}}}},
		}}},
		{{Key: "$set", Value: bson.D{{Key: "updated_at", Value: "$last_message_at"}}}},
	}

	var room domain.ChatRoom
	err := r.roomsColl.FindOneAndUpdate(ctx, bson.M{"_id": msg.RoomID}, pipeline,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&room)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("reserve seq: %w", err)
	}

	msg.Seq = room.MessageSeq
	if room.LastMessageAt != nil {
		msg.CreatedAt = *room.LastMessageAt
	}
	if _, err := r.coll.InsertOne(ctx, msg); err != nil {
		// the caller's ctx may be the reason the insert failed
		if rerr := r.rollbackRoomCache(context.WithoutCancel(ctx), msg); rerr != nil {
			return fmt.Errorf("insert message: %w (room cache not restored: %v)", err, rerr)
		}
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// rollbackRoomCache undo what the reserve step did for a message that was never
// stored. The seq stays taken; seq only has to grow. The last-message fields are
// only restored while no later append has replaced them.
func (r *chatMessageRepository) rollbackRoomCache(ctx context.Context, msg *domain.ChatMessage) error {
	recipient := unreadField(msg.SenderRole.Opposite())
	if _, err := r.roomsColl.UpdateOne(ctx, bson.M{"_id": msg.RoomID}, shiftCounter(recipient, -1)); err != nil {
		return err
	}

	restore := bson.M{"last_message_at": nil, "last_message_content": ""}
	var prev domain.ChatMessage
	err := r.coll.FindOne(ctx, bson.M{"room_id": msg.RoomID}, options.FindOne().SetSort(bson.D{{Key: "seq", Value: -1}})).Decode(&prev)
	switch {
	case err == nil:
		restore = bson.M{"last_message_at": prev.CreatedAt, "last_message_content": prev.Content}
	case !errors.Is(err, mongo.ErrNoDocuments):
		return err
	}
	_, err = r.roomsColl.UpdateOne(ctx, bson.M{"_id": msg.RoomID, "message_seq": msg.Seq}, bson.M{"$set": restore})
	return err
}

// shiftCounter add delta to an unread counter, never below zero
func shiftCounter(counter string, delta int64) mongo.Pipeline {
	current := bson.D{{Key: "$ifNull", Value: bson.A{"$" + counter, 0}}}
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: counter, Value: bson.D{{Key: "$max", Value: bson.A{0, bson.D{{Key: "$add", Value: bson.A{current, delta}}}}}}},
		}}},
	}
}

// MarkRead flags are monotonic, so a repeated call flips nothing and returns 0.
// A standalone deployment has no multi-document lock; the counter is moved by
// the flipped count instead of overwritten, which commutes with AppendMessage's +1.
func (r *chatMessageRepository) MarkRead(ctx context.Context, roomID string, role domain.Role) (int64, error) {
	field := readField(role)
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"room_id": roomID, field: false},
		bson.M{"$set": bson.M{field: true}},
	)
	if err != nil {
		return 0, err
	}
	if res.ModifiedCount == 0 {
		return 0, nil
	}
	if _, err := r.roomsColl.UpdateOne(ctx, bson.M{"_id": roomID}, shiftCounter(unreadField(role), -res.ModifiedCount)); err != nil {
		return res.ModifiedCount, fmt.Errorf("update unread counter: %w", err)
	}
	return res.ModifiedCount, nil
}

func (r *chatMessageRepository) CountUnread(ctx context.Context, roomID string, role domain.Role) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{"room_id": roomID, readField(role): false})
}

func (r *chatMessageRepository) ListMessages(ctx context.Context, roomID string, beforeSeq int64, offset, limit int) ([]domain.ChatMessage, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "seq", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cur, err := r.coll.Find(ctx, seqFilter(roomID, beforeSeq), opts)
	if err != nil {
		return nil, err
	}
	msgs := []domain.ChatMessage{}
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, fmt.Errorf("cursor All error: %w", err)
	}
	return msgs, nil
}

func (r *chatMessageRepository) CountMessages(ctx context.Context, roomID string, beforeSeq int64) (int64, error) {
	return r.coll.CountDocuments(ctx, seqFilter(roomID, beforeSeq))
}

func seqFilter(roomID string, beforeSeq int64) bson.M {
	filter := bson.M{"room_id": roomID}
	if beforeSeq > 0 {
		filter["seq"] = bson.M{"$lt": beforeSeq}
	}
	return filter
}
