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

// ErrRoomExists the resident already owns a room
var ErrRoomExists = errors.New("room already exists for resident")

// RoomRepository definition chat room
type RoomRepository interface {
	CreateRoom(ctx context.Context, room *domain.ChatRoom) error
	FindByID(ctx context.Context, roomID string) (*domain.ChatRoom, error)
	FindByResident(ctx context.Context, residentID string) (*domain.ChatRoom, error)
	// ListByApartment most recently active first
	ListByApartment(ctx context.Context, apartmentID string) ([]domain.ChatRoom, error)
}

type chatRepository struct {
	roomsColl *mongo.Collection
}

// NewMongoChatRepository create new mongo chat
func NewMongoChatRepository(db *mongo.Database) RoomRepository {
	return &chatRepository{
		roomsColl: db.Collection(string(domain.Rooms)),
	}
}

// EnsureRoomIndexes one room per resident, apartment listing by activity
func EnsureRoomIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(string(domain.Rooms)).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "resident_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "apartment_id", Value: 1}, {Key: "last_message_at", Value: -1}}},
	})
	return err
}

// CreateRoom create room
func (r *chatRepository) CreateRoom(ctx context.Context, room *domain.ChatRoom) error {
	_, err := r.roomsColl.InsertOne(ctx, room)
	if mongo.IsDuplicateKeyError(err) {
		return ErrRoomExists
	}
	return err
}

// FindByID find room by id
func (r *chatRepository) FindByID(ctx context.Context, roomID string) (*domain.ChatRoom, error) {
	return r.findOne(ctx, bson.M{"_id": roomID})
}

// FindByResident find the room owned by a resident
func (r *chatRepository) FindByResident(ctx context.Context, residentID string) (*domain.ChatRoom, error) {
	return r.findOne(ctx, bson.M{"resident_id": residentID})
}

func (r *chatRepository) findOne(ctx context.Context, filter bson.M) (*domain.ChatRoom, error) {
	var room domain.ChatRoom
	err := r.roomsColl.FindOne(ctx, filter).Decode(&room)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// ListByApartment rooms of an apartment, rooms without messages last
func (r *chatRepository) ListByApartment(ctx context.Context, apartmentID string) ([]domain.ChatRoom, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "last_message_at", Value: -1},
		{Key: "created_at", Value: -1},
	})
	cur, err := r.roomsColl.Find(ctx, bson.M{"apartment_id": apartmentID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find rooms: %w", err)
	}
	rooms := []domain.ChatRoom{}
	if err := cur.All(ctx, &rooms); err != nil {
		return nil, fmt.Errorf("cursor All error: %w", err)
	}
	return rooms, nil
}
