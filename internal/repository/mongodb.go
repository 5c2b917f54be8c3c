package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/akwn2/dnd-ai-tutorial/internal/model"
)

type messageDocument struct {
	ID        string    `bson:"_id"`
	SessionID string    `bson:"session_id"`
	Sequence  int64     `bson:"sequence"`
	Role      string    `bson:"role"`
	Parts     string    `bson:"parts"`
	Timestamp time.Time `bson:"timestamp"`
}

type counterDocument struct {
	ID  string `bson:"_id"`
	Seq int64  `bson:"seq"`
}

// MongoStore implements TranscriptStore using MongoDB.
// Parts are kept as their JSON encoding so tool arguments round-trip unchanged.
type MongoStore struct {
	client   *mongo.Client
	messages *mongo.Collection
	counters *mongo.Collection
}

// NewMongoStore creates a MongoStore and ensures its indexes.
// collectionName defaults to "messages" if empty.
func NewMongoStore(ctx context.Context, client *mongo.Client, db *mongo.Database, collectionName string) (*MongoStore, error) {
	if collectionName == "" {
		collectionName = "messages"
	}
	s := &MongoStore{
		client:   client,
		messages: db.Collection(collectionName),
		counters: db.Collection(collectionName + "_counters"),
	}

	_, err := s.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "session_id", Value: 1}, {Key: "sequence", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: create index: %w", err)
	}

	return s, nil
}

func (s *MongoStore) nextSequence(ctx context.Context, sessionID string) (int64, error) {
	filter := bson.M{"_id": sessionID}
	update := bson.M{"$inc": bson.M{"seq": int64(1)}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var counter counterDocument
	if err := s.counters.FindOneAndUpdate(ctx, filter, update, opts).Decode(&counter); err != nil {
		return 0, err
	}
	return counter.Seq, nil
}

func (s *MongoStore) Append(ctx context.Context, sessionID string, msg model.Message) (model.Message, error) {
	msg, parts, err := prepare(sessionID, msg)
	if err != nil {
		return model.Message{}, fmt.Errorf("repository: append to session %q: %w", sessionID, err)
	}

	seq, err := s.nextSequence(ctx, sessionID)
	if err != nil {
		return model.Message{}, fmt.Errorf("repository: next sequence for session %q: %w", sessionID, err)
	}
	msg.Sequence = seq

	doc := messageDocument{
		ID:        msg.ID,
		SessionID: sessionID,
		Sequence:  msg.Sequence,
		Role:      msg.Role,
		Parts:     string(parts),
		Timestamp: msg.Timestamp,
	}
	if _, err := s.messages.InsertOne(ctx, doc); err != nil {
		return model.Message{}, fmt.Errorf("repository: insert into session %q: %w", sessionID, err)
	}

	return msg, nil
}

func (s *MongoStore) Load(ctx context.Context, sessionID string) ([]model.Message, error) {
	filter := bson.M{"session_id": sessionID}
	opts := options.Find().SetSort(bson.D{{Key: "sequence", Value: 1}})

	cursor, err := s.messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("repository: find session %q: %w", sessionID, err)
	}
	defer cursor.Close(ctx)

	messages := []model.Message{}
	for cursor.Next(ctx) {
		var doc messageDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("repository: decode session %q: %w", sessionID, err)
		}
		msg := model.Message{
			ID:        doc.ID,
			SessionID: doc.SessionID,
			Sequence:  doc.Sequence,
			Role:      doc.Role,
			Timestamp: doc.Timestamp,
		}
		if err := decodeParts(&msg, doc.Parts); err != nil {
			return nil, fmt.Errorf("repository: load session %q: %w", sessionID, err)
		}
		messages = append(messages, msg)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("repository: iterate session %q: %w", sessionID, err)
	}

	return messages, nil
}

// Close disconnects the underlying client.
func (s *MongoStore) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
