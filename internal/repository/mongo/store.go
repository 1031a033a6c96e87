package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Rrens/voice-companion/internal/config"
	"github.com/Rrens/voice-companion/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	threadsCollection  = "threads"
	messagesCollection = "messages"
)

type threadDoc struct {
	ID           string    `bson:"_id"`
	UserID       string    `bson:"user_id"`
	Name         string    `bson:"name"`
	Named        bool      `bson:"topic_named"`
	MessageCount int       `bson:"message_count"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func (d threadDoc) toDomain() domain.Thread {
	return domain.Thread{
		ID:           d.ID,
		UserID:       d.UserID,
		Name:         d.Name,
		Named:        d.Named,
		MessageCount: d.MessageCount,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

type messageDoc struct {
	ID        string    `bson:"_id"`
	ThreadID  string    `bson:"thread_id"`
	Role      string    `bson:"role"`
	Content   string    `bson:"message"`
	Position  int       `bson:"position"`
	CreatedAt time.Time `bson:"created_at"`
}

func (d messageDoc) toDomain() domain.Message {
	return domain.Message{
		ID:        d.ID,
		ThreadID:  d.ThreadID,
		Role:      domain.MessageRole(d.Role),
		Content:   d.Content,
		Position:  d.Position,
		CreatedAt: d.CreatedAt,
	}
}

// Store implements domain.Store on MongoDB. Positions come from an atomic
// $inc on the thread document. A failed message insert takes the increment
// back unless another writer has already moved the counter on, in which case
// the position is left as a gap rather than handed out twice.
type Store struct {
	client   *mongo.Client
	threads  *mongo.Collection
	messages *mongo.Collection
}

// Open connects to MongoDB and ensures indexes.
func Open(ctx context.Context, cfg config.MongoConfig) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	s := newStore(client, client.Database(cfg.Database))
	if err := s.ensureIndexes(ctx); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func newStore(client *mongo.Client, db *mongo.Database) *Store {
	return &Store{
		client:   client,
		threads:  db.Collection(threadsCollection),
		messages: db.Collection(messagesCollection),
	}
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.threads.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create threads index: %w", err)
	}
	_, err = s.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "thread_id", Value: 1}, {Key: "position", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create messages index: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.client.Disconnect(ctx)
}

func (s *Store) CreateThread(ctx context.Context, thread *domain.Thread) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := threadDoc{
		ID:        thread.ID,
		UserID:    thread.UserID,
		Name:      thread.Name,
		Named:     thread.Named,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.threads.InsertOne(ctx, doc); err != nil {
		return domain.NewStorageError("create thread", err)
	}
	thread.MessageCount = 0
	thread.CreatedAt = now
	thread.UpdatedAt = now
	return nil
}

func (s *Store) GetThread(ctx context.Context, id string) (*domain.Thread, error) {
	var doc threadDoc
	err := s.threads.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.NewStorageError("get thread", domain.ErrThreadNotFound)
	}
	if err != nil {
		return nil, domain.NewStorageError("get thread", err)
	}
	t := doc.toDomain()
	return &t, nil
}

func (s *Store) RenameThread(ctx context.Context, id string, name string) error {
	res, err := s.threads.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"name": name, "topic_named": true, "updated_at": time.Now().UTC()},
	})
	if err != nil {
		return domain.NewStorageError("rename thread", err)
	}
	if res.MatchedCount == 0 {
		return domain.NewStorageError("rename thread", domain.ErrThreadNotFound)
	}
	return nil
}

func (s *Store) ListThreads(ctx context.Context, userID string) ([]domain.Thread, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.threads.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, domain.NewStorageError("list threads", err)
	}
	defer cur.Close(ctx)

	threads := []domain.Thread{}
	for cur.Next(ctx) {
		var doc threadDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, domain.NewStorageError("decode thread", err)
		}
		threads = append(threads, doc.toDomain())
	}
	if err := cur.Err(); err != nil {
		return nil, domain.NewStorageError("list threads", err)
	}
	return threads, nil
}

func (s *Store) InsertMessage(ctx context.Context, threadID string, role domain.MessageRole, content string) (*domain.Message, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)

	var thread threadDoc
	err := s.threads.FindOneAndUpdate(ctx,
		bson.M{"_id": threadID},
		bson.M{
			"$inc": bson.M{"message_count": 1},
			"$set": bson.M{"updated_at": now},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&thread)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.NewStorageError("insert message", domain.ErrThreadNotFound)
	}
	if err != nil {
		return nil, domain.NewStorageError("insert message", err)
	}

	doc := messageDoc{
		ID:        uuid.NewString(),
		ThreadID:  threadID,
		Role:      string(role),
		Content:   content,
		Position:  thread.MessageCount,
		CreatedAt: now,
	}
	if _, err := s.messages.InsertOne(ctx, doc); err != nil {
		s.releasePosition(ctx, threadID, doc.Position)
		return nil, domain.NewStorageError("insert message", err)
	}
	msg := doc.toDomain()
	return &msg, nil
}

// releasePosition undoes the counter increment for a message that was never
// stored. It only applies while the counter still points at that position.
func (s *Store) releasePosition(ctx context.Context, threadID string, position int) {
	res, err := s.threads.UpdateOne(context.WithoutCancel(ctx),
		bson.M{"_id": threadID, "message_count": position},
		bson.M{"$inc": bson.M{"message_count": -1}},
	)
	if err != nil {
		log.Error().Err(err).Str("thread_id", threadID).Int("position", position).Msg("failed to release message position")
		return
	}
	if res.ModifiedCount == 0 {
		log.Warn().Str("thread_id", threadID).Int("position", position).Msg("message position left unused")
	}
}

func (s *Store) ListMessages(ctx context.Context, threadID string) ([]domain.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "position", Value: 1}})
	cur, err := s.messages.Find(ctx, bson.M{"thread_id": threadID}, opts)
	if err != nil {
		return nil, domain.NewStorageError("list messages", err)
	}
	defer cur.Close(ctx)

	messages := []domain.Message{}
	for cur.Next(ctx) {
		var doc messageDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, domain.NewStorageError("decode message", err)
		}
		messages = append(messages, doc.toDomain())
	}
	if err := cur.Err(); err != nil {
		return nil, domain.NewStorageError("list messages", err)
	}
	return messages, nil
}

func (s *Store) CountMessages(ctx context.Context, threadID string) (int, error) {
	n, err := s.messages.CountDocuments(ctx, bson.M{"thread_id": threadID})
	if err != nil {
		return 0, domain.NewStorageError("count messages", err)
	}
	return int(n), nil
}
