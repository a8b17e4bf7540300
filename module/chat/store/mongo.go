package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vinodkrishna221/nexuschat/tools/errs"
	"github.com/vinodkrishna221/nexuschat/tools/ids"

	"github.com/vinodkrishna221/nexuschat/module/chat/model"
)

const (
	collChats    = "chats"
	collMessages = "messages"
)

type MongoChatStore struct {
	coll *mongo.Collection
}

func NewMongoChatStore(db *mongo.Database) *MongoChatStore {
	return &MongoChatStore{coll: db.Collection(collChats)}
}

// EnsureIndexes creates the unique participant-pair index and the inbox
// ordering index. Call once at startup.
func (s *MongoChatStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "participants", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "last_activity", Value: -1}},
		},
	})
	return errs.Wrap(err)
}

func (s *MongoChatStore) Get(ctx context.Context, chatID string) (*model.Chat, error) {
	var c model.Chat
	err := s.coll.FindOne(ctx, bson.M{"_id": chatID}).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "find chat", "chatID", chatID)
	}
	return &c, nil
}

func (s *MongoChatStore) GetOrCreate(ctx context.Context, userA, userB string) (*model.Chat, bool, error) {
	pair := model.NormalizePair(userA, userB)
	now := time.Now()
	newID := ids.GenerateString()

	res := s.coll.FindOneAndUpdate(ctx,
		bson.M{"participants": pair},
		bson.M{"$setOnInsert": bson.M{
			"_id":           newID,
			"participants":  pair,
			"last_activity": now,
			"created_at":    now,
		}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	)
	var c model.Chat
	if err := res.Decode(&c); err != nil {
		return nil, false, errs.WrapMsg(err, "get or create chat")
	}
	return &c, c.ID == newID, nil
}

func (s *MongoChatStore) Touch(ctx context.Context, chatID, lastMessageID string, at time.Time) error {
	_, err := s.coll.UpdateByID(ctx, chatID, bson.M{"$set": bson.M{
		"last_message_id": lastMessageID,
		"last_activity":   at,
	}})
	return errs.WrapMsg(err, "touch chat", "chatID", chatID)
}

type MongoMessageStore struct {
	coll *mongo.Collection
}

func NewMongoMessageStore(db *mongo.Database) *MongoMessageStore {
	return &MongoMessageStore{coll: db.Collection(collMessages)}
}

func (s *MongoMessageStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "chat_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "chat_id", Value: 1}, {Key: "status", Value: 1}, {Key: "sender_id", Value: 1}}},
	})
	return errs.Wrap(err)
}

func (s *MongoMessageStore) Insert(ctx context.Context, m *model.Message) error {
	_, err := s.coll.InsertOne(ctx, m)
	return errs.WrapMsg(err, "insert message", "chatID", m.ChatID)
}

func (s *MongoMessageStore) MarkDelivered(ctx context.Context, messageID, actorID string, at time.Time) (*model.Message, error) {
	res := s.coll.FindOneAndUpdate(ctx,
		bson.M{
			"_id":       messageID,
			"sender_id": bson.M{"$ne": actorID},
			"status":    model.StatusSent,
		},
		bson.M{"$set": bson.M{
			"status":       model.StatusDelivered,
			"delivered_at": at,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var m model.Message
	if err := res.Decode(&m); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil // precondition not met: silent no-op
		}
		return nil, errs.WrapMsg(err, "mark delivered", "messageID", messageID)
	}
	return &m, nil
}

func (s *MongoMessageStore) MarkRead(ctx context.Context, messageID, actorID string, at time.Time) (*model.Message, error) {
	// Pipeline update so deliveredAt backfill happens in the same atomic write
	// as the status change.
	res := s.coll.FindOneAndUpdate(ctx,
		bson.M{
			"_id":       messageID,
			"sender_id": bson.M{"$ne": actorID},
			"status":    bson.M{"$ne": model.StatusRead},
		},
		mongo.Pipeline{
			{{Key: "$set", Value: bson.M{
				"status":       model.StatusRead,
				"read_at":      at,
				"delivered_at": bson.M{"$ifNull": bson.A{"$delivered_at", at}},
			}}},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var m model.Message
	if err := res.Decode(&m); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, errs.WrapMsg(err, "mark read", "messageID", messageID)
	}
	return &m, nil
}

func undeliveredFilter(chatID, recipientID string) bson.M {
	return bson.M{
		"chat_id":   chatID,
		"sender_id": bson.M{"$ne": recipientID},
		"status":    model.StatusSent,
	}
}

func (s *MongoMessageStore) ListUndelivered(ctx context.Context, chatID, recipientID string) ([]*model.Message, error) {
	cur, err := s.coll.Find(ctx, undeliveredFilter(chatID, recipientID))
	if err != nil {
		return nil, errs.WrapMsg(err, "list undelivered", "chatID", chatID)
	}
	var out []*model.Message
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.WrapMsg(err, "decode undelivered", "chatID", chatID)
	}
	return out, nil
}

func (s *MongoMessageStore) MarkChatDelivered(ctx context.Context, chatID, recipientID string, at time.Time) (int64, error) {
	res, err := s.coll.UpdateMany(ctx,
		undeliveredFilter(chatID, recipientID),
		bson.M{"$set": bson.M{
			"status":       model.StatusDelivered,
			"delivered_at": at,
		}},
	)
	if err != nil {
		return 0, errs.WrapMsg(err, "mark chat delivered", "chatID", chatID)
	}
	return res.ModifiedCount, nil
}
