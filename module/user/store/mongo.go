package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vinodkrishna221/nexuschat/tools/errs"

	"github.com/vinodkrishna221/nexuschat/module/user/model"
)

const collUsers = "users"

type MongoUserStore struct {
	coll *mongo.Collection
}

func NewMongoUserStore(db *mongo.Database) *MongoUserStore {
	return &MongoUserStore{coll: db.Collection(collUsers)}
}

func (s *MongoUserStore) Presence(ctx context.Context, userID string) (PresenceFields, error) {
	var u model.User
	err := s.coll.FindOne(ctx, bson.M{"_id": userID},
		options.FindOne().SetProjection(bson.M{"online": 1, "last_seen": 1})).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return PresenceFields{}, nil
	}
	if err != nil {
		return PresenceFields{}, errs.WrapMsg(err, "load user presence", "userID", userID)
	}
	return PresenceFields{Online: u.Online, LastSeen: u.LastSeen}, nil
}

func (s *MongoUserStore) setPresence(ctx context.Context, userID string, online bool, at time.Time) error {
	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": userID},
		bson.M{"$set": bson.M{"online": online, "last_seen": at}},
		options.Update().SetUpsert(true))
	return errs.WrapMsg(err, "update user presence", "userID", userID)
}

func (s *MongoUserStore) SetOnline(ctx context.Context, userID string, at time.Time) error {
	return s.setPresence(ctx, userID, true, at)
}

func (s *MongoUserStore) SetOffline(ctx context.Context, userID string, at time.Time) error {
	return s.setPresence(ctx, userID, false, at)
}
