package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vinodkrishna221/nexuschat/tools/errs"

	"github.com/vinodkrishna221/nexuschat/module/contact/model"
)

const collContacts = "contacts"

type MongoGraph struct {
	coll *mongo.Collection
}

func NewMongoGraph(db *mongo.Database) *MongoGraph {
	return &MongoGraph{coll: db.Collection(collContacts)}
}

func (g *MongoGraph) EnsureIndexes(ctx context.Context) error {
	_, err := g.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "peer_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "peer_id", Value: 1}, {Key: "status", Value: 1}}},
	})
	return errs.Wrap(err)
}

func (g *MongoGraph) edges(ctx context.Context, userID string, status model.ContactStatus) ([]*model.Contact, error) {
	cur, err := g.coll.Find(ctx, bson.M{
		"status": status,
		"$or": bson.A{
			bson.M{"owner_id": userID},
			bson.M{"peer_id": userID},
		},
	})
	if err != nil {
		return nil, errs.WrapMsg(err, "find contact edges", "userID", userID)
	}
	var out []*model.Contact
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.WrapMsg(err, "decode contact edges", "userID", userID)
	}
	return out, nil
}

func (g *MongoGraph) PeersOf(ctx context.Context, userID string) ([]string, error) {
	accepted, err := g.edges(ctx, userID, model.StatusAccepted)
	if err != nil {
		return nil, err
	}
	blocked, err := g.edges(ctx, userID, model.StatusBlocked)
	if err != nil {
		return nil, err
	}
	return resolvePeers(userID, accepted, blocked), nil
}

func (g *MongoGraph) Blocked(ctx context.Context, userID, otherID string) (bool, error) {
	n, err := g.coll.CountDocuments(ctx, bson.M{
		"status": model.StatusBlocked,
		"$or": bson.A{
			bson.M{"owner_id": userID, "peer_id": otherID},
			bson.M{"owner_id": otherID, "peer_id": userID},
		},
	})
	if err != nil {
		return false, errs.WrapMsg(err, "count block edges")
	}
	return n > 0, nil
}
