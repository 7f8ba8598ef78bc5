package mongo

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

func Connect(ctx context.Context, uri, database string) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, errors.Wrap(err, "connect to mongo")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, nil, errors.Wrap(err, "ping mongo")
	}
	log.WithField("database", database).Info("connected to mongo")
	return client, client.Database(database), nil
}

type indexSpec struct {
	collection string
	model      mongo.IndexModel
}

func indexes() []indexSpec {
	return []indexSpec{
		{"users", mongo.IndexModel{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)}},
		{"brands", mongo.IndexModel{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)}},
		{"categories", mongo.IndexModel{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)}},
		{"categories", mongo.IndexModel{Keys: bson.D{{Key: "parentId", Value: 1}}}},
		{"coupons", mongo.IndexModel{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)}},
		{"carts", mongo.IndexModel{Keys: bson.D{{Key: "createdBy", Value: 1}}, Options: options.Index().SetUnique(true)}},
		{"orders", mongo.IndexModel{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}}},
		{"orders", mongo.IndexModel{Keys: bson.D{{Key: "status", Value: 1}, {Key: "paymentMethod", Value: 1}}}},
		{"otps", mongo.IndexModel{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)}},
		{"otps", mongo.IndexModel{Keys: bson.D{{Key: "createdBy", Value: 1}, {Key: "type", Value: 1}}}},
	}
}

// EnsureIndexes creates the unique, lookup and TTL indexes. It is idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for _, idx := range indexes() {
		name, err := db.Collection(idx.collection).Indexes().CreateOne(ctx, idx.model)
		if err != nil {
			return errors.Wrapf(err, "create index on %s", idx.collection)
		}
		log.WithFields(log.Fields{"collection": idx.collection, "index": name}).Info("index ensured")
	}
	return nil
}
