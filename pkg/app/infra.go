package app

import (
	"context"

	"github.com/cenkalti/backoff"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	"ecommerce/pkg/domain/model"
	"ecommerce/pkg/infrastructure/cache"
	"ecommerce/pkg/infrastructure/mongo"
	"ecommerce/pkg/infrastructure/mysql"
)

const connectRetries = 5

// retry dials a dependency with exponential backoff, for containers that start together.
func retry(name string, op func() error) error {
	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := op()
		if err != nil {
			log.WithError(err).WithFields(log.Fields{"dependency": name, "attempt": attempt}).Warn("dependency not ready")
		}
		return err
	}, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), connectRetries))
}

func connectMongo(ctx context.Context, cfg *Config) (*mongodriver.Client, *mongodriver.Database, error) {
	var (
		client *mongodriver.Client
		db     *mongodriver.Database
	)
	err := retry("mongo", func() (err error) {
		client, db, err = mongo.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		return err
	})
	return client, db, err
}

func connectMySQL(cfg *Config) (*sqlx.DB, error) {
	var db *sqlx.DB
	err := retry("mysql", func() (err error) {
		db, err = mysql.Open(cfg.MySQLDSN)
		return err
	})
	return db, err
}

func connectAMQP(cfg *Config) (*amqp.Connection, *amqp.Channel, error) {
	var conn *amqp.Connection
	err := retry("amqp", func() (err error) {
		conn, err = amqp.Dial(cfg.AMQPURL)
		return err
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "dial amqp")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, errors.Wrap(err, "open amqp channel")
	}
	return conn, ch, nil
}

// newBrandCache falls back to a no-op cache when redis is not configured or unreachable.
func newBrandCache(ctx context.Context, cfg *Config) (model.Cache, func()) {
	if cfg.RedisAddr == "" {
		return cache.NewNopCache(), func() {}
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	if err := client.Ping(ctx).Err(); err != nil {
		log.WithError(err).Warn("redis unreachable, brand cache disabled")
		_ = client.Close()
		return cache.NewNopCache(), func() {}
	}
	return cache.NewRedisCache(client, cfg.ApplicationName, cfg.BrandsCacheTTL), func() { _ = client.Close() }
}
