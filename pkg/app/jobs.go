package app

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"ecommerce/pkg/infrastructure/mail"
	"ecommerce/pkg/infrastructure/mongo"
	"ecommerce/pkg/infrastructure/mysql"
)

// Migrate applies the ledger migrations and creates the document indexes.
func Migrate(ctx context.Context, cfg *Config) error {
	sqlDB, err := connectMySQL(cfg)
	if err != nil {
		return err
	}
	defer closeSQL(sqlDB)()
	if err := mysql.Migrate(sqlDB); err != nil {
		return err
	}

	client, db, err := connectMongo(ctx, cfg)
	if err != nil {
		return err
	}
	defer disconnectMongo(client)()
	if err := mongo.EnsureIndexes(ctx, db); err != nil {
		return err
	}
	log.Info("migrations finished")
	return nil
}

// RunWorker delivers queued emails until ctx is canceled.
func RunWorker(ctx context.Context, cfg *Config) error {
	conn, ch, err := connectAMQP(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()
	defer ch.Close()

	sender := mail.NewSMTPSender(mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		From:     cfg.SMTPFrom,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
	})
	err = mail.NewWorker(ch, cfg.EmailQueue, sender, cfg.MailRetries).Run(ctx)
	return errors.Wrap(err, "mail worker")
}
