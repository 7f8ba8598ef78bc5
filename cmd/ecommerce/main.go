package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"ecommerce/pkg/app"
)

func main() {
	log.SetFormatter(&log.JSONFormatter{})

	cliApp := &cli.App{
		Name:  "ecommerce",
		Usage: "ecommerce backend",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "serve the REST api, the notification socket and grpc health",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "apply mysql migrations and create mongo indexes",
				Action: migrate,
			},
			{
				Name:   "worker",
				Usage:  "deliver queued emails",
				Action: worker,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.WithError(err).Fatal("command failed")
	}
}

func loadConfig() (*app.Config, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, err
	}
	app.ConfigureLogging(cfg)
	return cfg, nil
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	killSignalChan := getKillSignalChan()
	srv, err := app.Start(c.Context, cfg)
	if err != nil {
		return err
	}

	waitForKillSignalChan(killSignalChan)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
	return nil
}

func migrate(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return app.Migrate(c.Context, cfg)
}

func worker(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()
	killSignalChan := getKillSignalChan()
	go func() {
		waitForKillSignalChan(killSignalChan)
		cancel()
	}()
	return app.RunWorker(ctx, cfg)
}

func getKillSignalChan() chan os.Signal {
	osKillSignalChan := make(chan os.Signal, 1)
	signal.Notify(osKillSignalChan, os.Kill, os.Interrupt, syscall.SIGTERM)
	return osKillSignalChan
}

func waitForKillSignalChan(killSignalChan <-chan os.Signal) {
	killSignal := <-killSignalChan
	switch killSignal {
	case os.Interrupt:
		log.Info("Got SIGINT...")
	case syscall.SIGTERM:
		log.Info("Got SIGTERM...")
	}
}
