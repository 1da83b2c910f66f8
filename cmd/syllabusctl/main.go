package main

import (
	"fmt"
	"os"
	"time"

	"github.com/noah-isme/smd-syllabus-api/internal/cli"
	"github.com/noah-isme/smd-syllabus-api/internal/service"
	"github.com/noah-isme/smd-syllabus-api/pkg/apiclient"
	"github.com/noah-isme/smd-syllabus-api/pkg/config"
	"github.com/noah-isme/smd-syllabus-api/pkg/logger"
	"github.com/noah-isme/smd-syllabus-api/pkg/taskpoll"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logr := logger.NewCLI(cfg.Client.Verbose)
	defer logr.Sync() //nolint:errcheck

	app := &cli.App{
		API: apiclient.New(cfg.Client.BaseURL, cfg.Client.Token, apiclient.WithLogger(logr)),
		Tokens: service.NewAuthService(logr, service.AuthConfig{
			AccessTokenSecret: cfg.JWT.Secret,
			AccessTokenExpiry: time.Hour,
			Issuer:            cfg.JWT.Issuer,
		}),
		Poll: taskpoll.Config{
			Timeout:        cfg.Poller.Timeout,
			RequestTimeout: cfg.Poller.RequestTimeout,
			Logger:         logr,
		},
		Logger: logr,
	}

	return cli.NewRootCmd(app).Execute()
}
