// ABOUTME: Builds the sync engine from configuration
// ABOUTME: Wires credentials, API client, stores, watermarks, and the run log
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/harperreed/hublake/config"
	"github.com/harperreed/hublake/hubspot"
	"github.com/harperreed/hublake/ingest"
	"github.com/harperreed/hublake/secrets"
	"github.com/harperreed/hublake/store"
	"github.com/harperreed/hublake/watermark"
)

// App is the assembled engine plus everything that needs closing.
type App struct {
	Config *config.Config
	Log    *slog.Logger
	Runner *ingest.Runner
	RunLog *ingest.RunLog

	closers []func() error
}

// NewApp wires the engine from cfg. AWS-backed pieces (S3 data, DynamoDB
// watermarks, Secrets Manager credentials) are only dialed when configured;
// the default is a fully local setup under the XDG data and state dirs.
func NewApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	app := &App{Config: cfg, Log: log}

	var awsCfg aws.Config
	if cfg.SecretName != "" || cfg.S3Bucket != "" || cfg.WatermarkTable != "" {
		c, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		awsCfg = c
	}

	// Credentials: Secrets Manager when a secret is named, otherwise the
	// HUBSPOT_TOKEN environment variable.
	var provider secrets.Provider = secrets.EnvProvider{}
	secretName := "HUBSPOT_TOKEN"
	if cfg.SecretName != "" {
		provider = secrets.AWSProvider{Client: secretsmanager.NewFromConfig(awsCfg)}
		secretName = cfg.SecretName
	}
	tokens := secrets.NewTokenSource(provider, secretName, cfg.TokenTTL)

	client := hubspot.New(hubspot.Options{
		BaseURL:        cfg.BaseURL,
		TokenSource:    tokens,
		RequestsPerSec: cfg.RequestsPerSec,
		PageSize:       cfg.PageSize,
		ResultCap:      cfg.ResultCap,
		Retry: hubspot.RetryPolicy{
			MaxRetries: cfg.MaxRetries,
			BaseDelay:  cfg.RetryBaseDelay,
			MaxDelay:   cfg.RetryMaxDelay,
		},
		Logger: log,
	})

	var partitions store.PartitionStore
	if cfg.S3Bucket != "" {
		partitions = store.NewS3Store(s3.NewFromConfig(awsCfg), cfg.S3Bucket, cfg.S3Prefix, log)
	} else {
		partitions = store.NewFSStore(cfg.DataDir, log)
	}

	var marks watermark.Store
	if cfg.WatermarkTable != "" {
		marks = watermark.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), cfg.WatermarkTable)
	} else {
		badgerStore, err := watermark.OpenBadger(filepath.Join(cfg.StateDir, "watermarks"))
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, badgerStore.Close)
		marks = badgerStore
	}

	if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to create state dir: %w", err)
	}
	runlog, err := ingest.OpenRunLog(filepath.Join(cfg.StateDir, "runs.db"))
	if err != nil {
		app.Close()
		return nil, err
	}
	app.closers = append(app.closers, runlog.Close)
	app.RunLog = runlog

	manager := watermark.NewManager(marks, cfg.StartTime(), cfg.OverlapBuffer, cfg.Incremental, log)
	app.Runner = ingest.NewRunner(client, manager, ingest.NewWriter(partitions, log), runlog, log)
	return app, nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Log.Warn("close failed", "error", err)
		}
	}
}
