package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	integrations "github.com/goliatone/go-integrations"
	"github.com/goliatone/go-integrations/adapters/gologger"
	promadapter "github.com/goliatone/go-integrations/adapters/prometheus"
	"github.com/goliatone/go-integrations/core"
	integrationmigrations "github.com/goliatone/go-integrations/migrations"
	"github.com/goliatone/go-integrations/notify"
	"github.com/goliatone/go-integrations/store/blob"
	sqlstore "github.com/goliatone/go-integrations/store/sql"
)

const masterSecretEnv = "INTEGRATIONS_MASTER_SECRET"

type globalOptions struct {
	configPath string
	dbDriver   string
	dbDSN      string
	blobDir    string
	s3Bucket   string
	s3Region   string
	natsURL    string
	logLevel   string
	logFormat  string
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:           "integrations",
		Short:         "Run and test compliance evidence integrations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to a JSON config file")
	flags.StringVar(&opts.dbDriver, "db-driver", "", "Database driver (sqlite3 or postgres)")
	flags.StringVar(&opts.dbDSN, "db-dsn", "", "Database DSN")
	flags.StringVar(&opts.blobDir, "blob-dir", "./evidence", "Directory for evidence blobs")
	flags.StringVar(&opts.s3Bucket, "s3-bucket", "", "Store evidence blobs in this S3 bucket instead of --blob-dir")
	flags.StringVar(&opts.s3Region, "s3-region", "", "AWS region for --s3-bucket")
	flags.StringVar(&opts.natsURL, "nats-url", "", "Publish sync failure notices to this NATS server")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "text", "Log format (text or json)")

	cmd.AddCommand(
		newMigrateCommand(opts),
		newSyncCommand(opts),
		newTestEndpointCommand(opts),
		newTestSyncCommand(opts),
		newValidateCodeCommand(),
		newVaultCommand(opts),
	)
	return cmd
}

func (o *globalOptions) logger(w io.Writer) core.Logger {
	return gologger.NewTextLogger(w, o.logLevel, o.logFormat)
}

// loadConfig layers defaults, the config file, then flags and environment.
func (o *globalOptions) loadConfig(ctx context.Context) (core.Config, error) {
	raw := map[string]any{}
	if path := strings.TrimSpace(o.configPath); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return core.Config{}, core.ConfigurationError("read config file: "+err.Error(), map[string]any{"path": path})
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return core.Config{}, core.ConfigurationError("parse config file: "+err.Error(), map[string]any{"path": path})
		}
	}
	runtime := core.Config{}
	runtime.Vault.MasterSecret = os.Getenv(masterSecretEnv)
	runtime.Database.Driver = strings.TrimSpace(o.dbDriver)
	runtime.Database.DSN = strings.TrimSpace(o.dbDSN)
	return integrations.LoadConfig(ctx, raw, runtime)
}

func (o *globalOptions) openDatabase(ctx context.Context, cfg core.Config) (*persistence.Client, error) {
	client, err := sqlstore.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	dialect, err := integrationmigrations.ForDriver(cfg.Database.Driver)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	_, err = integrationmigrations.Register(ctx, func(_ context.Context, _ string, _ string, fsys fs.FS) error {
		client.RegisterSQLMigrations(fsys)
		return nil
	}, integrationmigrations.WithDialects(dialect))
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func (o *globalOptions) blobStore(ctx context.Context) (core.BlobStore, error) {
	if bucket := strings.TrimSpace(o.s3Bucket); bucket != "" {
		return blob.NewS3StoreFromEnv(ctx, o.s3Region, bucket, "")
	}
	return blob.NewFSStore(afero.NewOsFs(), o.blobDir), nil
}

// runtime opens the database and assembles the subsystem. The returned
// closer releases the database and NATS connections.
func (o *globalOptions) runtime(ctx context.Context, stderr io.Writer) (*integrations.Runtime, func(), error) {
	cfg, err := o.loadConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	logger := o.logger(stderr)

	client, err := o.openDatabase(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	closers := []func(){func() { _ = client.Close() }}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	blobs, err := o.blobStore(ctx)
	if err != nil {
		closeAll()
		return nil, nil, err
	}

	deps := integrations.Dependencies{
		Integrations:  factory.IntegrationStore(),
		CustomConfigs: factory.CustomConfigStore(),
		Jobs:          factory.SyncJobStore(),
		Evidence:      factory.EvidenceStore(),
		Blobs:         blobs,
		Audit:         factory.AuditStore(),
		Logger:        logger,
		Metrics:       promadapter.NewRecorder(prometheus.DefaultRegisterer),
	}
	if url := strings.TrimSpace(o.natsURL); url != "" {
		conn, err := notify.Connect(url, logger)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, conn.Close)
		notifier, err := notify.NewNATSNotifier(conn, notify.WithSubject(cfg.Notify.Subject), notify.WithLogger(logger))
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		deps.Notifier = notifier
	}

	runtime, err := integrations.New(cfg, deps)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	return runtime, closeAll, nil
}

func printJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(value); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
