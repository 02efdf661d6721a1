package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/roach88/scholar/internal/bus"
	"github.com/roach88/scholar/internal/config"
	"github.com/roach88/scholar/internal/metrics"
	"github.com/roach88/scholar/internal/profile"
	"github.com/roach88/scholar/internal/relay"
	"github.com/roach88/scholar/internal/store"
)

// storeFlags are the event-log flags shared by every command that opens
// the log.
type storeFlags struct {
	Database string
	Driver   string
	DSN      string
}

func (f *storeFlags) register(flags *pflag.FlagSet) {
	flags.StringVar(&f.Database, "db", "", "path to SQLite database (default from config: scholar.db)")
	flags.StringVar(&f.Driver, "driver", "", "event store driver (sqlite|postgres|memory)")
	flags.StringVar(&f.DSN, "dsn", "", "Postgres connection string")
}

// resolveConfig layers command-line flags over the config file and
// environment. Only flags the user set override.
func resolveConfig(opts *RootOptions, cmd *cobra.Command, sf *storeFlags) (config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if sf != nil {
		if flags.Changed("db") {
			cfg.Store.Path = sf.Database
		}
		if flags.Changed("driver") {
			cfg.Store.Driver = sf.Driver
		}
		if flags.Changed("dsn") {
			cfg.Store.DSN = sf.DSN
		}
	}
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// openLog opens the event log selected by cfg.
func openLog(ctx context.Context, cfg config.StoreConfig) (store.Log, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return store.Open(cfg.Path)
	case config.DriverPostgres:
		return store.OpenPostgres(ctx, cfg.DSN)
	case config.DriverMemory:
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// newLoader returns a loader for source. The S3 client is only built for
// s3:// sources so local runs never touch AWS configuration.
func newLoader(ctx context.Context, cfg config.S3Config, source string) (profile.Loader, error) {
	loader := profile.AutoLoader{File: profile.FileLoader{}}
	if strings.HasPrefix(source, "s3://") {
		s3, err := profile.NewS3Loader(ctx, profile.S3Config{
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			PathStyle: cfg.PathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("configure s3: %w", err)
		}
		loader.S3 = s3
	}
	return loader, nil
}

// pipeline is the bus plus the subscribers config enables.
type pipeline struct {
	bus      *bus.Bus
	metrics  *metrics.Metrics
	registry *prometheus.Registry
	closers  []func() error
}

func newPipeline(ctx context.Context, cfg config.Config, logger *slog.Logger) (*pipeline, error) {
	p := &pipeline{bus: bus.New()}

	if cfg.Metrics.Enabled || cfg.Metrics.Out != "" {
		p.registry = prometheus.NewRegistry()
		m, err := metrics.New(p.registry)
		if err != nil {
			return nil, err
		}
		p.metrics = m
		p.bus.SubscribeAll(m.Handle)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		kafka, err := relay.NewKafkaForwarder(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.bus.SubscribeAll(kafka.Handle)
		p.closers = append(p.closers, func() error { kafka.Close(); return nil })
		logger.Info("kafka relay enabled", "topic", cfg.Kafka.Topic, "brokers", len(cfg.Kafka.Brokers))
	}

	if cfg.Redis.URL != "" {
		rs, err := relay.NewRedisStreamForwarder(ctx, cfg.Redis.URL, cfg.Redis.Stream, cfg.Redis.MaxLen)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.bus.SubscribeAll(rs.Handle)
		p.closers = append(p.closers, rs.Close)
		logger.Info("redis stream relay enabled", "stream", cfg.Redis.Stream)
	}

	return p, nil
}

// Close releases relay connections in reverse order.
func (p *pipeline) Close() error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	p.closers = nil
	return errors.Join(errs...)
}
