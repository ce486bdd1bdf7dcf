// Command attrbus-shell edits a single model interactively.
//
// The shell binds a model to an optional schema, persists it through a
// JSON file or a PostgreSQL table, records every model event to a trace
// file, and serves coalesced change notifications for "watch".
//
// Usage:
//
//	attrbus-shell [flags]
//
// Flags:
//
//	-schema string            YAML schema file
//	-store string             Persistence backend: file, postgres, none (default "file")
//	-data string              Record file for the file store (default "records.json")
//	-dsn string               PostgreSQL connection string
//	-driver string            PostgreSQL driver: pgx, sqlx (default "pgx")
//	-table string             PostgreSQL table (default "records")
//	-url-root string          Base address when no schema sets one
//	-id string                Fetch an existing record with this id on start
//	-trace string             Event trace file (.alog)
//	-log-level string         Log level: debug, info, warn, error (default "warn")
//	-notify-interval duration Subscription processing interval (default 250ms)
//
// Examples:
//
//	# Edit todos stored in a local file
//	attrbus-shell -schema todo.yaml -data todos.json
//
//	# Edit records in PostgreSQL and trace every event
//	attrbus-shell -store postgres -dsn postgres://localhost/attrbus -trace todo.alog
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/attrbus/attrbus-go/cmd/attrbus-shell/interactive"
	alog "github.com/attrbus/attrbus-go/pkg/log"
	"github.com/attrbus/attrbus-go/pkg/model"
	"github.com/attrbus/attrbus-go/pkg/persistence"
	"github.com/attrbus/attrbus-go/pkg/persistence/postgres"
	"github.com/attrbus/attrbus-go/pkg/schema"
	"github.com/attrbus/attrbus-go/pkg/subscription"
)

// Config holds the shell configuration.
type Config struct {
	SchemaFile     string
	Store          string
	DataFile       string
	DSN            string
	Driver         string
	Table          string
	URLRoot        string
	ID             string
	TraceFile      string
	LogLevel       string
	NotifyInterval time.Duration
}

var config Config

func init() {
	flag.StringVar(&config.SchemaFile, "schema", "", "YAML schema file")
	flag.StringVar(&config.Store, "store", "file", "Persistence backend: file, postgres, none")
	flag.StringVar(&config.DataFile, "data", "records.json", "Record file for the file store")
	flag.StringVar(&config.DSN, "dsn", "", "PostgreSQL connection string")
	flag.StringVar(&config.Driver, "driver", "pgx", "PostgreSQL driver: pgx, sqlx")
	flag.StringVar(&config.Table, "table", "records", "PostgreSQL table")
	flag.StringVar(&config.URLRoot, "url-root", "/records", "Base address when no schema sets one")
	flag.StringVar(&config.ID, "id", "", "Fetch an existing record with this id on start")
	flag.StringVar(&config.TraceFile, "trace", "", "Event trace file (.alog)")
	flag.StringVar(&config.LogLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	flag.DurationVar(&config.NotifyInterval, "notify-interval", 250*time.Millisecond, "Subscription processing interval")
}

func main() {
	flag.Parse()

	if err := validateConfig(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := newLogger(config.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := []model.Option{model.WithLogger(logger)}
	if config.SchemaFile != "" {
		s, err := schema.Load(config.SchemaFile)
		if err != nil {
			log.Fatalf("Failed to load schema: %v", err)
		}
		opts = append(opts, s.Options()...)
		if s.URLRoot == "" {
			opts = append(opts, model.WithURLRoot(config.URLRoot))
		}
	} else {
		opts = append(opts, model.WithURLRoot(config.URLRoot))
	}

	store, closeStore, err := openStore(ctx, logger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer closeStore()
	if store != nil {
		opts = append(opts, model.WithSyncer(store))
	}

	var initial map[string]any
	if config.ID != "" {
		initial = map[string]any{model.DefaultIDAttribute: config.ID}
	}
	m := model.New(initial, opts...)

	closeTrace, err := attachTrace(m, logger)
	if err != nil {
		log.Fatalf("Failed to open trace: %v", err)
	}
	defer closeTrace()

	if config.ID != "" && store != nil {
		if err := m.Fetch(ctx); err != nil {
			log.Fatalf("Failed to fetch %s: %v", config.ID, err)
		}
	}

	subs := subscription.NewManagerWithConfig(subscription.Config{
		HeartbeatMode:        subscription.HeartbeatEmpty,
		SuppressBounceBack:   true,
		AutoCorrectIntervals: true,
	})
	subs.SetLogger(logger)

	shell, err := interactive.New(m, interactive.Options{
		Store:         lister(store),
		Subscriptions: subs,
	})
	if err != nil {
		log.Fatalf("Failed to start shell: %v", err)
	}
	subs.OnNotification(shell.PrintNotification)

	// Events fire synchronously on the shell goroutine; the ticker only
	// flushes coalesced subscription state.
	go func() {
		if err := subs.Run(ctx, config.NotifyInterval); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("subscription loop stopped", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal", "signal", sig)
			cancel()
			_ = shell.Close()
		case <-ctx.Done():
		}
	}()

	shell.Run(ctx, cancel)
	subs.ClearAll()
}

func validateConfig() error {
	switch config.Store {
	case "file", "none":
	case "postgres":
		if config.DSN == "" {
			return fmt.Errorf("-dsn is required for the postgres store")
		}
		if config.Driver != "pgx" && config.Driver != "sqlx" {
			return fmt.Errorf("unknown driver: %s", config.Driver)
		}
	default:
		return fmt.Errorf("unknown store: %s", config.Store)
	}
	if config.NotifyInterval <= 0 {
		return fmt.Errorf("notify interval must be positive, got %s", config.NotifyInterval)
	}
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// syncStore is a persistence backend the shell can both sync and list.
type syncStore interface {
	model.Syncer
	interactive.Lister
}

func openStore(ctx context.Context, logger *slog.Logger) (syncStore, func(), error) {
	noop := func() {}

	switch config.Store {
	case "none":
		return nil, noop, nil
	case "file":
		return persistence.NewFileStore(config.DataFile, persistence.WithLogger(logger)), noop, nil
	}

	var (
		store   *postgres.Store
		closeDB func()
		err     error
	)
	pgOpts := []postgres.Option{postgres.WithTableName(config.Table), postgres.WithLogger(logger)}

	if config.Driver == "sqlx" {
		db, openErr := postgres.OpenSQLX(ctx, config.DSN)
		if openErr != nil {
			return nil, noop, openErr
		}
		closeDB = func() { _ = db.Close() }
		store, err = postgres.NewStoreFromSQLX(db, pgOpts...)
	} else {
		pool, openErr := postgres.OpenPGX(ctx, config.DSN)
		if openErr != nil {
			return nil, noop, openErr
		}
		closeDB = pool.Close
		store, err = postgres.NewStoreFromPGXPool(pool, pgOpts...)
	}
	if err != nil {
		closeDB()
		return nil, noop, err
	}
	if err := store.CreateTable(ctx); err != nil {
		closeDB()
		return nil, noop, err
	}
	return store, closeDB, nil
}

func lister(s syncStore) interactive.Lister {
	if s == nil {
		return nil
	}
	return s
}

// attachTrace records model events to the trace file, and to the debug log
// when debug logging is enabled.
func attachTrace(m *model.Model, logger *slog.Logger) (func(), error) {
	var sinks []alog.Logger
	var closers []func()

	if config.TraceFile != "" {
		fl, err := alog.NewFileLogger(config.TraceFile)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, fl)
		closers = append(closers, func() {
			if err := fl.Err(); err != nil {
				logger.Warn("trace write failed", "error", err)
			}
			_ = fl.Close()
		})
	}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		sinks = append(sinks, alog.NewSlogAdapter(logger))
	}

	if len(sinks) == 0 {
		return func() {}, nil
	}

	rec := alog.NewRecorder(m, alog.NewMultiLogger(sinks...))
	return func() {
		rec.Detach()
		for _, c := range closers {
			c()
		}
	}, nil
}
