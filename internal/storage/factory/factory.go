// Package factory builds the configured output backends.
package factory

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/eitopstats/topstats/internal/config"
	"github.com/eitopstats/topstats/internal/influx"
	"github.com/eitopstats/topstats/internal/logging"
	"github.com/eitopstats/topstats/internal/storage"
	clickhousestorage "github.com/eitopstats/topstats/internal/storage/clickhouse"
	influxstorage "github.com/eitopstats/topstats/internal/storage/influx"
	kafkastorage "github.com/eitopstats/topstats/internal/storage/kafka"
	"github.com/eitopstats/topstats/internal/storage/memory"
	"github.com/eitopstats/topstats/internal/storage/postgres"
	redisstorage "github.com/eitopstats/topstats/internal/storage/redis"
	sheetsstorage "github.com/eitopstats/topstats/internal/storage/sheets"
	sqlitestorage "github.com/eitopstats/topstats/internal/storage/sqlite"
	"github.com/eitopstats/topstats/internal/storage/websocket"
)

// Backend names accepted in storage.backends.
const (
	Memory     = "memory"
	SQLite     = "sqlite"
	Postgres   = "postgres"
	Influx     = "influx"
	WebSocket  = "websocket"
	Redis      = "redis"
	Kafka      = "kafka"
	ClickHouse = "clickhouse"
	Sheets     = "sheets"
)

// Names lists every known backend.
var Names = []string{Memory, SQLite, Postgres, Influx, WebSocket, Redis, Kafka, ClickHouse, Sheets}

// Dependencies are the shared loggers handed to the backends.
type Dependencies struct {
	LogManager     *logging.SlogManager
	Logger         *slog.Logger
	DatabaseLogger zerolog.Logger
	LogsDir        string
}

// NewBackend creates one backend by name.
func NewBackend(name string, cfg config.StorageConfig, deps Dependencies) (storage.Backend, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case Memory:
		return memory.New(cfg.Memory), nil
	case SQLite:
		return sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: cfg.SQLite.DumpInterval,
			DumpPath:     cfg.SQLite.Path,
		}, deps.LogManager)
	case Postgres:
		return postgres.New(postgres.Dependencies{
			Config:         cfg.Postgres,
			FallbackPath:   cfg.SQLite.Path,
			LogManager:     deps.LogManager,
			DatabaseLogger: deps.DatabaseLogger,
		}), nil
	case Influx:
		backup := ""
		if deps.LogsDir != "" {
			backup = filepath.Join(deps.LogsDir, "influx_backup.log.gz")
		}
		mgr := influx.NewManager(deps.DatabaseLogger, cfg.Influx, backup)
		return influxstorage.New(mgr, cfg.Influx.Bucket), nil
	case WebSocket:
		return websocket.New(websocket.Config{URL: cfg.WebSocket.URL, Secret: cfg.WebSocket.Secret}, logger), nil
	case Redis:
		return redisstorage.New(cfg.Redis), nil
	case Kafka:
		return kafkastorage.New(cfg.Kafka, logger)
	case ClickHouse:
		return clickhousestorage.New(cfg.ClickHouse)
	case Sheets:
		return sheetsstorage.New(context.Background(), cfg.Sheets)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", name)
	}
}

// New builds every backend in cfg.Backends, in order, behind a storage.Multi.
// Duplicate names are built once.
func New(cfg config.StorageConfig, deps Dependencies) (*storage.Multi, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(cfg.Backends))
	var backends []storage.Backend
	for _, name := range cfg.Backends {
		key := strings.ToLower(strings.TrimSpace(name))
		if seen[key] {
			continue
		}
		seen[key] = true
		b, err := NewBackend(name, cfg, deps)
		if err != nil {
			return nil, fmt.Errorf("storage backend %s: %w", name, err)
		}
		backends = append(backends, b)
	}
	return storage.NewMulti(backends...), nil
}
