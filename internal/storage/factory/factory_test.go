package factory

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eitopstats/topstats/internal/config"
	clickhousestorage "github.com/eitopstats/topstats/internal/storage/clickhouse"
	influxstorage "github.com/eitopstats/topstats/internal/storage/influx"
	kafkastorage "github.com/eitopstats/topstats/internal/storage/kafka"
	"github.com/eitopstats/topstats/internal/storage/memory"
	"github.com/eitopstats/topstats/internal/storage/postgres"
	redisstorage "github.com/eitopstats/topstats/internal/storage/redis"
	sqlitestorage "github.com/eitopstats/topstats/internal/storage/sqlite"
	"github.com/eitopstats/topstats/internal/storage/websocket"
)

func storageConfig(t *testing.T) config.StorageConfig {
	t.Helper()
	return config.StorageConfig{
		SQLite:     config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "Top_Stats.db")},
		Kafka:      config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "fights"},
		Redis:      config.RedisConfig{Addr: "localhost:6379"},
		ClickHouse: config.ClickHouseConfig{Addr: "localhost:9000"},
		Influx:     config.InfluxConfig{Bucket: "fights"},
	}
}

func TestNewBackend(t *testing.T) {
	tests := []struct {
		name  string
		check func(t *testing.T, b any)
	}{
		{Memory, func(t *testing.T, b any) { assert.IsType(t, &memory.Backend{}, b) }},
		{SQLite, func(t *testing.T, b any) { assert.IsType(t, &sqlitestorage.Backend{}, b) }},
		{Postgres, func(t *testing.T, b any) { assert.IsType(t, &postgres.Backend{}, b) }},
		{Influx, func(t *testing.T, b any) { assert.IsType(t, &influxstorage.Backend{}, b) }},
		{WebSocket, func(t *testing.T, b any) { assert.IsType(t, &websocket.Backend{}, b) }},
		{Redis, func(t *testing.T, b any) { assert.IsType(t, &redisstorage.Backend{}, b) }},
		{Kafka, func(t *testing.T, b any) { assert.IsType(t, &kafkastorage.Backend{}, b) }},
		{ClickHouse, func(t *testing.T, b any) { assert.IsType(t, &clickhousestorage.Backend{}, b) }},
		{" Memory ", func(t *testing.T, b any) { assert.IsType(t, &memory.Backend{}, b) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBackend(tt.name, storageConfig(t), Dependencies{})
			require.NoError(t, err)
			tt.check(t, b)
		})
	}
}

func TestNewBackend_Errors(t *testing.T) {
	cfg := storageConfig(t)

	_, err := NewBackend("mongo", cfg, Dependencies{})
	assert.ErrorContains(t, err, "unknown storage backend")

	_, err = NewBackend(Sheets, cfg, Dependencies{})
	assert.Error(t, err, "sheets needs credentials")

	cfg.Kafka.Brokers = nil
	_, err = NewBackend(Kafka, cfg, Dependencies{})
	assert.ErrorIs(t, err, kafkastorage.ErrNoBrokers)
}

func TestNew(t *testing.T) {
	cfg := storageConfig(t)
	cfg.Backends = []string{"memory", "sqlite", "MEMORY"}

	m, err := New(cfg, Dependencies{})
	require.NoError(t, err)
	require.Len(t, m.Backends(), 2)
	assert.IsType(t, &memory.Backend{}, m.Backends()[0])
	assert.IsType(t, &sqlitestorage.Backend{}, m.Backends()[1])
}

func TestNew_NoBackends(t *testing.T) {
	_, err := New(config.StorageConfig{}, Dependencies{})
	assert.ErrorIs(t, err, config.ErrNoBackends)
}

func TestNew_BadBackendNamed(t *testing.T) {
	cfg := storageConfig(t)
	cfg.Backends = []string{"memory", "carrier-pigeon"}
	_, err := New(cfg, Dependencies{})
	assert.ErrorContains(t, err, "carrier-pigeon")
}
