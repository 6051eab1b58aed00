package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "topstats.cfg.json"

// EnvPrefix prefixes environment overrides, e.g. TOPSTATS_GUILD_APIKEY.
const EnvPrefix = "TOPSTATS"

// ErrNoBackends is returned when storage.backends is empty.
var ErrNoBackends = errors.New("no storage backends configured")

// DefaultHighScoreStats are the per-second defensive and support stats
// tracked on the leaderboards.
var DefaultHighScoreStats = []string{
	"dodgeCount", "evadedCount", "blockedCount", "invulnedCount",
	"boonStrips", "condiCleanse", "receivedCrowdControl",
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
	Format         string `json:"format" mapstructure:"format"`
	Compression    string `json:"compression" mapstructure:"compression"`
}

// SQLiteConfig holds SQLite export settings
type SQLiteConfig struct {
	Path         string        `json:"path" mapstructure:"path"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// PostgresConfig holds the Postgres connection
type PostgresConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// WebSocketConfig holds the live feed endpoint
type WebSocketConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// RedisConfig holds the leaderboard store
type RedisConfig struct {
	Addr      string `json:"addr" mapstructure:"addr"`
	Password  string `json:"password" mapstructure:"password"`
	DB        int    `json:"db" mapstructure:"db"`
	KeyPrefix string `json:"keyPrefix" mapstructure:"keyPrefix"`
}

// KafkaConfig holds the fight event stream
type KafkaConfig struct {
	Brokers []string `json:"brokers" mapstructure:"brokers"`
	Topic   string   `json:"topic" mapstructure:"topic"`
}

// ClickHouseConfig holds the analytics store
type ClickHouseConfig struct {
	Addr     string `json:"addr" mapstructure:"addr"`
	Database string `json:"database" mapstructure:"database"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
}

// SheetsConfig holds the Google Sheets export
type SheetsConfig struct {
	SpreadsheetID   string `json:"spreadsheetId" mapstructure:"spreadsheetId"`
	CredentialsFile string `json:"credentialsFile" mapstructure:"credentialsFile"`
	Sheet           string `json:"sheet" mapstructure:"sheet"`
}

// InfluxConfig holds the InfluxDB connection
type InfluxConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`
}

// StorageConfig selects and configures output backends
type StorageConfig struct {
	Backends   []string         `json:"backends" mapstructure:"backends"`
	Memory     MemoryConfig     `json:"memory" mapstructure:"memory"`
	SQLite     SQLiteConfig     `json:"sqlite" mapstructure:"sqlite"`
	Postgres   PostgresConfig   `json:"-" mapstructure:"-"`
	Influx     InfluxConfig     `json:"-" mapstructure:"-"`
	WebSocket  WebSocketConfig  `json:"websocket" mapstructure:"websocket"`
	Redis      RedisConfig      `json:"redis" mapstructure:"redis"`
	Kafka      KafkaConfig      `json:"kafka" mapstructure:"kafka"`
	ClickHouse ClickHouseConfig `json:"clickhouse" mapstructure:"clickhouse"`
	Sheets     SheetsConfig     `json:"sheets" mapstructure:"sheets"`
}

// DPSConfig tunes the derived metrics
type DPSConfig struct {
	SplitByRole   bool    `json:"splitByRole" mapstructure:"splitByRole"`
	Windows       int     `json:"windows" mapstructure:"windows"`
	SiegeSkillIDs []int   `json:"siegeSkillIds" mapstructure:"siegeSkillIds"`
	SkipRatio     float64 `json:"skipDeathRatio" mapstructure:"skipDeathRatio"`
}

// GuildConfig enables the guild membership lookup
type GuildConfig struct {
	Name   string `json:"name"`
	ID     string `json:"id"`
	APIKey string `json:"apiKey"`
	APIURL string `json:"apiUrl"`
}

// Enabled reports whether membership can be fetched.
func (g GuildConfig) Enabled() bool {
	return g.ID != "" && g.APIKey != ""
}

// GraylogConfig enables GELF log shipping
type GraylogConfig struct {
	Enabled bool   `json:"enabled"`
	Address string `json:"address"`
}

// OTelConfig holds OpenTelemetry metric settings. Metrics are exported in
// Prometheus text format to TextfilePath when the run ends.
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	TextfilePath string
}

// ReportConfig controls console and chart output
type ReportConfig struct {
	Console   bool   `json:"console"`
	ChartPath string `json:"chartPath"`
	Color     bool   `json:"color"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file. A .env file in
// configDir, if present, is loaded into the environment first so secrets
// can stay out of the JSON file.
func Load(configDir string) error {
	setDefaults()

	envFile := filepath.Join(configDir, ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("error reading env file: %w", err)
		}
	}
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// IsNotFound reports whether err means no config file was found. Callers
// may run on defaults in that case.
func IsNotFound(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.As(err, &nf)
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./topstats_logs")
	viper.SetDefault("inputDir", ".")
	viper.SetDefault("writeAllDataToJson", true)
	viper.SetDefault("validateLogs", true)
	viper.SetDefault("workers", 4)

	viper.SetDefault("guild.name", "")
	viper.SetDefault("guild.id", "")
	viper.SetDefault("guild.apiKey", "")
	viper.SetDefault("guild.apiUrl", "https://api.guildwars2.com")

	viper.SetDefault("storage.backends", []string{"memory"})
	viper.SetDefault("storage.memory.outputDir", "")
	viper.SetDefault("storage.memory.compressOutput", false)
	viper.SetDefault("storage.memory.format", "json")
	viper.SetDefault("storage.memory.compression", "gzip")
	viper.SetDefault("storage.sqlite.path", "Top_Stats.db")
	viper.SetDefault("storage.sqlite.dumpInterval", "1m")
	viper.SetDefault("storage.websocket.url", "")
	viper.SetDefault("storage.websocket.secret", "")
	viper.SetDefault("storage.redis.addr", "localhost:6379")
	viper.SetDefault("storage.redis.db", 0)
	viper.SetDefault("storage.redis.keyPrefix", "topstats")
	viper.SetDefault("storage.kafka.brokers", []string{"localhost:9092"})
	viper.SetDefault("storage.kafka.topic", "topstats.fights")
	viper.SetDefault("storage.clickhouse.addr", "localhost:9000")
	viper.SetDefault("storage.clickhouse.database", "topstats")
	viper.SetDefault("storage.clickhouse.username", "default")
	viper.SetDefault("storage.sheets.sheet", "Fights")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "topstats")

	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "topstats")
	viper.SetDefault("influx.bucket", "fights")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "topstats")
	viper.SetDefault("otel.textfilePath", "topstats.prom")

	viper.SetDefault("report.console", true)
	viper.SetDefault("report.chartPath", "")
	viper.SetDefault("report.color", true)

	viper.SetDefault("dps.splitByRole", true)
	viper.SetDefault("dps.windows", 20)
	viper.SetDefault("dps.siegeSkillIds", []int{})
	viper.SetDefault("dps.skipDeathRatio", 0.4)

	viper.SetDefault("highScores.stats", DefaultHighScoreStats)
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetStorageConfig assembles the backend settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Backends: viper.GetStringSlice("storage.backends"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
			Format:         viper.GetString("storage.memory.format"),
			Compression:    viper.GetString("storage.memory.compression"),
		},
		SQLite: SQLiteConfig{
			Path:         viper.GetString("storage.sqlite.path"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("db.host"),
			Port:     viper.GetString("db.port"),
			Username: viper.GetString("db.username"),
			Password: viper.GetString("db.password"),
			Database: viper.GetString("db.database"),
		},
		Influx: GetInfluxConfig(),
		WebSocket: WebSocketConfig{
			URL:    viper.GetString("storage.websocket.url"),
			Secret: viper.GetString("storage.websocket.secret"),
		},
		Redis: RedisConfig{
			Addr:      viper.GetString("storage.redis.addr"),
			Password:  viper.GetString("storage.redis.password"),
			DB:        viper.GetInt("storage.redis.db"),
			KeyPrefix: viper.GetString("storage.redis.keyPrefix"),
		},
		Kafka: KafkaConfig{
			Brokers: viper.GetStringSlice("storage.kafka.brokers"),
			Topic:   viper.GetString("storage.kafka.topic"),
		},
		ClickHouse: ClickHouseConfig{
			Addr:     viper.GetString("storage.clickhouse.addr"),
			Database: viper.GetString("storage.clickhouse.database"),
			Username: viper.GetString("storage.clickhouse.username"),
			Password: viper.GetString("storage.clickhouse.password"),
		},
		Sheets: SheetsConfig{
			SpreadsheetID:   viper.GetString("storage.sheets.spreadsheetId"),
			CredentialsFile: viper.GetString("storage.sheets.credentialsFile"),
			Sheet:           viper.GetString("storage.sheets.sheet"),
		},
	}
}

// Validate checks the storage settings.
func (c StorageConfig) Validate() error {
	if len(c.Backends) == 0 {
		return ErrNoBackends
	}
	return nil
}

// GetInfluxConfig returns the InfluxDB connection settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

// GetDPSConfig returns the derived-metric settings.
func GetDPSConfig() DPSConfig {
	return DPSConfig{
		SplitByRole:   viper.GetBool("dps.splitByRole"),
		Windows:       viper.GetInt("dps.windows"),
		SiegeSkillIDs: viper.GetIntSlice("dps.siegeSkillIds"),
		SkipRatio:     viper.GetFloat64("dps.skipDeathRatio"),
	}
}

// GetGuildConfig returns the guild lookup settings.
func GetGuildConfig() GuildConfig {
	return GuildConfig{
		Name:   viper.GetString("guild.name"),
		ID:     viper.GetString("guild.id"),
		APIKey: viper.GetString("guild.apiKey"),
		APIURL: viper.GetString("guild.apiUrl"),
	}
}

// GetGraylogConfig returns the GELF settings.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetOTelConfig returns the OTel metric settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		TextfilePath: viper.GetString("otel.textfilePath"),
	}
}

// GetReportConfig returns the console report settings.
func GetReportConfig() ReportConfig {
	return ReportConfig{
		Console:   viper.GetBool("report.console"),
		ChartPath: viper.GetString("report.chartPath"),
		Color:     viper.GetBool("report.color"),
	}
}

// GetHighScoreStats returns the stats tracked on the leaderboards.
func GetHighScoreStats() []string {
	return viper.GetStringSlice("highScores.stats")
}
