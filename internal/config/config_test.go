package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, cfg string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(cfg), 0644))
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	writeConfig(t, dir, `{
		"logLevel": "debug",
		"guild": { "name": "Sons of Svanir", "id": "ABC" },
		"db": { "host": "10.0.0.1", "port": "5433" }
	}`)

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, "Sons of Svanir", viper.GetString("guild.name"))
	assert.Equal(t, "10.0.0.1", viper.GetString("db.host"))
	assert.Equal(t, "5433", viper.GetString("db.port"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	writeConfig(t, dir, `{}`)

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./topstats_logs", viper.GetString("logsDir"))
	assert.Equal(t, ".", viper.GetString("inputDir"))
	assert.Equal(t, true, viper.GetBool("writeAllDataToJson"))
	assert.Equal(t, "https://api.guildwars2.com", viper.GetString("guild.apiUrl"))
	assert.Equal(t, "localhost", viper.GetString("db.host"))
	assert.Equal(t, "5432", viper.GetString("db.port"))
	assert.Equal(t, "topstats", viper.GetString("db.database"))
	assert.Equal(t, false, viper.GetBool("graylog.enabled"))
	assert.Equal(t, "localhost:12201", viper.GetString("graylog.address"))
	assert.Equal(t, true, viper.GetBool("dps.splitByRole"))
	assert.Equal(t, 20, viper.GetInt("dps.windows"))
	assert.Equal(t, DefaultHighScoreStats, viper.GetStringSlice("highScores.stats"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
	assert.True(t, IsNotFound(err))
	assert.False(t, IsNotFound(ErrNoBackends))
}

func TestLoad_EnvFileOverrides(t *testing.T) {
	t.Cleanup(viper.Reset)
	t.Cleanup(func() { os.Unsetenv("TOPSTATS_GUILD_APIKEY") })

	dir := t.TempDir()
	writeConfig(t, dir, `{ "guild": { "id": "ABC" } }`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TOPSTATS_GUILD_APIKEY=secret\n"), 0600))

	require.NoError(t, Load(dir))

	g := GetGuildConfig()
	assert.Equal(t, "secret", g.APIKey)
	assert.True(t, g.Enabled())
}

func TestGetString(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	assert.Equal(t, "testValue", GetString("testKey"))
}

func TestGetInt(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testInt", 42)
	assert.Equal(t, 42, GetInt("testInt"))
}

func TestGetBool(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testBool", true)
	assert.Equal(t, true, GetBool("testBool"))
}

func TestGetStorageConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	writeConfig(t, dir, `{}`)
	require.NoError(t, Load(dir))

	cfg := GetStorageConfig()
	assert.Equal(t, []string{"memory"}, cfg.Backends)
	assert.Equal(t, "json", cfg.Memory.Format)
	assert.Equal(t, false, cfg.Memory.CompressOutput)
	assert.Equal(t, "Top_Stats.db", cfg.SQLite.Path)
	assert.Equal(t, time.Minute, cfg.SQLite.DumpInterval)
	assert.Equal(t, "localhost", cfg.Postgres.Host)
	assert.Equal(t, "fights", cfg.Influx.Bucket)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.NoError(t, cfg.Validate())
}

func TestGetStorageConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	writeConfig(t, dir, `{
		"storage": {
			"backends": ["memory", "sqlite", "redis"],
			"memory": { "outputDir": "/tmp/out", "compressOutput": true, "format": "yaml", "compression": "lz4" },
			"sqlite": { "path": "stats.db", "dumpInterval": "10m" },
			"redis": { "addr": "cache:6379", "db": 2 }
		}
	}`)
	require.NoError(t, Load(dir))

	sc := GetStorageConfig()
	assert.Equal(t, []string{"memory", "sqlite", "redis"}, sc.Backends)
	assert.Equal(t, "/tmp/out", sc.Memory.OutputDir)
	assert.Equal(t, true, sc.Memory.CompressOutput)
	assert.Equal(t, "yaml", sc.Memory.Format)
	assert.Equal(t, "lz4", sc.Memory.Compression)
	assert.Equal(t, "stats.db", sc.SQLite.Path)
	assert.Equal(t, 10*time.Minute, sc.SQLite.DumpInterval)
	assert.Equal(t, "cache:6379", sc.Redis.Addr)
	assert.Equal(t, 2, sc.Redis.DB)
}

func TestStorageConfig_Validate(t *testing.T) {
	assert.ErrorIs(t, StorageConfig{}.Validate(), ErrNoBackends)
}

func TestGetDPSConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	writeConfig(t, dir, `{ "dps": { "splitByRole": false, "windows": 10, "siegeSkillIds": [1656, 14627], "skipDeathRatio": 0.5 } }`)
	require.NoError(t, Load(dir))

	dc := GetDPSConfig()
	assert.Equal(t, false, dc.SplitByRole)
	assert.Equal(t, 10, dc.Windows)
	assert.Equal(t, []int{1656, 14627}, dc.SiegeSkillIDs)
	assert.Equal(t, 0.5, dc.SkipRatio)
}

func TestGetOTelConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	writeConfig(t, dir, `{}`)
	require.NoError(t, Load(dir))

	cfg := GetOTelConfig()
	assert.Equal(t, false, cfg.Enabled)
	assert.Equal(t, "topstats", cfg.ServiceName)
	assert.Equal(t, "topstats.prom", cfg.TextfilePath)
}

func TestGetOTelConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	writeConfig(t, dir, `{
		"otel": {
			"enabled": true,
			"serviceName": "my-service",
			"textfilePath": "/var/lib/node_exporter/topstats.prom"
		}
	}`)
	require.NoError(t, Load(dir))

	oc := GetOTelConfig()
	assert.Equal(t, true, oc.Enabled)
	assert.Equal(t, "my-service", oc.ServiceName)
	assert.Equal(t, "/var/lib/node_exporter/topstats.prom", oc.TextfilePath)
}

func TestGetGuildConfig_Disabled(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	writeConfig(t, dir, `{ "guild": { "id": "ABC" } }`)
	require.NoError(t, Load(dir))

	assert.False(t, GetGuildConfig().Enabled())
}
