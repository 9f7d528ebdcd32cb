package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadAPIConfig(t *testing.T) {
	tests := []struct {
		name        string
		configFile  string
		expectError bool
		validate    func(*testing.T, *APIConfig)
	}{
		{
			name: "valid config file",
			configFile: `
debug: true
sentry_dsn: "https://sentry.example.com"
server:
  host: "127.0.0.1"
  port: 9090
  read_timeout: 20
  write_timeout: 20
  idle_timeout: 180
database:
  host: localhost
  port: 5433
  user: testuser
  password: testpass
  dbname: testdb
auth:
  jwt_public_key: "test-public-key"
  api_keys:
    - "key1"
    - "key2"
ethereum:
  chain_id: "eip155:11155111"
factory:
  address: "0xCf7Ed3AccA5a467e9e704C703E8D87F634fB0Fc9"
  owner: "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
  admin: "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
  implementation_version: 3
  recovery_address: "0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC"
`,
			validate: func(t *testing.T, cfg *APIConfig) {
				assert.True(t, cfg.Debug)
				assert.Equal(t, "https://sentry.example.com", cfg.SentryDSN)
				assert.Equal(t, "127.0.0.1", cfg.Server.Host)
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 180, cfg.Server.IdleTimeout)
				assert.Equal(t, "postgres", cfg.Database.Driver)
				assert.Equal(t, 5433, cfg.Database.Port)
				assert.Equal(t, "test-public-key", cfg.Auth.JWTPublicKey)
				assert.Len(t, cfg.Auth.APIKeys, 2)
				assert.Equal(t, "eip155:11155111", string(cfg.Ethereum.ChainID))
				assert.Equal(t, "0xCf7Ed3AccA5a467e9e704C703E8D87F634fB0Fc9", cfg.Factory.Address)
				assert.Equal(t, uint8(3), cfg.Factory.ImplementationVersion)
				assert.Equal(t, "0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC", cfg.Factory.RecoveryAddress)
			},
		},
		{
			name: "config with defaults",
			configFile: `
database:
  host: localhost
  user: testuser
  password: testpass
  dbname: testdb
`,
			validate: func(t *testing.T, cfg *APIConfig) {
				assert.False(t, cfg.Debug)
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 10, cfg.Server.ReadTimeout)
				assert.Equal(t, 10, cfg.Server.WriteTimeout)
				assert.Equal(t, 120, cfg.Server.IdleTimeout)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "disable", cfg.Database.SSLMode)
				assert.Equal(t, time.Hour, cfg.Database.ConnMaxLifetime)
				assert.Equal(t, "eip155:1", string(cfg.Ethereum.ChainID))
				assert.Equal(t, uint8(5), cfg.Factory.ImplementationVersion)
			},
		},
		{
			name: "sqlite driver",
			configFile: `
database:
  driver: sqlite
  path: "/var/lib/ff-editions/editions.db"
`,
			validate: func(t *testing.T, cfg *APIConfig) {
				assert.Equal(t, "sqlite", cfg.Database.Driver)
				assert.Equal(t, "/var/lib/ff-editions/editions.db", cfg.Database.DSN())
			},
		},
		{
			name: "sqlite driver without path",
			configFile: `
database:
  driver: sqlite
`,
			expectError: true,
		},
		{
			name: "unknown driver",
			configFile: `
database:
  driver: mysql
`,
			expectError: true,
		},
		{
			name: "invalid value",
			configFile: `
server:
  port: invalid
`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadAPIConfig(writeConfig(t, tt.configFile), t.TempDir())

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, cfg)
			tt.validate(t, cfg)
		})
	}
}

func TestLoadAPIConfig_MissingFile(t *testing.T) {
	cfg, err := LoadAPIConfig(filepath.Join(t.TempDir(), "nonexistent.yaml"), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
}

func TestLoadRelayConfig(t *testing.T) {
	tests := []struct {
		name        string
		configFile  string
		expectError bool
		validate    func(*testing.T, *RelayConfig)
	}{
		{
			name: "valid config file",
			configFile: `
worker:
  pool_size: 4
database:
  host: localhost
  user: testuser
  password: testpass
  dbname: testdb
nats:
  url: "nats://localhost:4222"
  stream_name: "TEST_STREAM"
  max_reconnects: 5
  reconnect_wait: "5s"
  duplicate_window: "10m"
relay:
  batch_size: 50
  poll_interval: "250ms"
  retry_max_elapsed_time: "30s"
`,
			validate: func(t *testing.T, cfg *RelayConfig) {
				assert.Equal(t, 4, cfg.Worker.WorkerPoolSize)
				assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
				assert.Equal(t, "TEST_STREAM", cfg.NATS.StreamName)
				assert.Equal(t, 5, cfg.NATS.MaxReconnects)
				assert.Equal(t, 5*time.Second, cfg.NATS.ReconnectWait)
				assert.Equal(t, 10*time.Minute, cfg.NATS.DuplicateWindow)
				assert.Equal(t, 50, cfg.Relay.BatchSize)
				assert.Equal(t, 250*time.Millisecond, cfg.Relay.PollInterval)
				assert.Equal(t, 30*time.Second, cfg.Relay.RetryMaxElapsedTime)
				assert.Equal(t, 500*time.Millisecond, cfg.Relay.RetryInitialInterval)
			},
		},
		{
			name: "config with defaults",
			configFile: `
nats:
  url: "nats://localhost:4222"
`,
			validate: func(t *testing.T, cfg *RelayConfig) {
				assert.Equal(t, 8, cfg.Worker.WorkerPoolSize)
				assert.Equal(t, "EDITION_EVENTS", cfg.NATS.StreamName)
				assert.Equal(t, 10, cfg.NATS.MaxReconnects)
				assert.Equal(t, 2*time.Minute, cfg.NATS.DuplicateWindow)
				assert.Equal(t, 100, cfg.Relay.BatchSize)
				assert.Equal(t, time.Second, cfg.Relay.PollInterval)
			},
		},
		{
			name: "missing nats url",
			configFile: `
relay:
  batch_size: 10
`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadRelayConfig(writeConfig(t, tt.configFile), t.TempDir())

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, cfg)
			tt.validate(t, cfg)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	tests := []struct {
		name     string
		config   DatabaseConfig
		expected string
	}{
		{
			name: "postgres",
			config: DatabaseConfig{
				Driver:   "postgres",
				Host:     "localhost",
				Port:     5432,
				User:     "testuser",
				Password: "p@ssw0rd!",
				DBName:   "testdb",
				SSLMode:  "require",
			},
			expected: "host=localhost port=5432 user=testuser password=p@ssw0rd! dbname=testdb sslmode=require",
		},
		{
			name: "sqlite",
			config: DatabaseConfig{
				Driver: "sqlite",
				Path:   ":memory:",
			},
			expected: ":memory:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.DSN())
		})
	}
}

func TestConfigWithEnvironmentVariables(t *testing.T) {
	envDir := t.TempDir()

	// godotenv.Overload sets process variables; restore them after the test
	keys := []string{
		"FF_EDITIONS_DEBUG",
		"FF_EDITIONS_DATABASE_HOST",
		"FF_EDITIONS_DATABASE_PORT",
		"FF_EDITIONS_FACTORY_OWNER",
	}
	for _, key := range keys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	envContent := `FF_EDITIONS_DEBUG=true
FF_EDITIONS_DATABASE_HOST=env-host
FF_EDITIONS_DATABASE_PORT=3306
FF_EDITIONS_FACTORY_OWNER=0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266
`
	require.NoError(t, os.WriteFile(filepath.Join(envDir, ".env"), []byte(envContent), 0600))

	configPath := writeConfig(t, `
debug: false
database:
  host: file-host
  port: 5432
factory:
  owner: "0x0000000000000000000000000000000000000001"
`)

	cfg, err := LoadAPIConfig(configPath, envDir)
	require.NoError(t, err)

	// Environment variables take precedence over the config file
	assert.True(t, cfg.Debug)
	assert.Equal(t, "env-host", cfg.Database.Host)
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", cfg.Factory.Owner)
}
