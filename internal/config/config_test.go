package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
			wantErr:  false,
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg)

				// Verify some key fields are populated
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 100, cfg.Server.RateLimit.Max)
				assert.Equal(t, time.Minute, cfg.Server.RateLimit.Window)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "transcriptions_db", cfg.Database.Database)
				assert.Equal(t, "transcriptions_exchange", cfg.RabbitMQ.Exchange.Name)
				assert.Equal(t, "transcriptions_queue", cfg.RabbitMQ.Queue.Name)
				assert.Equal(t, "transcription-api-service", cfg.App.Name)
				assert.Equal(t, "transcription:process", cfg.Queue.JobType)
				assert.Equal(t, 3, cfg.Queue.MaxAttempts)
				assert.Equal(t, 30*time.Second, cfg.Queue.BackoffBase)
				assert.Equal(t, time.Hour, cfg.Queue.LockLifetime)
				assert.Equal(t, 5, cfg.Worker.Concurrency)
				assert.Equal(t, 2, cfg.Worker.TypeConcurrency)
				assert.Equal(t, int64(52428800), cfg.Download.MaxBytes)
				assert.Equal(t, "stub", cfg.Transcriber.Provider)
			}
		})
	}
}

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "transcriptions_db",
		},
		RabbitMQ: RabbitMQConfig{
			Host: "localhost",
			Port: 5672,
			Exchange: ExchangeConfig{
				Name: "transcriptions_exchange",
			},
			Queue: AMQPQueueConfig{
				Name: "transcriptions_queue",
			},
		},
		Worker: WorkerConfig{
			Concurrency:     5,
			TypeConcurrency: 2,
			PollInterval:    5 * time.Second,
		},
		Queue: QueueConfig{
			MaxAttempts:  3,
			BackoffBase:  30 * time.Second,
			LockLifetime: time.Hour,
		},
		Download: DownloadConfig{
			Dir:      "uploads",
			MaxBytes: 52428800,
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		errString string
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:      "empty database host",
			mutate:    func(c *Config) { c.Database.Host = "" },
			wantErr:   true,
			errString: "database host is required",
		},
		{
			name:      "invalid database port",
			mutate:    func(c *Config) { c.Database.Port = 0 },
			wantErr:   true,
			errString: "invalid database port",
		},
		{
			name:      "empty database name",
			mutate:    func(c *Config) { c.Database.Database = "" },
			wantErr:   true,
			errString: "database name is required",
		},
		{
			name:      "empty rabbitmq host",
			mutate:    func(c *Config) { c.RabbitMQ.Host = "" },
			wantErr:   true,
			errString: "rabbitmq host is required",
		},
		{
			name:      "invalid rabbitmq port",
			mutate:    func(c *Config) { c.RabbitMQ.Port = 70000 },
			wantErr:   true,
			errString: "invalid rabbitmq port",
		},
		{
			name:      "empty exchange name",
			mutate:    func(c *Config) { c.RabbitMQ.Exchange.Name = "" },
			wantErr:   true,
			errString: "rabbitmq exchange name is required",
		},
		{
			name:      "empty queue name",
			mutate:    func(c *Config) { c.RabbitMQ.Queue.Name = "" },
			wantErr:   true,
			errString: "rabbitmq queue name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateServer(t *testing.T) {
	tests := []struct {
		name    string
		port    int
		wantErr bool
	}{
		{name: "valid port", port: 8080, wantErr: false},
		{name: "port too low", port: 0, wantErr: true},
		{name: "port too high", port: 70000, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Server.Port = tt.port

			err := cfg.ValidateServer()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid server port")
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateWorker(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		errString string
	}{
		{
			name:    "valid worker config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:      "zero concurrency",
			mutate:    func(c *Config) { c.Worker.Concurrency = 0 },
			wantErr:   true,
			errString: "worker concurrency must be greater than 0",
		},
		{
			name:      "zero type concurrency",
			mutate:    func(c *Config) { c.Worker.TypeConcurrency = 0 },
			wantErr:   true,
			errString: "worker type_concurrency must be greater than 0",
		},
		{
			name:      "type concurrency above global",
			mutate:    func(c *Config) { c.Worker.TypeConcurrency = 10 },
			wantErr:   true,
			errString: "type_concurrency cannot exceed concurrency",
		},
		{
			name:      "zero poll interval",
			mutate:    func(c *Config) { c.Worker.PollInterval = 0 },
			wantErr:   true,
			errString: "worker poll_interval must be greater than 0",
		},
		{
			name:      "zero max attempts",
			mutate:    func(c *Config) { c.Queue.MaxAttempts = 0 },
			wantErr:   true,
			errString: "queue max_attempts must be greater than 0",
		},
		{
			name:      "zero backoff base",
			mutate:    func(c *Config) { c.Queue.BackoffBase = 0 },
			wantErr:   true,
			errString: "queue backoff_base must be greater than 0",
		},
		{
			name:      "zero lock lifetime",
			mutate:    func(c *Config) { c.Queue.LockLifetime = 0 },
			wantErr:   true,
			errString: "queue lock_lifetime must be greater than 0",
		},
		{
			name:      "empty download dir",
			mutate:    func(c *Config) { c.Download.Dir = "" },
			wantErr:   true,
			errString: "download dir is required",
		},
		{
			name:      "zero download max bytes",
			mutate:    func(c *Config) { c.Download.MaxBytes = 0 },
			wantErr:   true,
			errString: "download max_bytes must be greater than 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.ValidateWorker()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestLoad_ValidateIntegration(t *testing.T) {
	t.Run("load and validate valid config", func(t *testing.T) {
		cfg, err := Load("testdata/valid_config.yaml")
		require.NoError(t, err)
		require.NotNil(t, cfg)

		require.NoError(t, cfg.Validate())
		require.NoError(t, cfg.ValidateServer())
		require.NoError(t, cfg.ValidateWorker())
	})

	t.Run("load config with invalid server port", func(t *testing.T) {
		cfg, err := Load("testdata/invalid_port.yaml")
		require.NoError(t, err)
		require.NotNil(t, cfg)

		err = cfg.ValidateServer()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid server port")
	})

	t.Run("load config with missing database", func(t *testing.T) {
		cfg, err := Load("testdata/missing_database.yaml")
		require.NoError(t, err)
		require.NotNil(t, cfg)

		err = cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database name is required")
	})
}

func TestPortConstants(t *testing.T) {
	t.Run("port constants are correct", func(t *testing.T) {
		assert.Equal(t, 1, MinPort)
		assert.Equal(t, 65535, MaxPort)
	})

	t.Run("valid port range", func(t *testing.T) {
		validPorts := []int{1, 80, 443, 8080, 65535}
		for _, port := range validPorts {
			assert.GreaterOrEqual(t, port, MinPort)
			assert.LessOrEqual(t, port, MaxPort)
		}
	})

	t.Run("invalid port range", func(t *testing.T) {
		invalidPorts := []int{0, -1, 65536, 70000}
		for _, port := range invalidPorts {
			valid := port >= MinPort && port <= MaxPort
			assert.False(t, valid, "port %d should be invalid", port)
		}
	})
}
