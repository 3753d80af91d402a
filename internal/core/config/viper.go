package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps CLI flag names to configuration keys.
var flagKeys = map[string]string{
	"host":       "server.host",
	"http-port":  "server.http_port",
	"grpc-port":  "server.grpc_port",
	"data-dir":   "server.data_dir",
	"data-url":   "client.data_url",
	"db-url":     "database.url",
	"fields":     "fields.path",
	"log-level":  "log.level",
	"log-format": "log.format",
}

// LoadConfig loads configuration from file using viper.
// Precedence: CLI flags > environment > config file > defaults.
// flags may be nil; only flags that were explicitly set override.
func LoadConfig(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Secrets are environment-only; check before env binding so
		// QK_HMAC_SECRET itself does not trip the check
		if err := validateNoSecretsInConfig(v); err != nil {
			return nil, err
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           v.GetString("server.host"),
			HTTPPort:       v.GetInt("server.http_port"),
			GRPCPort:       v.GetInt("server.grpc_port"),
			RequestTimeout: v.GetDuration("server.request_timeout"),
			DataDir:        v.GetString("server.data_dir"),
		},
		Client: ClientConfig{
			DataURL: v.GetString("client.data_url"),
			Timeout: v.GetDuration("client.timeout"),
		},
		Database: DatabaseConfig{
			URL: v.GetString("database.url"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		FieldsPath: v.GetString("fields.path"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults mirrors Default so viper sees every key.
func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.http_port", d.Server.HTTPPort)
	v.SetDefault("server.grpc_port", d.Server.GRPCPort)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout.String())
	v.SetDefault("server.data_dir", d.Server.DataDir)
	v.SetDefault("client.data_url", d.Client.DataURL)
	v.SetDefault("client.timeout", d.Client.Timeout.String())
	v.SetDefault("database.url", d.Database.URL)
	v.SetDefault("fields.path", d.FieldsPath)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// validateConfig checks port ranges, positive timeouts and known log settings.
func validateConfig(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("http_port must be between 1 and 65535, got %d", cfg.Server.HTTPPort)
	}
	if cfg.Server.GRPCPort <= 0 || cfg.Server.GRPCPort > 65535 {
		return fmt.Errorf("grpc_port must be between 1 and 65535, got %d", cfg.Server.GRPCPort)
	}
	if cfg.Server.HTTPPort == cfg.Server.GRPCPort {
		return fmt.Errorf("http_port and grpc_port must differ, both are %d", cfg.Server.HTTPPort)
	}
	if cfg.Server.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.Server.RequestTimeout)
	}
	if cfg.Client.Timeout <= 0 {
		return fmt.Errorf("client timeout must be positive, got %v", cfg.Client.Timeout)
	}
	if cfg.Client.DataURL == "" {
		return fmt.Errorf("client data_url cannot be empty")
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level must be one of debug, info, warn, error, got %q", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log format must be json or text, got %q", cfg.Log.Format)
	}
	return nil
}

// validateNoSecretsInConfig enforces environment-only secrets.
func validateNoSecretsInConfig(v *viper.Viper) error {
	if v.IsSet("hmac_secret") || v.IsSet("server.hmac_secret") || v.IsSet("client.hmac_secret") {
		return fmt.Errorf("HMAC secrets not allowed in config files (use QK_HMAC_SECRET environment variable)")
	}
	return nil
}
