// Package config loads service configuration from file and environment.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every tunable the service reads at startup.
type Config struct {
	Server struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"server"`

	Database struct {
		// Driver is sqlite3, postgres, or mysql.
		Driver string `mapstructure:"driver"`
		DSN    string `mapstructure:"dsn"`
	} `mapstructure:"database"`

	Auth struct {
		JWTSecret string        `mapstructure:"jwt_secret"`
		TokenTTL  time.Duration `mapstructure:"token_ttl"`
		// ResetTokenTTL bounds password reset token validity.
		ResetTokenTTL time.Duration `mapstructure:"reset_token_ttl"`
	} `mapstructure:"auth"`

	Scheduler struct {
		// OverdueSpec is the cron spec for the overdue sweep. Empty disables it.
		OverdueSpec string `mapstructure:"overdue_spec"`
	} `mapstructure:"scheduler"`
}

// Load reads configuration from the given file (optional) with REQFLOW_*
// environment overrides and defaults suitable for local development.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "reqflow.db")
	v.SetDefault("auth.jwt_secret", "development-secret-change-in-production")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.reset_token_ttl", time.Hour)
	v.SetDefault("scheduler.overdue_spec", "@every 15m")

	v.SetEnvPrefix("REQFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
