package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Plan     PlanConfig     `mapstructure:"plan"`
	Calendar CalendarConfig `mapstructure:"calendar"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
}

// JWTConfig defines JWT specific configuration.
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// PlanConfig tunes draft-plan editing behavior.
type PlanConfig struct {
	// BlockGranularityMinutes is the rounding step used when session
	// detail blocks are re-flowed after a duration change.
	BlockGranularityMinutes int `mapstructure:"block_granularity_minutes"`
}

// CalendarConfig tunes how published sessions are materialized into
// the athlete's persisted calendar.
type CalendarConfig struct {
	// OriginTag namespaces every calendar entry this service owns so
	// reconciliation never touches entries written by other features.
	OriginTag string `mapstructure:"origin_tag"`
}

// ArchiveConfig configures best-effort snapshot archival to
// S3-compatible object storage. Disabled when the bucket is empty.
type ArchiveConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Environment variable handling: plan.block_granularity_minutes ->
	// PLAN_BLOCK_GRANULARITY_MINUTES, jwt.expiration -> JWT_EXPIRATION, etc.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("database.uri", "mongodb://localhost:27017")
	viper.SetDefault("database.name", "coaching_app")
	viper.SetDefault("jwt.expiration", "1h")
	viper.SetDefault("plan.block_granularity_minutes", 5)
	viper.SetDefault("calendar.origin_tag", "coach-plan")
	viper.SetDefault("archive.use_ssl", true)

	err = viper.ReadInConfig()
	// Config file is optional; env vars plus defaults are enough to run.
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil
	} else if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	return config, nil
}
