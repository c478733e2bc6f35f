package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// S3 holds snapshot storage settings. Leaving the bucket or credentials
// empty disables backups.
type S3 struct {
	Endpoint  string `env:"ENDPOINT"`
	Bucket    string `env:"BUCKET"`
	Region    string `env:"REGION" envDefault:"auto"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	Prefix    string `env:"PREFIX" envDefault:"rollcall"`
}

// Config is the process configuration, read from the environment with an
// optional .env file.
type Config struct {
	Port     int    `env:"PORT" envDefault:"8080"`
	DBPath   string `env:"DATABASE_PATH" envDefault:"rollcall.db"`
	BaseURL  string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// DeveloperPassword is a support escape hatch that the checkout gate
	// accepts in place of the admin override password. Empty disables it.
	DeveloperPassword string `env:"DEVELOPER_PASSWORD"`

	BackupPassphrase    string `env:"BACKUP_PASSPHRASE"`
	BackupScheduleHour  int    `env:"BACKUP_SCHEDULE_HOUR" envDefault:"3"`
	BackupRetentionDays int    `env:"BACKUP_RETENTION_DAYS" envDefault:"30"`

	S3 S3 `envPrefix:"S3_"`
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}
