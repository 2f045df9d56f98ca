package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/newsnexus/internal/flagx"
	"github.com/dmitrijs2005/newsnexus/internal/timex"
)

// JsonConfig is the on-disk form of Config. Durations accept "60s" or
// integer nanoseconds. Absent fields keep the value they had before.
type JsonConfig struct {
	ListenAddr        *string         `json:"listen_addr"`
	DatabaseDriver    *string         `json:"database_driver"`
	DatabaseDSN       *string         `json:"database_dsn"`
	DataDir           *string         `json:"data_dir"`
	SchedulerInterval *timex.Duration `json:"scheduler_interval"`
	OAuthTimeout      *timex.Duration `json:"oauth_timeout"`
	KeyringService    *string         `json:"keyring_service"`
	AllowedOrigins    []string        `json:"allowed_origins"`
	APIToken          *string         `json:"api_token"`
	GeneratorCommand  *string         `json:"generator_command"`
	S3User            *string         `json:"s3_user"`
	S3Password        *string         `json:"s3_password"`
	S3Bucket          *string         `json:"s3_bucket"`
	S3Region          *string         `json:"s3_region"`
	S3BaseEndpoint    *string         `json:"s3_base_endpoint"`
	EnvFile           *string         `json:"env_file"`
	LogLevel          *string         `json:"log_level"`
}

// parseJson overlays the file named by -c/-config, if any. Unreadable or
// malformed files panic, like bad flags do.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigPath(os.Args[1:])

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.ListenAddr, c.ListenAddr)
	setString(&config.DatabaseDriver, c.DatabaseDriver)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.DataDir, c.DataDir)
	if c.SchedulerInterval != nil {
		config.SchedulerInterval = c.SchedulerInterval.Duration
	}
	if c.OAuthTimeout != nil {
		config.OAuthTimeout = c.OAuthTimeout.Duration
	}
	setString(&config.KeyringService, c.KeyringService)
	if c.AllowedOrigins != nil {
		config.AllowedOrigins = c.AllowedOrigins
	}
	setString(&config.APIToken, c.APIToken)
	setString(&config.GeneratorCommand, c.GeneratorCommand)
	setString(&config.S3User, c.S3User)
	setString(&config.S3Password, c.S3Password)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.EnvFile, c.EnvFile)
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
