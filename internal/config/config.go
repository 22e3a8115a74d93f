package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port       int    `yaml:"port"`
		CORSOrigin string `yaml:"corsOrigin"`
	} `yaml:"server"`

	Database struct {
		// Path of the on-disk snapshot. Empty keeps the store purely
		// in-memory (useful in tests).
		Path                 string `yaml:"path"`
		FlushIntervalSeconds int    `yaml:"flushIntervalSeconds"`
	} `yaml:"database"`

	Auth struct {
		JWTSecret     string `yaml:"jwtSecret"`
		TokenTTLHours int    `yaml:"tokenTTLHours"`
		AdminUsername string `yaml:"adminUsername"`
		AdminPassword string `yaml:"adminPassword"`
		ScannerToken  string `yaml:"scannerToken"`
	} `yaml:"auth"`

	RateLimit struct {
		Capacity   int `yaml:"capacity"`
		RefillRate int `yaml:"refillRate"`
	} `yaml:"rateLimit"`

	Backup struct {
		Enabled    bool   `yaml:"enabled"`
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
		Prefix     string `yaml:"prefix"`
	} `yaml:"backup"`

	AI struct {
		APIKey string `yaml:"apiKey"`
		Model  string `yaml:"model"`
	} `yaml:"ai"`
}

// Default mirrors the development defaults of the original dashboard server.
// Both secrets are intentionally weak placeholders; real deployments must
// override them in config.yaml.
func Default() *Config {
	var cfg Config
	cfg.Server.Port = 3001
	cfg.Server.CORSOrigin = "*"
	cfg.Database.Path = "data/scanner.db"
	cfg.Database.FlushIntervalSeconds = 5
	cfg.Auth.JWTSecret = "default-secret-change-me"
	cfg.Auth.TokenTTLHours = 24
	cfg.Auth.AdminUsername = "admin"
	cfg.Auth.AdminPassword = "admin"
	cfg.Auth.ScannerToken = "scanner-secret-token-change-me"
	cfg.RateLimit.Capacity = 100
	cfg.RateLimit.RefillRate = 50
	cfg.Backup.Prefix = "snapshots"
	return &cfg
}

// Load reads the config file at path, falling back to Default when the file
// does not exist. Values absent from the file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) FlushInterval() time.Duration {
	return time.Duration(c.Database.FlushIntervalSeconds) * time.Second
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLHours) * time.Hour
}
