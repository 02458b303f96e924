package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Server holds the daemon-side settings.
type Server struct {
	Listen        string `toml:"listen" validate:"required"`
	DataDir       string `toml:"data_dir" validate:"required"`
	JWTSecret     string `toml:"jwt_secret" validate:"required,min=16"`
	TokenTTLHours int    `toml:"token_ttl_hours" validate:"gt=0"`
}

// Client holds the settings for the line client.
type Client struct {
	ServerURL string `toml:"server_url" validate:"required,url"`
	Email     string `toml:"email"`
}

// Config represents ~/.brezze/config.toml.
type Config struct {
	Server Server `toml:"server"`
	Client Client `toml:"client"`
}

// Default returns a config populated with working defaults. The JWT secret
// has no default; a fresh install must set one before the daemon starts.
func Default() *Config {
	return &Config{
		Server: Server{
			Listen:        "127.0.0.1:8400",
			DataDir:       BaseDir(),
			TokenTTLHours: 24,
		},
		Client: Client{
			ServerURL: "http://127.0.0.1:8400",
		},
	}
}

// Load reads config from the given path, layering the file over defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// ValidateServer checks the daemon settings.
func (c *Config) ValidateServer() error {
	return validate.Struct(c.Server)
}

// ValidateClient checks the line-client settings.
func (c *Config) ValidateClient() error {
	return validate.Struct(c.Client)
}
