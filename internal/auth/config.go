package auth

import (
	"fmt"
	"os"
)

// Config holds Google OAuth credential file locations
type Config struct {
	ClientSecretsPath string // OAuth client secrets JSON (installed app)
	TokenPath         string // Cached token JSON, created after first authorisation
}

// NewConfigFromEnv creates auth config from environment variables
func NewConfigFromEnv() (*Config, error) {
	config := &Config{
		ClientSecretsPath: os.Getenv("CLIENT_SECRETS_FILE"),
		TokenPath:         os.Getenv("TOKEN_PATH"),
	}

	// Validate required environment variables
	if config.ClientSecretsPath == "" {
		return nil, fmt.Errorf("CLIENT_SECRETS_FILE environment variable is required")
	}
	if config.TokenPath == "" {
		return nil, fmt.Errorf("TOKEN_PATH environment variable is required")
	}
	return config, nil
}

// Validate ensures all required configuration is present
func (c *Config) Validate() error {
	if c.ClientSecretsPath == "" {
		return fmt.Errorf("ClientSecretsPath is required")
	}
	if c.TokenPath == "" {
		return fmt.Errorf("TokenPath is required")
	}
	return nil
}
