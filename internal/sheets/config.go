// Package sheets implements the worksheet store on top of the Google Sheets API.
package sheets

import (
	"fmt"
	"os"
	"time"

	"github.com/Veraticus/esparrago/internal/common"
)

// Value input options accepted by the Sheets API.
const (
	InputRaw         = "RAW"
	InputUserEntered = "USER_ENTERED"
)

// Config holds the configuration for the Google Sheets backend.
type Config struct {
	ClientID           string
	ClientSecret       string
	RefreshToken       string
	ServiceAccountPath string
	ValueInputOption   string
	RetryAttempts      int
	RetryDelay         time.Duration
	EnableFormatting   bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		EnableFormatting: true,
		ValueInputOption: InputRaw,
		RetryAttempts:    3,
		RetryDelay:       time.Second,
	}
}

// LoadFromEnv fills credentials from GOOGLE_SHEETS_* variables, then from
// GOOGLE_APPLICATION_CREDENTIALS, then from ./credentials.json if present.
func (c *Config) LoadFromEnv() error {
	c.ClientID = os.Getenv("GOOGLE_SHEETS_CLIENT_ID")
	c.ClientSecret = os.Getenv("GOOGLE_SHEETS_CLIENT_SECRET")
	c.RefreshToken = os.Getenv("GOOGLE_SHEETS_REFRESH_TOKEN")
	c.ServiceAccountPath = os.Getenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH")

	if c.ServiceAccountPath == "" && !c.hasOAuth() {
		c.ServiceAccountPath = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}
	if c.ServiceAccountPath == "" && !c.hasOAuth() {
		if _, err := os.Stat("credentials.json"); err == nil {
			c.ServiceAccountPath = "credentials.json"
		}
	}

	if c.ServiceAccountPath == "" && !c.hasOAuth() {
		return fmt.Errorf("%w: provide either a service account key or OAuth2 credentials for Google Sheets", common.ErrMissingConfig)
	}
	return nil
}

func (c *Config) hasOAuth() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	hasServiceAccount := c.ServiceAccountPath != ""

	if !c.hasOAuth() && !hasServiceAccount {
		return fmt.Errorf("%w: no authentication method configured", common.ErrInvalidConfig)
	}

	if c.hasOAuth() && hasServiceAccount {
		return fmt.Errorf("%w: multiple authentication methods configured; use either OAuth2 or service account", common.ErrInvalidConfig)
	}

	switch c.ValueInputOption {
	case "", InputRaw, InputUserEntered:
	default:
		return fmt.Errorf("%w: value input option %q", common.ErrInvalidConfig, c.ValueInputOption)
	}

	if c.RetryAttempts < 0 {
		return fmt.Errorf("%w: retry attempts cannot be negative", common.ErrInvalidConfig)
	}

	if c.RetryDelay < 0 {
		return fmt.Errorf("%w: retry delay cannot be negative", common.ErrInvalidConfig)
	}

	return nil
}
