// Package config reads and writes the terminal client's settings file,
// which also holds the signed-in session.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"cliente_backend/internal/client"
)

// DefaultServer is used when neither the file, the env nor a flag names a server.
const DefaultServer = "http://localhost:8080"

const fileName = ".clientes.yaml"

// Config is the settings file plus its on-disk location.
type Config struct {
	v    *viper.Viper
	path string
}

// DefaultPath returns ~/.clientes.yaml, or ./.clientes.yaml when no home directory is known.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return fileName
	}
	return filepath.Join(home, fileName)
}

// Load reads cfgFile (DefaultPath when empty). A missing file is not an error.
// CLIENTES_SERVER and CLIENTES_TIMEOUT override the file.
func Load(cfgFile string) (*Config, error) {
	if cfgFile == "" {
		cfgFile = DefaultPath()
	}

	v := viper.New()
	v.SetConfigFile(cfgFile)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("CLIENTES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server", DefaultServer)
	v.SetDefault("timeout", "10s")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	return &Config{v: v, path: cfgFile}, nil
}

// Path returns the file the config is read from and written to.
func (c *Config) Path() string { return c.path }

// Server returns the API base URL.
func (c *Config) Server() string { return c.v.GetString("server") }

// SetServer overrides the API base URL; it is persisted on the next save.
func (c *Config) SetServer(url string) {
	if url != "" {
		c.v.Set("server", url)
	}
}

// Timeout is the per-request timeout of the API client.
func (c *Config) Timeout() time.Duration {
	d := c.v.GetDuration("timeout")
	if d <= 0 {
		return 10 * time.Second
	}
	return d
}

// Session returns the stored session or nil when signed out.
func (c *Config) Session() *client.Session {
	access := c.v.GetString("session.access_token")
	if access == "" {
		return nil
	}
	return &client.Session{
		UserID:       c.v.GetString("session.user_id"),
		Email:        c.v.GetString("session.email"),
		AccessToken:  access,
		RefreshToken: c.v.GetString("session.refresh_token"),
		ExpiresAt:    c.v.GetTime("session.expires_at"),
	}
}

// SaveSession persists s; nil clears the stored session.
func (c *Config) SaveSession(s *client.Session) error {
	if s == nil {
		s = &client.Session{}
	}
	expires := ""
	if !s.ExpiresAt.IsZero() {
		expires = s.ExpiresAt.UTC().Format(time.RFC3339)
	}
	// viper merges nested maps, so each key is overwritten on its own
	c.v.Set("session.user_id", s.UserID)
	c.v.Set("session.email", s.Email)
	c.v.Set("session.access_token", s.AccessToken)
	c.v.Set("session.refresh_token", s.RefreshToken)
	c.v.Set("session.expires_at", expires)
	return c.save()
}

func (c *Config) save() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := c.v.WriteConfigAs(c.path); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	// トークンを含むため所有者のみ読み書き可能にする
	if err := os.Chmod(c.path, 0o600); err != nil {
		return fmt.Errorf("securing config: %w", err)
	}
	return nil
}
