package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port       int               `env:"PORT" envDefault:"8081"`
	Host       string            `env:"HOST"`
	Root       string            `env:"SPA_ROOT" envDefault:"."`
	Index      string            `env:"SPA_INDEX" envDefault:"dist/index.html"`
	Redirects  map[string]string `env:"SPA_REDIRECTS" envDefault:"/present=/investigation/ITOM-4412" envSeparator:"," envKeyValSeparator:"="`
	LogLevel   slog.Level        `env:"LOG_LEVEL" envDefault:"INFO"`
	HealthPath string            `env:"HEALTH_PATH"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDotenv loads the given dotenv files (".env" when none are given).
// Missing files are skipped and variables already set are kept.
func LoadDotenv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

func (c *Config) normalize() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d: must be between 1 and 65535", c.Port)
	}

	root, err := filepath.Abs(c.Root)
	if err != nil {
		return fmt.Errorf("resolving SPA_ROOT %q: %w", c.Root, err)
	}
	c.Root = root

	index := filepath.ToSlash(filepath.Clean(c.Index))
	if index == "." || filepath.IsAbs(c.Index) || index == ".." || strings.HasPrefix(index, "../") {
		return fmt.Errorf("invalid SPA_INDEX %q: must be a file below SPA_ROOT", c.Index)
	}
	c.Index = index

	if c.HealthPath != "" && !strings.HasPrefix(c.HealthPath, "/") {
		c.HealthPath = "/" + c.HealthPath
	}
	return nil
}

// Addr is the listen address; an empty Host binds all interfaces.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// URL is the address a developer would open in a browser.
func (c *Config) URL() string {
	host := c.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(c.Port))
}

// IndexPath is the absolute path of the SPA shell.
func (c *Config) IndexPath() string {
	return filepath.Join(c.Root, filepath.FromSlash(c.Index))
}
