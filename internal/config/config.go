package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

// DefaultAPIURL is used when neither the config file nor the environment
// names an API address.
const DefaultAPIURL = "http://localhost:8000"

type Config struct {
	API     API     `yaml:"api"`
	Refresh Refresh `yaml:"refresh"`
	Preview Preview `yaml:"preview"`
	Server  Server  `yaml:"server"`
	Logging Logging `yaml:"logging"`
}

type API struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type Refresh struct {
	Schedule   string        `yaml:"schedule"`
	MaxBackoff time.Duration `yaml:"max_backoff"`
}

type Preview struct {
	Enabled   bool          `yaml:"enabled"`
	Timeout   time.Duration `yaml:"timeout"`
	CacheSize int           `yaml:"cache_size"`
}

type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ConfigDir returns the XDG config directory for creditintel.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "creditintel")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/creditintel/config.yaml > ./config.yaml.
// An empty path with a nil error means no file exists and the embedded
// defaults apply.
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", nil
}

// Load reads and parses a config YAML file, then applies environment
// overrides. An empty path loads the embedded defaults.
func Load(path string) (*Config, error) {
	data := DefaultConfigYAML
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}

	// A missing .env is the normal case outside development.
	_ = godotenv.Load()
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		API: API{
			BaseURL: DefaultAPIURL,
			Timeout: 10 * time.Second,
		},
		Refresh: Refresh{
			Schedule:   "@every 30s",
			MaxBackoff: 5 * time.Minute,
		},
		Preview: Preview{
			Enabled:   true,
			Timeout:   15 * time.Second,
			CacheSize: 128,
		},
		Server:  Server{Host: "127.0.0.1", Port: 8080},
		Logging: Logging{Level: "INFO", Format: "text"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// applyEnv overlays environment variables onto the parsed file.
// CREDITINTEL_API_URL wins over API_URL.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	for _, key := range []string{"API_URL", "CREDITINTEL_API_URL"} {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			c.API.BaseURL = strings.TrimSpace(v)
		}
	}

	if v, ok := lookup("CREDITINTEL_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid CREDITINTEL_PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}

	if v, ok := lookup("CREDITINTEL_LOG_LEVEL"); ok && v != "" {
		c.Logging.Level = v
	}
	return nil
}

// Validate checks the settings the service cannot run without.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url must not be empty")
	}
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("api.base_url must be an http(s) URL, got %q", c.API.BaseURL)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Refresh.Schedule == "" {
		return fmt.Errorf("refresh.schedule must not be empty")
	}
	return nil
}

// Addr returns the listen address for the dashboard server.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
