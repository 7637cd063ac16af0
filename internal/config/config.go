package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Simplici0/dealfinder/internal/tco"
)

const (
	defaultConfigPath = "config.yaml"
	defaultDBPath     = "./dev.db"
	defaultPort       = "8080"
	defaultLogLevel   = "info"
	defaultEnv        = "dev"

	configPathEnv = "DEALFINDER_CONFIG"
)

// ErrMissingCredentials is returned by RequireEBay when the marketplace
// credentials are absent or still unexpanded placeholders.
var ErrMissingCredentials = errors.New("missing eBay credentials")

// Config holds application configuration sourced from config.yaml, .env and
// the process environment, in increasing order of precedence.
type Config struct {
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`

	Server         ServerConfig     `yaml:"server"`
	EBay           EBayConfig       `yaml:"ebay"`
	Search         SearchConfig     `yaml:"search"`
	TCOAssumptions tco.Assumptions  `yaml:"tco_assumptions"`
	Benchmarks     BenchmarksConfig `yaml:"benchmarks"`
	Alerts         AlertsConfig     `yaml:"alerts"`
	Mailgun        MailgunConfig    `yaml:"mailgun"`

	// Warnings collects problems found while loading; the caller logs them
	// once a logger exists.
	Warnings []string `yaml:"-"`
}

type ServerConfig struct {
	Port          string `yaml:"port"`
	DBPath        string `yaml:"db_path"`
	SessionSecret string `yaml:"session_secret"`
	AdminEmail    string `yaml:"admin_email"`
	AdminPassword string `yaml:"admin_password"`
}

type EBayConfig struct {
	AppID   string `yaml:"app_id"`
	CertID  string `yaml:"cert_id"`
	Sandbox bool   `yaml:"sandbox"`
}

type SearchConfig struct {
	Keywords    string  `yaml:"keywords"`
	CategoryID  string  `yaml:"category_id"`
	MaxPrice    float64 `yaml:"max_price"`
	FullSearch  bool    `yaml:"full_search"`
	Concurrency int     `yaml:"concurrency"`
}

// Terms splits the comma separated keyword list.
func (s SearchConfig) Terms() []string {
	var out []string
	for _, t := range strings.Split(s.Keywords, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

type BenchmarksConfig struct {
	PassmarkPath  string `yaml:"passmark_path"`
	IdlePowerPath string `yaml:"idle_power_path"`
}

type AlertsConfig struct {
	MinPerfPerDollar float64  `yaml:"min_perf_per_dollar"`
	Recipients       []string `yaml:"recipients"`
	From             string   `yaml:"from"`
	Subject          string   `yaml:"subject"`

	// DailyAt is the HH:MM local time of the scheduled alert run.
	DailyAt  string `yaml:"daily_at"`
	Timezone string `yaml:"timezone"`
}

type MailgunConfig struct {
	APIKey  string `yaml:"api_key"`
	Domain  string `yaml:"domain"`
	BaseURL string `yaml:"base_url"`
}

// DefaultAssumptions are the TCO assumptions used when the config file does
// not provide them.
func DefaultAssumptions() tco.Assumptions {
	return tco.Assumptions{
		KWhCost:                0.10,
		LifespanYears:          5,
		ShippingCostTCPU:       10,
		ShippingCostNonTCPU:    35,
		RequiredRAMGB:          16,
		RAMUpgradeFlatCost:     30,
		RequiredStorageGB:      128,
		StorageUpgradeFlatCost: 15,
	}
}

func defaultConfig() Config {
	return Config{
		Env:      defaultEnv,
		LogLevel: defaultLogLevel,
		Server: ServerConfig{
			Port:   defaultPort,
			DBPath: defaultDBPath,
		},
		Search: SearchConfig{
			CategoryID:  "179",
			MaxPrice:    300,
			Concurrency: 4,
		},
		TCOAssumptions: DefaultAssumptions(),
		Benchmarks: BenchmarksConfig{
			PassmarkPath:  "data/passmark.txt",
			IdlePowerPath: "data/idlepower.txt",
		},
		Alerts: AlertsConfig{
			MinPerfPerDollar: 40,
			Subject:          "Homelab Deal Alert: new high Perf/$ listings",
			DailyAt:          "08:00",
			Timezone:         "America/New_York",
		},
		Mailgun: MailgunConfig{
			BaseURL: "https://api.mailgun.net/v3",
		},
	}
}

// Load reads .env (if present), the YAML file named by DEALFINDER_CONFIG
// (config.yaml by default, optional) and the environment overrides.
func Load() (Config, error) {
	return LoadPath("")
}

// LoadPath is Load with an explicit YAML path; empty means the default lookup.
func LoadPath(path string) (Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path == "" {
		path = defaultConfigPath
	}
	return LoadFile(path)
}

// LoadFile is Load without the .env step, reading YAML from path.
func LoadFile(path string) (Config, error) {
	cfg := defaultConfig()

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("config file %s not found, using defaults", path))
	case err != nil:
		return Config{}, fmt.Errorf("read config file: %w", err)
	default:
		if err := cfg.decode(raw); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.validate()
	return cfg, nil
}

// decode unmarshals raw over the defaults after expanding ${VAR} references.
func (c *Config) decode(raw []byte) error {
	expanded := os.Expand(string(raw), func(name string) string {
		v, ok := os.LookupEnv(name)
		if !ok || v == "" {
			c.Warnings = append(c.Warnings, fmt.Sprintf("environment variable %s not found", name))
			return ""
		}
		return v
	})

	var present struct {
		TCOAssumptions map[string]any `yaml:"tco_assumptions"`
	}
	if err := yaml.Unmarshal([]byte(expanded), &present); err != nil {
		return err
	}
	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return err
	}
	c.TCOAssumptions = c.TCOAssumptions.Normalize()

	for _, field := range tco.Fields {
		if _, ok := present.TCOAssumptions[field]; !ok {
			c.Warnings = append(c.Warnings, fmt.Sprintf("tco_assumptions.%s not set, using default", field))
		}
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	setString(&c.Env, "APP_ENV")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.Server.Port, "PORT")
	setString(&c.Server.DBPath, "DB_PATH")
	setString(&c.Server.SessionSecret, "SESSION_SECRET")
	setString(&c.Server.AdminEmail, "ADMIN_EMAIL")
	setString(&c.Server.AdminPassword, "ADMIN_PASSWORD")
	setString(&c.EBay.AppID, "EBAY_APP_ID")
	setString(&c.EBay.CertID, "EBAY_CERT_ID")
	setString(&c.Mailgun.APIKey, "MAILGUN_API_KEY")
	setString(&c.Mailgun.Domain, "MAILGUN_DOMAIN")

	if v := os.Getenv("SEARCH_FULL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Search.FullSearch = b
		} else {
			c.Warnings = append(c.Warnings, fmt.Sprintf("SEARCH_FULL=%q is not a boolean", v))
		}
	}
}

func (c *Config) validate() {
	if c.Server.SessionSecret == "" {
		c.Warnings = append(c.Warnings, "SESSION_SECRET is not set")
	}
	if c.Search.Concurrency < 1 {
		c.Search.Concurrency = 1
	}
}

// IsDev reports whether the app runs in development mode, where migrations
// are applied on start.
func (c Config) IsDev() bool {
	return c.Env == "" || strings.EqualFold(c.Env, defaultEnv) || strings.EqualFold(c.Env, "development")
}

// RequireEBay checks that the marketplace credentials are usable.
func (c Config) RequireEBay() error {
	for _, v := range []string{c.EBay.AppID, c.EBay.CertID} {
		if v == "" || strings.HasPrefix(v, "${") {
			return ErrMissingCredentials
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
