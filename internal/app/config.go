package app

import (
	"fmt"
	"strings"

	coreconfig "github.com/m3rciful/schoolbot/core/config"
	coredatabase "github.com/m3rciful/schoolbot/core/database"
)

// SchoolConfig holds the settings of the school bot itself.
type SchoolConfig struct {
	AdminSecret string `yaml:"admin_secret" envconfig:"ADMIN_PASS"`
	// ChannelID is the public channel, either "@name" or a numeric id.
	ChannelID string `yaml:"channel_id" envconfig:"CHANNEL_ID"`
	// ChannelURL is shown on the join button; derived from an "@name" ChannelID when empty.
	ChannelURL string `yaml:"channel_url" envconfig:"CHANNEL_URL"`
	// SupportID receives support tickets. Zero disables forwarding.
	SupportID         int64   `yaml:"support_id" envconfig:"SUPPORT_ID"`
	RecentPosts       int     `yaml:"recent_posts" envconfig:"RECENT_COUNT"`
	ResultsFile       string  `yaml:"results_file" envconfig:"RESULTS_FILE"`
	ResultsTTLSeconds int     `yaml:"results_ttl_seconds" envconfig:"RESULTS_TTL_SECONDS"`
	BroadcastRate     float64 `yaml:"broadcast_rate" envconfig:"BROADCAST_RATE"`
}

// Config is the complete configuration of the bot.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
	School   SchoolConfig        `yaml:"school"`
}

const (
	defaultRecentPosts   = 5
	defaultResultsFile   = "results.csv"
	defaultResultsTTL    = 60
	defaultBroadcastRate = 25
	defaultSQLitePath    = "data/schoolbot.db"
)

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Load reads the YAML file at path, overlays the environment and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates required fields and fills defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}

	if c.Database.Driver == "" {
		c.Database.Driver = coredatabase.DriverSQLite
	}
	switch c.Database.Driver {
	case coredatabase.DriverSQLite:
		if c.Database.Path == "" {
			c.Database.Path = defaultSQLitePath
		}
	case coredatabase.DriverPostgres:
	default:
		return fmt.Errorf("invalid database.driver %q; allowed: postgres, sqlite", c.Database.Driver)
	}

	s := &c.School
	s.AdminSecret = strings.TrimSpace(s.AdminSecret)
	if s.AdminSecret == "" {
		return fmt.Errorf("school.admin_secret is required")
	}
	s.ChannelID = strings.TrimSpace(s.ChannelID)
	if s.ChannelID == "" {
		return fmt.Errorf("school.channel_id is required")
	}
	if s.ChannelURL == "" && strings.HasPrefix(s.ChannelID, "@") {
		s.ChannelURL = "https://t.me/" + strings.TrimPrefix(s.ChannelID, "@")
	}
	if s.RecentPosts <= 0 {
		s.RecentPosts = defaultRecentPosts
	}
	if s.ResultsFile == "" {
		s.ResultsFile = defaultResultsFile
	}
	if s.ResultsTTLSeconds <= 0 {
		s.ResultsTTLSeconds = defaultResultsTTL
	}
	switch {
	case s.BroadcastRate < 0:
		return fmt.Errorf("school.broadcast_rate must be >= 0")
	case s.BroadcastRate == 0:
		s.BroadcastRate = defaultBroadcastRate
	}
	return nil
}
