// Package config loads banquet's YAML configuration and the environment overrides that
// deployments use instead of editing the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/julianstephens/banquet/internal/calendar"
	"github.com/julianstephens/banquet/internal/constants"
	"github.com/julianstephens/banquet/internal/models"
)

// FileName is the config file kept in the config directory.
const FileName = "config.yaml"

// KeyringSource in the storage field means the connection string lives in the OS keyring.
const KeyringSource = "keyring"

// Environment overrides.
const (
	EnvStorage    = "BANQUET_DB"
	EnvTimezone   = "BANQUET_TIMEZONE"
	EnvLockInRule = "BANQUET_LOCK_IN_RULE"
	EnvListen     = "BANQUET_LISTEN"
	EnvRedisAddr  = "BANQUET_REDIS_ADDR"
	EnvRedisPass  = "BANQUET_REDIS_PASSWORD"
	EnvStatusDays = "BANQUET_STATUS_DAYS"
	EnvStatusCron = "BANQUET_STATUS_CRON"
)

type RedisConfig struct {
	Addr     string `yaml:"addr,omitempty" validate:"omitempty,hostname_port"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty" validate:"min=0,max=15"`
	// LockTTL bounds how long a crashed writer can hold a hotel lock.
	LockTTL time.Duration `yaml:"lock_ttl,omitempty"`
}

// Enabled reports whether hotel locks are shared through Redis.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

type RateLimitConfig struct {
	// PerSecond is the sustained request rate allowed per client address.
	PerSecond float64 `yaml:"per_second" validate:"gte=0"`
	Burst     int     `yaml:"burst" validate:"gte=0"`
}

// Config is the top-level application configuration.
type Config struct {
	// Timezone is the IANA zone that decides what "today" is.
	Timezone string `yaml:"timezone" validate:"required,timezone"`

	// LockInRule is weekly or weekly-or-month-end.
	LockInRule string `yaml:"lock_in_rule" validate:"oneof=weekly weekly-or-month-end"`

	// Storage is a file path (.json or .db) or a postgres:// or mongodb:// URL. Empty
	// selects the SQLite database in the config directory; "keyring" reads the
	// connection string from the OS keyring.
	Storage string `yaml:"storage,omitempty"`

	Listen     string          `yaml:"listen" validate:"required,hostname_port"`
	Redis      RedisConfig     `yaml:"redis,omitempty"`
	RateLimit  RateLimitConfig `yaml:"rate_limit"`
	StatusDays int             `yaml:"status_days" validate:"min=1,max=31"`
	// StatusCron schedules the status digest logged by serve.
	StatusCron string `yaml:"status_cron"`
	Retries    int    `yaml:"commit_retries" validate:"min=1,max=10"`

	Vocabulary models.Vocabulary `yaml:"vocabulary"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func DefaultConfig() *Config {
	return &Config{
		Timezone:   constants.DefaultTimezone,
		LockInRule: constants.LockInWeekly,
		Listen:     constants.DefaultListen,
		RateLimit:  RateLimitConfig{PerSecond: 5, Burst: 20},
		StatusDays: constants.DefaultStatusDays,
		StatusCron: constants.DefaultStatusCron,
		Retries:    constants.DefaultCommitRetries,
		Vocabulary: models.DefaultVocabulary(),
	}
}

// Normalize fills zero values with defaults so partial files still load.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.LockInRule == "" {
		c.LockInRule = def.LockInRule
	}
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.RateLimit.PerSecond == 0 && c.RateLimit.Burst == 0 {
		c.RateLimit = def.RateLimit
	}
	if c.StatusDays <= 0 {
		c.StatusDays = def.StatusDays
	}
	if c.StatusCron == "" {
		c.StatusCron = def.StatusCron
	}
	if c.Retries <= 0 {
		c.Retries = def.Retries
	}
	if len(c.Vocabulary.EventTypes) == 0 {
		c.Vocabulary.EventTypes = def.Vocabulary.EventTypes
	}
	if len(c.Vocabulary.MorningMeals) == 0 {
		c.Vocabulary.MorningMeals = def.Vocabulary.MorningMeals
	}
	if len(c.Vocabulary.EveningMeals) == 0 {
		c.Vocabulary.EveningMeals = def.Vocabulary.EveningMeals
	}
}

// Validate checks field constraints and that the status schedule parses.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
		}
		return err
	}
	if _, err := cron.ParseStandard(c.StatusCron); err != nil {
		return fmt.Errorf("invalid config: status_cron %q: %w", c.StatusCron, err)
	}
	return nil
}

func (c *Config) Rule() calendar.Rule {
	rule, err := calendar.ParseRule(c.LockInRule)
	if err != nil {
		return calendar.Weekly
	}
	return rule
}

func (c *Config) Clock() (calendar.Clock, error) {
	return calendar.NewClock(c.Timezone)
}

// Path returns the config file inside configDir.
func Path(configDir string) string {
	return filepath.Join(configDir, FileName)
}

// Load reads the config at path. A missing file is created with the defaults.
// Environment overrides are applied after the file and before validation.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		cfg = &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		cfg.Normalize()
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path with 0600 permissions via a temp file and rename.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".banquet-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// LoadEnvFiles loads .env files into the process environment. Missing files are
// skipped; variables already set win over the files.
func LoadEnvFiles(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides fields from BANQUET_* variables.
func (c *Config) ApplyEnv() error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	setString(EnvStorage, &c.Storage)
	setString(EnvTimezone, &c.Timezone)
	setString(EnvLockInRule, &c.LockInRule)
	setString(EnvListen, &c.Listen)
	setString(EnvRedisAddr, &c.Redis.Addr)
	setString(EnvRedisPass, &c.Redis.Password)
	setString(EnvStatusCron, &c.StatusCron)

	if v, ok := os.LookupEnv(EnvStatusDays); ok && v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvStatusDays, err)
		}
		c.StatusDays = days
	}
	return nil
}
