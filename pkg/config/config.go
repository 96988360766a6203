package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"deliveryScrapper/pkg/availability"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	// Base URL for the delivery slot booking page
	BaseURL = "https://ezakupy.tesco.pl/groceries/pl-PL/slots/delivery"

	DefaultPath     = "config.yaml"
	DefaultSchedule = "*/15 * * * *"
)

// Environment variables carrying the previous run's state
const (
	EnvPreviousDates = "PREVIOUS_DATES"
	EnvLastFound     = "LAST_FOUND_DATES_TIMESTAMP"
	EnvLastNotFound  = "LAST_NOT_FOUND_DATES_TIMESTAMP"
)

// Config holds the application configuration
type Config struct {
	BaseURL        string `yaml:"base_url"`
	Email          string `yaml:"email"`
	Password       string `yaml:"password"`
	Timezone       string `yaml:"timezone"`
	ScreenshotPath string `yaml:"screenshot_path"`

	TabDelayMs     int `yaml:"tab_delay_ms"`
	WaitTimeoutMs  int `yaml:"wait_timeout_ms"`
	GridTimeoutMs  int `yaml:"grid_timeout_ms"`
	RunTimeoutSecs int `yaml:"run_timeout_secs"`

	LineChannelToken string `yaml:"line_channel_token"`
	LineUserID       string `yaml:"line_user_id"`
	TelegramToken    string `yaml:"telegram_token"`
	TelegramChatID   int64  `yaml:"telegram_chat_id"`

	StateDB  string `yaml:"state_db"`
	Schedule string `yaml:"schedule"`
	LogLevel string `yaml:"log_level"`
	NoNotify bool   `yaml:"no_notify"`

	Selectors Selectors `yaml:"selectors"`
}

// Selectors are the CSS selectors of the booking UI
type Selectors struct {
	Email       string `yaml:"email"`
	Password    string `yaml:"password"`
	Submit      string `yaml:"submit"`
	Tabs        string `yaml:"tabs"`
	TabLink     string `yaml:"tab_link"`
	SpinnerDone string `yaml:"spinner_done"`
	Grid        string `yaml:"grid"`
	DateButton  string `yaml:"date_button"`
	Container   string `yaml:"container"`
}

// DefaultSelectors returns the selectors of the Tesco slot page
func DefaultSelectors() Selectors {
	return Selectors{
		Email:       "#email",
		Password:    "#password",
		Submit:      ".smart-submit-button .button",
		Tabs:        ".tabs .slot-selector--week-tabheader",
		TabLink:     ".slot-selector--week-tabheader-link",
		SpinnerDone: ".slot-selector .overlay-spinner--overlay:not(.open)",
		Grid:        ".slot-selector--week-tab .slot-grid__table",
		DateButton:  ".slot-grid__table .available-slot--button",
		Container:   ".slot-selector",
	}
}

// Default returns a config with every default applied
func Default() Config {
	return Config{
		BaseURL:        BaseURL,
		Timezone:       "Local",
		ScreenshotPath: "dates",
		TabDelayMs:     2000,
		WaitTimeoutMs:  12000,
		GridTimeoutMs:  4000,
		RunTimeoutSecs: 300,
		Schedule:       DefaultSchedule,
		LogLevel:       "info",
		Selectors:      DefaultSelectors(),
	}
}

// Load reads the YAML file at path (a missing file is fine) and applies
// environment overrides on top.
func Load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 - path is operator supplied
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config yaml: %w", err)
			}
		}
	}

	if lookup == nil {
		lookup = os.LookupEnv
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}
	applyDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"BASE_URL":           &cfg.BaseURL,
		"EMAIL":              &cfg.Email,
		"PASS":               &cfg.Password,
		"TZ_NAME":            &cfg.Timezone,
		"SCREENSHOT_PATH":    &cfg.ScreenshotPath,
		"LINE_CHANNEL_TOKEN": &cfg.LineChannelToken,
		"LINE_USER_ID":       &cfg.LineUserID,
		"TELEGRAM_TOKEN":     &cfg.TelegramToken,
		"STATE_DB":           &cfg.StateDB,
		"SCHEDULE":           &cfg.Schedule,
		"LOG_LEVEL":          &cfg.LogLevel,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"TAB_DELAY_MS":     &cfg.TabDelayMs,
		"WAIT_TIMEOUT_MS":  &cfg.WaitTimeoutMs,
		"GRID_TIMEOUT_MS":  &cfg.GridTimeoutMs,
		"RUN_TIMEOUT_SECS": &cfg.RunTimeoutSecs,
	}
	for key, dst := range ints {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("env %s: %w", key, err)
		}
		*dst = n
	}

	if v, ok := lookup("TELEGRAM_CHAT_ID"); ok && strings.TrimSpace(v) != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("env TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.TelegramChatID = id
	}
	return nil
}

// applyDefaults fills zero values left by a partial YAML file
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timezone == "" {
		cfg.Timezone = def.Timezone
	}
	if cfg.TabDelayMs <= 0 {
		cfg.TabDelayMs = def.TabDelayMs
	}
	if cfg.WaitTimeoutMs <= 0 {
		cfg.WaitTimeoutMs = def.WaitTimeoutMs
	}
	if cfg.GridTimeoutMs <= 0 {
		cfg.GridTimeoutMs = def.GridTimeoutMs
	}
	if cfg.RunTimeoutSecs <= 0 {
		cfg.RunTimeoutSecs = def.RunTimeoutSecs
	}
	if cfg.Schedule == "" {
		cfg.Schedule = def.Schedule
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}

	s, d := &cfg.Selectors, def.Selectors
	for _, p := range []struct {
		dst *string
		def string
	}{
		{&s.Email, d.Email},
		{&s.Password, d.Password},
		{&s.Submit, d.Submit},
		{&s.Tabs, d.Tabs},
		{&s.TabLink, d.TabLink},
		{&s.SpinnerDone, d.SpinnerDone},
		{&s.Grid, d.Grid},
		{&s.DateButton, d.DateButton},
		{&s.Container, d.Container},
	} {
		if *p.dst == "" {
			*p.dst = p.def
		}
	}
}

func (c Config) validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := cron.ParseStandard(c.Schedule); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", c.Schedule, err)
	}
	return nil
}

// RequireCredentials fails when the login credentials are missing
func (c Config) RequireCredentials() error {
	var missing []string
	if c.Email == "" {
		missing = append(missing, "EMAIL")
	}
	if c.Password == "" {
		missing = append(missing, "PASS")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing credentials: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Location resolves the configured timezone
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c Config) TabDelay() time.Duration    { return time.Duration(c.TabDelayMs) * time.Millisecond }
func (c Config) WaitTimeout() time.Duration { return time.Duration(c.WaitTimeoutMs) * time.Millisecond }
func (c Config) GridTimeout() time.Duration { return time.Duration(c.GridTimeoutMs) * time.Millisecond }
func (c Config) RunTimeout() time.Duration  { return time.Duration(c.RunTimeoutSecs) * time.Second }

// RunStateFromEnv builds the previous run's state from the environment
func RunStateFromEnv(lookup func(string) (string, bool), now time.Time) availability.RunState {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(key string) string {
		v, _ := lookup(key)
		return v
	}
	return availability.NewRunState(get(EnvPreviousDates), get(EnvLastFound), get(EnvLastNotFound), now)
}
