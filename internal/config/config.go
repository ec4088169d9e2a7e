package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"ETFPal/internal/model"
)

// Instrument is one tracked fund as written in YAML.
type Instrument struct {
	Name   string `yaml:"name" validate:"required"`
	Symbol string `yaml:"symbol" validate:"required"`
}

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token" validate:"required_with=ChatID"`
		ChatID   string `yaml:"chat_id" validate:"required_with=BotToken"`
	} `yaml:"telegram"`
	DataSource struct {
		Provider string `yaml:"provider" validate:"oneof=provider yahoo mock"`
		BaseURL  string `yaml:"base_url" validate:"required_if=Provider provider"`
		APIKey   string `yaml:"api_key"`
	} `yaml:"data_source"`
	Instruments []Instrument `yaml:"instruments" validate:"len=2,dive"`
	Investment  struct {
		Cadence             string   `yaml:"cadence"`
		AnchorDay           int      `yaml:"anchor_day"`
		WeeklyIncreaseRate  *float64 `yaml:"weekly_increase_rate"`
		MonthlyIncreaseRate *float64 `yaml:"monthly_increase_rate"`
		BaseAmount          float64  `yaml:"base_amount"`
		StreakRule          string   `yaml:"streak_rule"`
		RateMode            string   `yaml:"rate_mode"`
		MonthEnd            string   `yaml:"month_end"`
		UpMonthsWarning     int      `yaml:"up_months_warning"`
	} `yaml:"investment"`
	Schedule struct {
		AdviceCron   string `yaml:"advice_cron" validate:"required"`
		ReminderCron string `yaml:"reminder_cron"`
	} `yaml:"schedule"`
	Ledger struct {
		Backend string `yaml:"backend" validate:"oneof=file sqlite"`
		Path    string `yaml:"path"`
	} `yaml:"ledger"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Timezone string `yaml:"timezone"`
	Log      struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// CronParser parses the six-field (with seconds) specs used by the scheduler.
var CronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

var validate = validator.New()

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString := map[string]*string{
		"TELEGRAM_BOT_TOKEN": &c.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":   &c.Telegram.ChatID,
		"DATA_PROVIDER":      &c.DataSource.Provider,
		"DATA_BASE_URL":      &c.DataSource.BaseURL,
		"DATA_API_KEY":       &c.DataSource.APIKey,
		"HTTPS_PROXY":        &c.Proxy,
		"INVEST_CADENCE":     &c.Investment.Cadence,
		"STREAK_RULE":        &c.Investment.StreakRule,
		"CRON_ADVICE":        &c.Schedule.AdviceCron,
		"CRON_REMINDER":      &c.Schedule.ReminderCron,
		"LEDGER_BACKEND":     &c.Ledger.Backend,
		"LEDGER_PATH":        &c.Ledger.Path,
		"SQLITE_PATH":        &c.Database.SQLitePath,
		"METRICS_ADDR":       &c.Metrics.Addr,
		"ETFPAL_TIMEZONE":    &c.Timezone,
		"LOG_LEVEL":          &c.Log.Level,
	}
	for env, dst := range setString {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("ANCHOR_DAY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ANCHOR_DAY: %w", err)
		}
		c.Investment.AnchorDay = n
	}
	if v := os.Getenv("BASE_AMOUNT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("BASE_AMOUNT: %w", err)
		}
		c.Investment.BaseAmount = f
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.DataSource.Provider == "" {
		if c.DataSource.BaseURL != "" {
			c.DataSource.Provider = "provider"
		} else {
			c.DataSource.Provider = "yahoo"
		}
	}
	if len(c.Instruments) == 0 {
		c.Instruments = []Instrument{
			{Name: "nasdaq", Symbol: "QQQ"},
			{Name: "sp500", Symbol: "SPY"},
		}
	}
	if c.Investment.Cadence == "" {
		c.Investment.Cadence = string(model.CadenceWeekly)
	}
	if c.Investment.AnchorDay == 0 && c.Investment.Cadence != string(model.CadenceDaily) {
		// Tuesday for weekly, the 1st for monthly.
		if c.Investment.Cadence == string(model.CadenceMonthly) {
			c.Investment.AnchorDay = 1
		} else {
			c.Investment.AnchorDay = 2
		}
	}
	if c.Investment.WeeklyIncreaseRate == nil {
		c.Investment.WeeklyIncreaseRate = ptr(10.0)
	}
	if c.Investment.MonthlyIncreaseRate == nil {
		c.Investment.MonthlyIncreaseRate = ptr(10.0)
	}
	if c.Investment.BaseAmount == 0 {
		c.Investment.BaseAmount = 100
	}
	if c.Investment.StreakRule == "" {
		c.Investment.StreakRule = string(model.RuleCloseOverClose)
	}
	if c.Investment.RateMode == "" {
		c.Investment.RateMode = string(model.RateAdditive)
	}
	if c.Investment.MonthEnd == "" {
		c.Investment.MonthEnd = string(model.MonthEndRoll)
	}
	if c.Schedule.AdviceCron == "" {
		c.Schedule.AdviceCron = "0 0 9 * * *"
	}
	if c.Ledger.Backend == "" {
		c.Ledger.Backend = "file"
	}
	if c.Ledger.Path == "" {
		c.Ledger.Path = "data/ledger.json"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/etfpal.db"
	}
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := c.InvestmentConfig(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if _, err := CronParser.Parse(c.Schedule.AdviceCron); err != nil {
		return fmt.Errorf("schedule.advice_cron: %w", err)
	}
	if c.Schedule.ReminderCron != "" {
		if _, err := CronParser.Parse(c.Schedule.ReminderCron); err != nil {
			return fmt.Errorf("schedule.reminder_cron: %w", err)
		}
	}
	if c.Ledger.Backend == "sqlite" && c.Database.SQLitePath == "" {
		return errors.New("ledger.backend sqlite requires database.sqlite_path")
	}
	if c.Instruments[0].Name == c.Instruments[1].Name {
		return fmt.Errorf("instruments: duplicate name %q", c.Instruments[0].Name)
	}
	return nil
}

// InvestmentConfig converts the investment section into a validated model config.
func (c *Config) InvestmentConfig() (model.InvestmentConfig, error) {
	inv := model.InvestmentConfig{
		Cadence:             model.Cadence(strings.ToLower(c.Investment.Cadence)),
		AnchorDay:           c.Investment.AnchorDay,
		WeeklyIncreaseRate:  rate(c.Investment.WeeklyIncreaseRate),
		MonthlyIncreaseRate: rate(c.Investment.MonthlyIncreaseRate),
		BaseAmount:          decimal.NewFromFloat(c.Investment.BaseAmount),
		StreakRule:          model.StreakRule(c.Investment.StreakRule),
		RateMode:            model.RateMode(c.Investment.RateMode),
		MonthEnd:            model.MonthEndPolicy(c.Investment.MonthEnd),
		UpMonthsWarning:     c.Investment.UpMonthsWarning,
	}
	if err := inv.Validate(); err != nil {
		return model.InvestmentConfig{}, err
	}
	return inv, nil
}

// Location loads the calendar frame every date is computed in.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// InstrumentList returns the instruments as model values, in config order.
func (c *Config) InstrumentList() []model.Instrument {
	out := make([]model.Instrument, len(c.Instruments))
	for i, inst := range c.Instruments {
		out[i] = model.Instrument{Name: inst.Name, Symbol: inst.Symbol}
	}
	return out
}

// TelegramEnabled reports whether bot credentials are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

func ptr[T any](v T) *T { return &v }

func rate(v *float64) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*v)
}
