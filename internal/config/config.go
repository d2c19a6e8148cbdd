package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/Veraticus/runway/internal/common"
	"github.com/Veraticus/runway/internal/engine"
	"github.com/Veraticus/runway/internal/income"
	"github.com/Veraticus/runway/internal/model"
	"github.com/Veraticus/runway/internal/plaid"
	"github.com/Veraticus/runway/internal/sheets"
	"github.com/Veraticus/runway/internal/simplefin"
)

// Config is the fully resolved application configuration.
type Config struct {
	Plaid      plaid.Config
	SimpleFIN  simplefin.Config
	Logging    LoggingConfig
	Database   DatabaseConfig
	Server     ServerConfig
	SyncSource string
	Sheets     sheets.Config
	Engine     engine.Config
	SyncDays   int
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string
}

// LoggingConfig configures the default slog handler.
type LoggingConfig struct {
	Level  string
	Format string
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		Engine:     engine.DefaultConfig(),
		Database:   DatabaseConfig{Path: "~/.local/share/runway/runway.db"},
		Server:     ServerConfig{Addr: "localhost:8080"},
		Plaid:      plaid.Config{Environment: "sandbox"},
		Sheets:     sheets.DefaultConfig(),
		Logging:    LoggingConfig{Level: "info", Format: "console"},
		SyncSource: "plaid",
		SyncDays:   90,
	}
}

// Load maps viper keys onto the typed configuration. Keys that are not set
// keep their defaults. The result is validated except for the Plaid and
// Sheets sections, which only the commands using them require.
func Load(v *viper.Viper) (*Config, error) {
	cfg := Defaults()
	l := loader{v: v}

	l.setInt("recurrence.min_occurrences", &cfg.Engine.Recurrence.MinOccurrences)
	l.setFloat("recurrence.max_stddev_ratio", &cfg.Engine.Recurrence.MaxStdDevRatio)
	l.setFloat("recurrence.deviation_tolerance", &cfg.Engine.Recurrence.DeviationTolerance)
	l.setFloat("recurrence.min_confidence", &cfg.Engine.Recurrence.MinConfidence)
	l.setFloat("recurrence.amount_bucket_ratio", &cfg.Engine.Recurrence.AmountBucketRatio)
	for _, freq := range model.Frequencies {
		days := cfg.Engine.Recurrence.StalenessDays[freq]
		l.setInt("recurrence.staleness_days."+string(freq), &days)
		cfg.Engine.Recurrence.StalenessDays[freq] = days
	}

	if v.IsSet("income.policy") {
		cfg.Engine.Income.Policy = income.Policy(v.GetString("income.policy"))
	}
	if v.IsSet("income.markers") {
		cfg.Engine.Income.Markers = v.GetStringSlice("income.markers")
	}
	l.setDecimal("income.payroll_multiplier", &cfg.Engine.Income.PayrollMultiplier)

	l.setDecimal("projection.threshold_enough", &cfg.Engine.Projection.ThresholdEnough)
	l.setDecimal("projection.threshold_too_much", &cfg.Engine.Projection.ThresholdTooMuch)
	l.setDecimal("projection.default_paycheck_amount", &cfg.Engine.Projection.DefaultPaycheckAmount)
	l.setInt("projection.horizon_days", &cfg.Engine.Projection.HorizonDays)
	l.setInt("projection.pay_period_days", &cfg.Engine.Projection.PayPeriodDays)

	if v.IsSet("engine.cache_ttl") {
		cfg.Engine.CacheTTL = v.GetDuration("engine.cache_ttl")
	}
	if v.IsSet("engine.cache_max_cost") {
		cfg.Engine.CacheMaxCost = v.GetInt64("engine.cache_max_cost")
	}

	l.setString("database.path", &cfg.Database.Path)
	cfg.Database.Path = ExpandPath(cfg.Database.Path)
	l.setString("server.addr", &cfg.Server.Addr)
	l.setString("logging.level", &cfg.Logging.Level)
	l.setString("logging.format", &cfg.Logging.Format)

	l.setString("plaid.client_id", &cfg.Plaid.ClientID)
	l.setString("plaid.secret", &cfg.Plaid.Secret)
	l.setString("plaid.environment", &cfg.Plaid.Environment)
	l.setString("plaid.access_token", &cfg.Plaid.AccessToken)
	l.setInt("plaid.sync_days", &cfg.SyncDays)
	l.setString("sync.source", &cfg.SyncSource)

	l.setString("simplefin.access_url", &cfg.SimpleFIN.AccessURL)
	l.setString("simplefin.token", &cfg.SimpleFIN.Token)
	l.setString("simplefin.state_file", &cfg.SimpleFIN.StateFile)
	cfg.SimpleFIN.StateFile = ExpandPath(cfg.SimpleFIN.StateFile)

	loadSheets(&l, &cfg.Sheets)

	if l.err != nil {
		return nil, l.err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the sections every command depends on.
func (c *Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return err
	}
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path is required", common.ErrMissingConfig)
	}
	switch c.SyncSource {
	case "plaid", "simplefin":
	default:
		return fmt.Errorf("%w: sync.source must be plaid or simplefin", common.ErrInvalidConfig)
	}
	if c.SyncDays <= 0 {
		return fmt.Errorf("%w: plaid.sync_days must be positive", common.ErrInvalidConfig)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: logging.format must be console or json", common.ErrInvalidConfig)
	}
	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// loadSheets reads the sheets section, falling back to GOOGLE_SHEETS_*
// environment variables for anything the config leaves empty.
func loadSheets(l *loader, cfg *sheets.Config) {
	l.setString("sheets.service_account_path", &cfg.ServiceAccountPath)
	l.setString("sheets.client_id", &cfg.ClientID)
	l.setString("sheets.client_secret", &cfg.ClientSecret)
	l.setString("sheets.refresh_token", &cfg.RefreshToken)
	l.setString("sheets.token_file", &cfg.TokenFile)
	l.setString("sheets.spreadsheet_id", &cfg.SpreadsheetID)
	l.setString("sheets.spreadsheet_name", &cfg.SpreadsheetName)
	l.setString("sheets.time_zone", &cfg.TimeZone)

	fallback := map[string]*string{
		"GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH": &cfg.ServiceAccountPath,
		"GOOGLE_SHEETS_CLIENT_ID":            &cfg.ClientID,
		"GOOGLE_SHEETS_CLIENT_SECRET":        &cfg.ClientSecret,
		"GOOGLE_SHEETS_REFRESH_TOKEN":        &cfg.RefreshToken,
		"GOOGLE_SHEETS_SPREADSHEET_ID":       &cfg.SpreadsheetID,
	}
	for env, dst := range fallback {
		if *dst == "" {
			*dst = os.Getenv(env)
		}
	}

	cfg.ServiceAccountPath = ExpandPath(cfg.ServiceAccountPath)
	cfg.TokenFile = ExpandPath(cfg.TokenFile)
}

// loader records the first conversion error so Load can report it once.
type loader struct {
	v   *viper.Viper
	err error
}

func (l *loader) setString(key string, dst *string) {
	if l.v.IsSet(key) {
		*dst = strings.TrimSpace(l.v.GetString(key))
	}
}

func (l *loader) setInt(key string, dst *int) {
	if l.v.IsSet(key) {
		*dst = l.v.GetInt(key)
	}
}

func (l *loader) setFloat(key string, dst *float64) {
	if l.v.IsSet(key) {
		*dst = l.v.GetFloat64(key)
	}
}

func (l *loader) setDecimal(key string, dst *decimal.Decimal) {
	if !l.v.IsSet(key) {
		return
	}
	d, err := decimal.NewFromString(strings.TrimSpace(l.v.GetString(key)))
	if err != nil {
		if l.err == nil {
			l.err = fmt.Errorf("%w: %s: %w", common.ErrInvalidConfig, key, err)
		}
		return
	}
	*dst = d
}
