// Package config provides centralized configuration management.
//
// Configuration is assembled from, in increasing precedence:
//  1. built-in defaults
//  2. an optional YAML file (environment references like ${X} are expanded)
//  3. environment variables, which may come from a .env file
//
// Example usage:
//
//	_ = config.LoadDotEnv(".env")
//	cfg, err := config.Load(path)
//	err = cfg.Validate(config.NeedSheet, config.NeedMaildir)
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissingSetting is returned by Validate when a required setting is empty.
var ErrMissingSetting = errors.New("missing required setting")

// Config represents the entire application configuration
type Config struct {
	Sheet   SheetConfig   `yaml:"sheet"`
	Mail    MailConfig    `yaml:"mail"`
	Gemini  GeminiConfig  `yaml:"gemini"`
	Schemes SchemesConfig `yaml:"schemes"`
	Clerk   ClerkConfig   `yaml:"clerk"`
	Archive ArchiveConfig `yaml:"archive"`
	RunLog  RunLogConfig  `yaml:"runlog"`
	HTTP    HTTPConfig    `yaml:"http"`
	Jobs    JobsConfig    `yaml:"jobs"`
	Log     LogConfig     `yaml:"log"`

	// CategoryMapFile is the keyword,category list used by marksman.
	CategoryMapFile string `yaml:"category_map_file"`
}

// SheetConfig holds spreadsheet access settings
type SheetConfig struct {
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	CredentialsFile string `yaml:"credentials_file"`
}

// MailConfig holds maildir settings
type MailConfig struct {
	MaildirPath  string `yaml:"maildir_path"`
	ProcessedDir string `yaml:"processed_dir"`
}

// GeminiConfig holds the AI-assisted scheme settings
type GeminiConfig struct {
	APIKey   string   `yaml:"api_key"`
	Model    string   `yaml:"model"`
	Accounts []string `yaml:"accounts"`
	Skips    []string `yaml:"skips"`
}

// SchemesConfig holds the account labels of the pattern-based schemes
type SchemesConfig struct {
	RakutenAccount string `yaml:"rakuten_account"`
	OCBCAccount    string `yaml:"ocbc_account"`
}

// ClerkConfig holds the manual entry service settings
type ClerkConfig struct {
	Port      int    `yaml:"port"`
	StaticDir string `yaml:"static_dir"`
}

// ArchiveConfig holds the raw mail archive settings
type ArchiveConfig struct {
	Bucket string `yaml:"bucket"`
}

// RunLogConfig selects where parsing runs are recorded
type RunLogConfig struct {
	Backend         string `yaml:"backend"` // none, sqlite or bigquery
	SQLitePath      string `yaml:"sqlite_path"`
	BigQueryProject string `yaml:"bigquery_project"`
	BigQueryDataset string `yaml:"bigquery_dataset"`
}

// HTTPConfig holds outbound HTTP settings
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	RetryMax      int           `yaml:"retry_max"`
	RatePerSecond float64       `yaml:"rate_per_second"`
}

// JobsConfig holds the ingest job queue settings
type JobsConfig struct {
	BufferSize int           `yaml:"buffer_size"`
	MaxRetries int           `yaml:"max_retries"`
	Backoff    time.Duration `yaml:"backoff"`
	Debounce   time.Duration `yaml:"debounce"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// Run log backends.
const (
	RunLogNone     = "none"
	RunLogSQLite   = "sqlite"
	RunLogBigQuery = "bigquery"
)

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Gemini: GeminiConfig{
			Model:    "gemini-2.0-flash",
			Accounts: []string{"Rakuten", "OCBC", "BCA", "Jenius"},
			Skips: []string{
				"デイリーヤマザキアプ",
				"ローソンアプリ",
				"ファミリーマートアプ",
				"楽天ペイアプリセブン",
			},
		},
		Schemes: SchemesConfig{
			RakutenAccount: "Rakuten",
			OCBCAccount:    "OCBC",
		},
		Clerk: ClerkConfig{
			Port:      7000,
			StaticDir: "clerk-fe-public",
		},
		RunLog: RunLogConfig{
			Backend:         RunLogNone,
			SQLitePath:      "negi-runs.db",
			BigQueryDataset: "negi",
		},
		HTTP: HTTPConfig{
			Timeout: 60 * time.Second,
		},
		Jobs: JobsConfig{
			BufferSize: 16,
			MaxRetries: 2,
			Backoff:    30 * time.Second,
			Debounce:   2 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadDotEnv loads variables from a .env file without overriding ones
// already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Load builds the configuration. An empty path skips the YAML file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Sheet.SpreadsheetID, "SPREADSHEET_ID")
	setString(&c.Sheet.CredentialsFile, "GOOGLE_APPLICATION_CREDENTIALS")
	setString(&c.Mail.MaildirPath, "MAILDIR_PATH")
	setString(&c.Mail.ProcessedDir, "PROCESSED_MAIL_DIR")
	setString(&c.CategoryMapFile, "CATEGORY_MAP_FILE")
	setString(&c.Clerk.StaticDir, "CLERK_STATIC_DIR")
	setString(&c.Gemini.APIKey, "GEMINI_API_KEY")
	setString(&c.Gemini.Model, "GEMINI_MODEL")
	setList(&c.Gemini.Accounts, "GEMINI_ACCOUNTS")
	setList(&c.Gemini.Skips, "GEMINI_SKIPS")
	setString(&c.Archive.Bucket, "ARCHIVE_BUCKET")
	setString(&c.RunLog.Backend, "RUNLOG_BACKEND")
	setString(&c.RunLog.SQLitePath, "RUNLOG_SQLITE_PATH")
	setString(&c.RunLog.BigQueryProject, "BIGQUERY_PROJECT")
	setString(&c.RunLog.BigQueryDataset, "BIGQUERY_DATASET")
	setString(&c.Log.Level, "LOG_LEVEL")

	if err := setInt(&c.Clerk.Port, "CLERK_PORT"); err != nil {
		return err
	}
	if err := setDuration(&c.HTTP.Timeout, "HTTP_TIMEOUT"); err != nil {
		return err
	}
	if err := setInt(&c.HTTP.RetryMax, "HTTP_RETRY_MAX"); err != nil {
		return err
	}
	if err := setFloat(&c.HTTP.RatePerSecond, "HTTP_RATE_PER_SECOND"); err != nil {
		return err
	}
	return nil
}

func setString(dst *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

// setList reads a comma separated list. Setting the variable to a lone
// comma clears the list.
func setList(dst *[]string, key string) {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

func setInt(dst *int, key string) error {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, key string) error {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}

// setDuration accepts Go durations ("90s") or a bare number of seconds.
func setDuration(dst *time.Duration, key string) error {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	if secs, err := strconv.Atoi(val); err == nil {
		*dst = time.Duration(secs) * time.Second
		return nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

// Need names a group of settings a command depends on.
type Need int

const (
	NeedSheet Need = iota
	NeedMaildir
	NeedCategoryMap
	NeedRunLog
)

// Validate checks that every setting required by needs is present.
func (c *Config) Validate(needs ...Need) error {
	var missing []string
	for _, need := range needs {
		switch need {
		case NeedSheet:
			if c.Sheet.SpreadsheetID == "" {
				missing = append(missing, "SPREADSHEET_ID")
			}
		case NeedMaildir:
			if c.Mail.MaildirPath == "" {
				missing = append(missing, "MAILDIR_PATH")
			}
		case NeedCategoryMap:
			if c.CategoryMapFile == "" {
				missing = append(missing, "CATEGORY_MAP_FILE")
			}
		case NeedRunLog:
			switch c.RunLog.Backend {
			case RunLogNone, "":
			case RunLogSQLite:
				if c.RunLog.SQLitePath == "" {
					missing = append(missing, "RUNLOG_SQLITE_PATH")
				}
			case RunLogBigQuery:
				if c.RunLog.BigQueryProject == "" {
					missing = append(missing, "BIGQUERY_PROJECT")
				}
			default:
				return fmt.Errorf("unknown run log backend %q", c.RunLog.Backend)
			}
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingSetting, strings.Join(missing, ", "))
	}
	return nil
}

// GeminiEnabled reports whether the AI-assisted scheme can run.
func (c *Config) GeminiEnabled() bool {
	return c.Gemini.APIKey != "" && len(c.Gemini.Accounts) > 0
}
