package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SPREADSHEET_ID", "GOOGLE_APPLICATION_CREDENTIALS", "MAILDIR_PATH", "PROCESSED_MAIL_DIR",
		"CATEGORY_MAP_FILE", "CLERK_PORT", "CLERK_STATIC_DIR", "GEMINI_API_KEY", "GEMINI_MODEL",
		"GEMINI_ACCOUNTS", "GEMINI_SKIPS", "ARCHIVE_BUCKET", "RUNLOG_BACKEND", "RUNLOG_SQLITE_PATH",
		"BIGQUERY_PROJECT", "BIGQUERY_DATASET", "HTTP_TIMEOUT", "HTTP_RETRY_MAX", "HTTP_RATE_PER_SECOND",
		"LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Clerk.Port)
	assert.Equal(t, "clerk-fe-public", cfg.Clerk.StaticDir)
	assert.Equal(t, "gemini-2.0-flash", cfg.Gemini.Model)
	assert.Equal(t, []string{"Rakuten", "OCBC", "BCA", "Jenius"}, cfg.Gemini.Accounts)
	assert.Len(t, cfg.Gemini.Skips, 4)
	assert.Equal(t, RunLogNone, cfg.RunLog.Backend)
	assert.Equal(t, 0, cfg.HTTP.RetryMax)
	assert.False(t, cfg.GeminiEnabled())
}

func TestLoad_Env(t *testing.T) {
	clearEnv(t)
	t.Setenv("SPREADSHEET_ID", "abc")
	t.Setenv("CLERK_PORT", "7100")
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("GEMINI_ACCOUNTS", "Rakuten, BCA ,")
	t.Setenv("HTTP_TIMEOUT", "15")
	t.Setenv("HTTP_RATE_PER_SECOND", "0.5")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "abc", cfg.Sheet.SpreadsheetID)
	assert.Equal(t, 7100, cfg.Clerk.Port)
	assert.Equal(t, []string{"Rakuten", "BCA"}, cfg.Gemini.Accounts)
	assert.Equal(t, 15*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 0.5, cfg.HTTP.RatePerSecond)
	assert.True(t, cfg.GeminiEnabled())
}

func TestLoad_BadNumber(t *testing.T) {
	clearEnv(t)
	t.Setenv("CLERK_PORT", "seven")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CLERK_PORT")
}

func TestLoad_YAMLWithEnvOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("MAILBOX", "/home/negi/Maildir")
	t.Setenv("LOG_LEVEL", "debug")

	path := filepath.Join(t.TempDir(), "negi.yaml")
	yaml := `
sheet:
  spreadsheet_id: from-file
mail:
  maildir_path: ${MAILBOX}
gemini:
  accounts: [Rakuten]
http:
  timeout: 5s
log:
  level: warn
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.Sheet.SpreadsheetID)
	assert.Equal(t, "/home/negi/Maildir", cfg.Mail.MaildirPath)
	assert.Equal(t, []string{"Rakuten"}, cfg.Gemini.Accounts)
	assert.Equal(t, 5*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 7000, cfg.Clerk.Port)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.Unsetenv("SPREADSHEET_ID"))

	dir := t.TempDir()
	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))

	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("SPREADSHEET_ID=from-dotenv\n"), 0o644))
	require.NoError(t, LoadDotEnv(path))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Sheet.SpreadsheetID)
}

func TestValidate(t *testing.T) {
	cfg := Default()

	err := cfg.Validate(NeedSheet, NeedMaildir)
	require.ErrorIs(t, err, ErrMissingSetting)
	assert.Contains(t, err.Error(), "SPREADSHEET_ID, MAILDIR_PATH")

	cfg.Sheet.SpreadsheetID = "abc"
	cfg.Mail.MaildirPath = "/mail"
	assert.NoError(t, cfg.Validate(NeedSheet, NeedMaildir, NeedRunLog))

	cfg.RunLog.Backend = RunLogBigQuery
	assert.ErrorIs(t, cfg.Validate(NeedRunLog), ErrMissingSetting)

	cfg.RunLog.Backend = "postgres"
	assert.Error(t, cfg.Validate(NeedRunLog))
}
