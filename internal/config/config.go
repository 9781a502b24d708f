package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath string

	// Row source. "xlsx" reads a local export of the PTS workbook,
	// "sheets" reads the live PTS spreadsheet.
	SourceKind string
	XLSXPath   string

	SheetsSpreadsheetID  string
	SheetsCredentialsKey string
	SheetsTimeoutMs      int
	SheetsRateLimitRPS   int

	RawDataSheet string
	LogSheet     string

	PartsMappingPath string
	LogsMappingPath  string

	WatchIntervalSec int

	ReportDir string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath: getEnv("DB_PATH", filepath.Join(cwd, "data", "ots.db")),

		SourceKind: getEnv("PTS_SOURCE", "xlsx"),
		XLSXPath:   getEnv("PTS_XLSX_PATH", filepath.Join(cwd, "data", "pts.xlsx")),

		SheetsSpreadsheetID:  getEnv("PTS_SPREADSHEET_ID", ""),
		SheetsCredentialsKey: getEnv("GOOGLE_SERVICE_ACCOUNT_KEY", ""),
		SheetsTimeoutMs:      getEnvInt("PTS_SHEETS_TIMEOUT_MS", 60000),
		SheetsRateLimitRPS:   getEnvInt("PTS_SHEETS_RATE_LIMIT_RPS", 1),

		RawDataSheet: getEnv("PTS_RAW_DATA_SHEET", "02-Raw Data"),
		LogSheet:     getEnv("PTS_LOG_SHEET", "04-Log"),

		PartsMappingPath: getEnv("PTS_PARTS_MAPPING", ""),
		LogsMappingPath:  getEnv("PTS_LOGS_MAPPING", ""),

		WatchIntervalSec: getEnvInt("SYNC_WATCH_INTERVAL_SEC", 900),

		ReportDir: getEnv("REPORT_DIR", filepath.Join(cwd, "out")),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
