// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Analytics thresholds. These are heuristics carried over from the
// operational dashboard, not fitted statistical parameters.
const (
	// MigrationThresholdHigh marks a district as a high-migration urban hub
	// when its demographic-update to enrolment ratio is at or above it.
	MigrationThresholdHigh = 0.7

	// MigrationThresholdMedium marks moderate migration; below it the
	// district is considered stable/rural.
	MigrationThresholdMedium = 0.4

	// AnomalyStdThreshold flags values more than this many standard
	// deviations from the mean (volume and temporal checks).
	AnomalyStdThreshold = 2.0

	// GenderRatioLower and GenderRatioUpper bound the expected female
	// enrolment share. Values outside the band are flagged.
	GenderRatioLower = 0.47
	GenderRatioUpper = 0.53

	// GenderSynthesisSeed seeds the deterministic gender-share synthesis.
	// The gender pass is a data-quality simulation: the source data carries
	// no gender column, so shares are synthesized per district.
	GenderSynthesisSeed = 42

	// MinDistrictSampleSize is the minimum enrolment count for the age and
	// gender distribution checks. Smaller samples are skipped as
	// statistically unreliable.
	MinDistrictSampleSize = 100

	// MinForecastPoints is the minimum number of monthly observations
	// required to fit a forecast model.
	MinForecastPoints = 4
)

// Config holds application configuration
type Config struct {
	DataDir        string // Directory holding the three CSV datasets
	Port           int
	DevMode        bool
	LogLevel       string
	ReloadSchedule string // Cron expression for the dataset reload job ("" disables it)

	EnrolmentFile   string
	BiometricFile   string
	DemographicFile string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("OPSINTEL_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./datasets"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	cfg := &Config{
		DataDir:         absDataDir,
		Port:            getEnvAsInt("OPSINTEL_PORT", 8000),
		DevMode:         getEnvAsBool("DEV_MODE", false),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ReloadSchedule:  getEnv("OPSINTEL_RELOAD_SCHEDULE", "0 0 3 * * *"), // 03:00 daily
		EnrolmentFile:   getEnv("OPSINTEL_ENROLMENT_FILE", "enrolment.csv"),
		BiometricFile:   getEnv("OPSINTEL_BIOMETRIC_FILE", "biometric_updates.csv"),
		DemographicFile: getEnv("OPSINTEL_DEMOGRAPHIC_FILE", "demographic_updates.csv"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	return nil
}

// EnrolmentPath returns the absolute path of the enrolment dataset
func (c *Config) EnrolmentPath() string {
	return filepath.Join(c.DataDir, c.EnrolmentFile)
}

// BiometricPath returns the absolute path of the biometric update dataset
func (c *Config) BiometricPath() string {
	return filepath.Join(c.DataDir, c.BiometricFile)
}

// DemographicPath returns the absolute path of the demographic update dataset
func (c *Config) DemographicPath() string {
	return filepath.Join(c.DataDir, c.DemographicFile)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
