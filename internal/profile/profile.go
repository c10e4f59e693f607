package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where haruplan stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string

	// Timezone is the default IANA timezone used to resolve relative dates
	// when a request does not carry its own (e.g. "Asia/Seoul").
	Timezone string

	// BriefingHour and BriefingMinute set the daily digest generation time.
	BriefingHour   int
	BriefingMinute int

	// AI Configuration
	AIEnabled bool   // HARUPLAN_AI_ENABLED
	AIAPIKey  string // HARUPLAN_AI_API_KEY
	AIBaseURL string // HARUPLAN_AI_BASE_URL (default: https://api.openai.com/v1)
	AIModel   string // HARUPLAN_AI_MODEL (default: gpt-4o-mini)

	// ParseEndpoint, when set, routes remote parsing through an external
	// HTTP endpoint instead of calling the model directly.
	ParseEndpoint string // HARUPLAN_PARSE_ENDPOINT
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if AI is enabled and a provider is reachable.
func (p *Profile) IsAIEnabled() bool {
	return p.AIEnabled && (p.AIAPIKey != "" || p.ParseEndpoint != "")
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads configuration from HARUPLAN_* environment variables.
func (p *Profile) FromEnv() {
	p.AIEnabled = os.Getenv("HARUPLAN_AI_ENABLED") == "true"
	p.AIAPIKey = os.Getenv("HARUPLAN_AI_API_KEY")
	p.AIBaseURL = getEnvOrDefault("HARUPLAN_AI_BASE_URL", "https://api.openai.com/v1")
	p.AIModel = getEnvOrDefault("HARUPLAN_AI_MODEL", "gpt-4o-mini")
	p.ParseEndpoint = os.Getenv("HARUPLAN_PARSE_ENDPOINT")
	p.Timezone = getEnvOrDefault("HARUPLAN_TIMEZONE", p.Timezone)

	if v := os.Getenv("HARUPLAN_BRIEFING_HOUR"); v != "" {
		if hour, err := strconv.Atoi(v); err == nil && hour >= 0 && hour <= 23 {
			p.BriefingHour = hour
		}
	}
	if v := os.Getenv("HARUPLAN_BRIEFING_MINUTE"); v != "" {
		if minute, err := strconv.Atoi(v); err == nil && minute >= 0 && minute <= 59 {
			p.BriefingMinute = minute
		}
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}

	if p.Timezone == "" {
		p.Timezone = "Asia/Seoul"
	}
	if p.BriefingHour == 0 && p.BriefingMinute == 0 {
		p.BriefingHour = 8
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "haruplan")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/haruplan"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("haruplan_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	return nil
}
