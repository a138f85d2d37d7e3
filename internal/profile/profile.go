package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where chartly stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string

	// OpenAIAPIKey authenticates chat-completion calls.
	OpenAIAPIKey string
	// OpenAIBaseURL overrides the API endpoint (default: https://api.openai.com/v1)
	OpenAIBaseURL string
	// OpenAIModel is the orchestrator model identifier.
	OpenAIModel string

	// QueryStrategy selects the translation strategy: "domain" or "sql".
	QueryStrategy string
	// RowLimit caps the number of records a single query may return.
	RowLimit int
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if an API key is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.OpenAIAPIKey != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads configuration from CHARTLY_* environment variables.
func (p *Profile) FromEnv() {
	p.Mode = getEnvOrDefault("CHARTLY_MODE", p.Mode)
	p.Addr = getEnvOrDefault("CHARTLY_ADDR", p.Addr)
	if v := os.Getenv("CHARTLY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			p.Port = port
		}
	}
	p.Data = getEnvOrDefault("CHARTLY_DATA", p.Data)
	p.DSN = getEnvOrDefault("CHARTLY_DSN", p.DSN)
	p.Driver = getEnvOrDefault("CHARTLY_DRIVER", p.Driver)

	p.OpenAIAPIKey = getEnvOrDefault("CHARTLY_OPENAI_API_KEY", p.OpenAIAPIKey)
	p.OpenAIBaseURL = getEnvOrDefault("CHARTLY_OPENAI_BASE_URL", p.OpenAIBaseURL)
	p.OpenAIModel = getEnvOrDefault("CHARTLY_OPENAI_MODEL", p.OpenAIModel)

	p.QueryStrategy = getEnvOrDefault("CHARTLY_QUERY_STRATEGY", p.QueryStrategy)
	if v := os.Getenv("CHARTLY_ROW_LIMIT"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil && limit > 0 {
			p.RowLimit = limit
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
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}
	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.QueryStrategy != "sql" {
		p.QueryStrategy = "domain"
	}
	if p.RowLimit <= 0 {
		p.RowLimit = 10
	}
	if p.OpenAIBaseURL == "" {
		p.OpenAIBaseURL = "https://api.openai.com/v1"
	}
	if p.OpenAIModel == "" {
		p.OpenAIModel = "gpt-4.1"
	}

	if p.Mode == "prod" && p.Data == "" {
		p.Data = "/var/opt/chartly"
	}
	if p.Data == "" {
		p.Data = "."
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("chartly_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("dsn is required for postgres driver")
	}

	return nil
}
