package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/goccy/go-yaml"
	"github.com/google/uuid"

	"github.com/campprojects/dashboard/internal/project"
)

// DefaultNamespace seeds identifiers for rows that arrive without one. Keep it
// stable: changing it changes every synthesized id.
const DefaultNamespace = "3f0c24b2-8d0e-5b8a-9a53-5c1e6f7d2a10"

// Config is read from the environment, after .env.local has been loaded.
type Config struct {
	Port string `env:"PORT" envDefault:"5050"`

	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"sqlite"`
	DatabaseURL    string `env:"DATABASE_URL" envDefault:"projects.db"`
	DatabaseSchema string `env:"DATABASE_SCHEMA"`
	DatabaseDebug  bool   `env:"DATABASE_DEBUG"`

	SourceCSV    string `env:"SOURCE_CSV" envDefault:"projects.csv"`
	CSVDelimiter string `env:"CSV_DELIMITER"`
	IngestMode   string `env:"INGEST_MODE" envDefault:"if-empty"`
	ColumnsFile  string `env:"COLUMNS_FILE"`
	ClosedMarker string `env:"CLOSED_MARKER" envDefault:"نعم"`
	IDNamespace  string `env:"ID_NAMESPACE" envDefault:"3f0c24b2-8d0e-5b8a-9a53-5c1e6f7d2a10"`

	AdminPassword     string        `env:"ADMIN_PASSWORD"`
	AdminPasswordHash string        `env:"ADMIN_PASSWORD_HASH"`
	SessionTTL        time.Duration `env:"SESSION_TTL" envDefault:"6h"`
	SecureCookies     bool          `env:"SECURE_COOKIES"`
	LoginRate         float64       `env:"LOGIN_RATE" envDefault:"0.2"`
	LoginBurst        int           `env:"LOGIN_BURST" envDefault:"5"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// Parse reads the environment without validating it. Offline tools that
// never serve admin routes use it directly.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Load parses the environment and validates the result for the server.
func Load() (Config, error) {
	cfg, err := Parse()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("DATABASE_DRIVER must be postgres or sqlite, got %q", c.DatabaseDriver)
	}
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is empty")
	}
	switch c.IngestMode {
	case "always", "if-empty", "never":
	default:
		return fmt.Errorf("INGEST_MODE must be always, if-empty or never, got %q", c.IngestMode)
	}
	if c.AdminPassword == "" && c.AdminPasswordHash == "" {
		return errors.New("one of ADMIN_PASSWORD or ADMIN_PASSWORD_HASH is required")
	}
	if _, err := c.Namespace(); err != nil {
		return err
	}
	if _, err := c.Delimiter(); err != nil {
		return err
	}
	return nil
}

// Namespace parses ID_NAMESPACE.
func (c Config) Namespace() (uuid.UUID, error) {
	ns, err := uuid.Parse(c.IDNamespace)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid ID_NAMESPACE: %w", err)
	}
	return ns, nil
}

// Delimiter returns the configured field separator, or 0 to sniff it.
func (c Config) Delimiter() (rune, error) {
	return ParseDelimiter(c.CSVDelimiter)
}

// ParseDelimiter accepts a single character or one of the names comma,
// semicolon, tab. Blank means sniff.
func ParseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "":
		return 0, nil
	case "comma", ",":
		return ',', nil
	case "semicolon", ";":
		return ';', nil
	case "tab", `\t`, "\t":
		return '\t', nil
	}
	r := []rune(s)
	if len(r) != 1 {
		return 0, fmt.Errorf("invalid CSV_DELIMITER %q", s)
	}
	return r[0], nil
}

// Schema returns the header mapping, read from ColumnsFile when set.
func (c Config) Schema() (*project.Schema, error) {
	if c.ColumnsFile == "" {
		return project.DefaultSchema(), nil
	}
	return LoadSchema(c.ColumnsFile)
}

// columnsFile is the YAML shape of a header mapping:
//
//	columns:
//	  contractor: ["المقاول", "Contractor"]
//	  estimated_cost: ["التكلفة التقديرية"]
//
// The first header listed for a field is the one written back on export.
type columnsFile struct {
	Columns map[string][]string `yaml:"columns"`
}

// LoadSchema reads a YAML header mapping.
func LoadSchema(path string) (*project.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read columns file: %w", err)
	}
	return ParseSchema(data)
}

// ParseSchema decodes a YAML header mapping on top of the default headers.
// Unknown field names are an error.
func ParseSchema(data []byte) (*project.Schema, error) {
	var cf columnsFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse columns file: %w", err)
	}
	headers := project.DefaultHeaders()
	for name, aliases := range cf.Columns {
		f, ok := project.ParseField(name)
		if !ok {
			return nil, fmt.Errorf("columns file: unknown field %q", name)
		}
		headers[f] = aliases
	}
	return project.NewSchema(headers), nil
}
