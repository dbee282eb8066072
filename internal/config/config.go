// Package config loads the service configuration from defaults, an
// optional JSON file, environment variables and command-line flags, in
// increasing order of priority, and validates the result.
package config

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/thoas/go-funk"
)

// SearchAPIKeyEnv names the environment variable holding the search
// provider API key. It is read on every search request, not at startup.
const SearchAPIKeyEnv = "SERPAPI_KEY"

type Config struct {
	RunAddr               string        `env:"SERVER_ADDRESS" json:"server_address" validate:"hostname_port"`
	LogLevel              string        `env:"LOG_LEVEL" json:"log_level" validate:"loglevel"`
	DatabaseDSN           string        `env:"DATABASE_DSN" json:"database_dsn"`
	DBConnectionTimeout   time.Duration `env:"DB_CONNECTION_TIMEOUT" json:"db_connection_timeout"`
	MigrationsDir         string        `env:"MIGRATIONS_DIR" json:"migrations_dir"`
	DBFileName            string        `env:"FILE_STORAGE_PATH" json:"file_storage_path" validate:"filepath"`
	TokenSigningSecretKey string        `env:"TOKEN_SIGNING_SECRET_KEY" json:"token_signing_secret_key" validate:"required,base64url"`
	TokenLifetime         time.Duration `env:"TOKEN_LIFETIME" json:"token_lifetime" validate:"gt=0"`
	SearchProviderURL     string        `env:"SEARCH_PROVIDER_URL" json:"search_provider_url" validate:"url"`
	SearchEngine          string        `env:"SEARCH_ENGINE" json:"search_engine" validate:"required"`
	ConfigFile            string        `env:"CONFIG" json:"-"`
}

var defaultConfig = Config{
	RunAddr:             ":8000",
	LogLevel:            "info",
	DBConnectionTimeout: 10 * time.Second,
	MigrationsDir:       "cmd/imgsearch/migrations",
	TokenLifetime:       30 * time.Minute,
	SearchProviderURL:   "https://serpapi.com/search.json",
	SearchEngine:        "google_images",
}

var allowedLogLevels = []string{"debug", "info", "warn", "error", "fatal"}

type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
}

func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// New builds the configuration. Priority: CLI flags > env > JSON file > defaults.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	if err := godotenv.Load(); err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	var fromEnv Config
	if err := env.Parse(&fromEnv); err != nil {
		return nil, err
	}

	var fromFlags Config
	if !options.disableFlagsParsing {
		if err := parseFlags(&fromFlags); err != nil {
			return nil, err
		}
	}

	configFile := fromEnv.ConfigFile
	if fromFlags.ConfigFile != "" {
		configFile = fromFlags.ConfigFile
	}

	values := &Config{}
	if configFile != "" {
		if err := parseJSONFile(configFile, values); err != nil {
			return nil, err
		}
	}

	applyOverrides(values, &fromEnv)
	applyOverrides(values, &fromFlags)
	applyDefaults(values, defaultConfig)

	if err := values.validate(); err != nil {
		return nil, err
	}

	return values, nil
}

// TokenSigningSecret decodes the configured base64url signing secret.
func (c *Config) TokenSigningSecret() ([]byte, error) {
	return base64.URLEncoding.DecodeString(c.TokenSigningSecretKey)
}

func parseFlags(values *Config) error {
	flagSet := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flagSet.StringVar(&values.RunAddr, "a", "", "address and port to run server")
	flagSet.StringVar(&values.LogLevel, "l", "", "logger level")
	flagSet.StringVar(&values.DatabaseDSN, "d", "", "A string with the database connection details")
	flagSet.StringVar(&values.DBFileName, "f", "", "JSON file name with database")
	flagSet.StringVar(&values.ConfigFile, "c", "", "JSON config file name")

	return flagSet.Parse(os.Args[1:])
}

func parseJSONFile(fileName string, values *Config) error {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return fmt.Errorf("in internal/config/config.go/parseJSONFile(): error while `os.ReadFile()` calling: %w", err)
	}

	var fromJSON struct {
		Config
		DBConnectionTimeout string `json:"db_connection_timeout"`
		TokenLifetime       string `json:"token_lifetime"`
	}
	if err := json.Unmarshal(data, &fromJSON); err != nil {
		return fmt.Errorf("in internal/config/config.go/parseJSONFile(): error while `json.Unmarshal()` calling: %w", err)
	}

	*values = fromJSON.Config
	if values.DBConnectionTimeout, err = parseOptionalDuration(fromJSON.DBConnectionTimeout); err != nil {
		return err
	}
	if values.TokenLifetime, err = parseOptionalDuration(fromJSON.TokenLifetime); err != nil {
		return err
	}

	return nil
}

func parseOptionalDuration(value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}

	return time.ParseDuration(value)
}

func applyOverrides(values *Config, overrides *Config) {
	overrideString(&values.RunAddr, overrides.RunAddr)
	overrideString(&values.LogLevel, overrides.LogLevel)
	overrideString(&values.DatabaseDSN, overrides.DatabaseDSN)
	overrideString(&values.MigrationsDir, overrides.MigrationsDir)
	overrideString(&values.DBFileName, overrides.DBFileName)
	overrideString(&values.TokenSigningSecretKey, overrides.TokenSigningSecretKey)
	overrideString(&values.SearchProviderURL, overrides.SearchProviderURL)
	overrideString(&values.SearchEngine, overrides.SearchEngine)
	overrideString(&values.ConfigFile, overrides.ConfigFile)

	if overrides.DBConnectionTimeout != 0 {
		values.DBConnectionTimeout = overrides.DBConnectionTimeout
	}
	if overrides.TokenLifetime != 0 {
		values.TokenLifetime = overrides.TokenLifetime
	}
}

// applyDefaults fills every zero field of values from defaults.
func applyDefaults(values *Config, defaults Config) {
	explicit := *values
	*values = defaults
	applyOverrides(values, &explicit)
}

func overrideString(target *string, value string) {
	if value != "" {
		*target = value
	}
}

func validateFilePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	if path == "" {
		return true
	}
	_, err := os.Stat(path)

	return err == nil || errors.Is(err, os.ErrNotExist)
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	return funk.ContainsString(allowedLogLevels, fieldLevel.Field().String())
}

func (c *Config) validate() error {
	validate := validator.New()

	if err := validate.RegisterValidation("loglevel", validateLogLevel); err != nil {
		return err
	}

	if err := validate.RegisterValidation("filepath", validateFilePath); err != nil {
		return err
	}

	return validate.Struct(c)
}
