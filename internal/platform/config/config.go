package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Granularity values.
const (
	GranularityEvents  = "events"
	GranularityMonthly = "monthly"
	GranularityBoth    = "both"
)

// Harvest sources.
const (
	SourceMembersAPI = "membersApi"
	SourceOData      = "odata"
)

// Config is the full runtime configuration. Values resolve in order:
// defaults, the YAML file named by CIVITAS_CONFIG, environment variables,
// then command-line flags applied by the caller.
type Config struct {
	Timeline Timeline    `yaml:"timeline"`
	Harvest  Harvest     `yaml:"harvest"`
	Output   Output      `yaml:"output"`
	Server   Server      `yaml:"server"`
	Redis    RedisConfig `yaml:"redis"`
	Log      Log         `yaml:"log"`
}

// Timeline controls normalization and derivation.
type Timeline struct {
	Since           string            `yaml:"since" env:"CIVITAS_SINCE" validate:"required,datetime=2006-01-02"`
	Granularity     string            `yaml:"granularity" env:"CIVITAS_GRANULARITY" validate:"oneof=events monthly both"`
	MergeLabourCoop bool              `yaml:"merge_labour_coop" env:"CIVITAS_MERGE_LABOUR_COOP"`
	PartyAliases    map[string]string `yaml:"party_aliases" env:"CIVITAS_PARTY_ALIASES" envSeparator:"," envKeyValSeparator:"="`
	// ElectionsFile replaces the built-in general election calendar.
	ElectionsFile string `yaml:"elections_file" env:"CIVITAS_ELECTIONS_FILE"`
}

// Monthly reports whether month-boundary snapshots are requested.
func (t Timeline) Monthly() bool {
	return t.Granularity != GranularityEvents
}

// Harvest controls the upstream collaborator.
type Harvest struct {
	Source            string        `yaml:"source" env:"CIVITAS_SOURCE" validate:"oneof=membersApi odata"`
	MembersAPIBaseURL string        `yaml:"members_api_base_url" env:"CIVITAS_MEMBERS_API_BASE_URL" validate:"required,url"`
	ODataURL          string        `yaml:"odata_url" env:"CIVITAS_ODATA_URL" validate:"required,url"`
	IncludeHistory    bool          `yaml:"include_history" env:"CIVITAS_INCLUDE_HISTORY"`
	CacheDir          string        `yaml:"cache_dir" env:"CIVITAS_CACHE_DIR"`
	ForceRefresh      bool          `yaml:"force_refresh" env:"CIVITAS_FORCE_REFRESH"`
	MaxConcurrency    int           `yaml:"max_concurrency" env:"CIVITAS_MAX_CONCURRENCY" validate:"gte=1"`
	RequestsPerSecond float64       `yaml:"requests_per_second" env:"CIVITAS_REQUESTS_PER_SECOND" validate:"gte=0"`
	MaxRetries        int           `yaml:"max_retries" env:"CIVITAS_MAX_RETRIES" validate:"gte=0"`
	RequestTimeout    time.Duration `yaml:"request_timeout" env:"CIVITAS_REQUEST_TIMEOUT" validate:"gt=0"`
}

// Output controls where artifacts go.
type Output struct {
	Dir string `yaml:"dir" env:"CIVITAS_OUTPUT_DIR" validate:"required"`
	// DatabaseURL enables Postgres persistence when set.
	DatabaseURL string `yaml:"database_url" env:"CIVITAS_DATABASE_URL"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr              string        `yaml:"addr" env:"CIVITAS_ADDR" validate:"required"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" env:"CIVITAS_READ_HEADER_TIMEOUT"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" env:"CIVITAS_SHUTDOWN_TIMEOUT"`
}

// RedisConfig configures the optional response cache backend. An empty URL
// keeps the cache on disk.
type RedisConfig struct {
	URL          string        `yaml:"url" env:"CIVITAS_REDIS_URL"`
	PoolSize     int           `yaml:"pool_size" env:"CIVITAS_REDIS_POOL_SIZE"`
	MinIdleConns int           `yaml:"min_idle_conns" env:"CIVITAS_REDIS_MIN_IDLE_CONNS"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env:"CIVITAS_REDIS_DIAL_TIMEOUT"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"CIVITAS_REDIS_READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"CIVITAS_REDIS_WRITE_TIMEOUT"`
	TTL          time.Duration `yaml:"ttl" env:"CIVITAS_REDIS_TTL"`
}

// Log configures the slog handler.
type Log struct {
	Level  string `yaml:"level" env:"CIVITAS_LOG_LEVEL" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" env:"CIVITAS_LOG_FORMAT" validate:"oneof=json text"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Timeline: Timeline{
			Since:       "2005-01-01",
			Granularity: GranularityEvents,
		},
		Harvest: Harvest{
			Source:            SourceMembersAPI,
			MembersAPIBaseURL: "https://members-api.parliament.uk/api",
			ODataURL:          "https://data.parliament.uk/membersdataplatform/services/mnis/members/query/House=Commons|Membership=all/Parties|Constituencies/",
			CacheDir:          ".cache/members-api",
			MaxConcurrency:    6,
			RequestsPerSecond: 10,
			MaxRetries:        3,
			RequestTimeout:    30 * time.Second,
		},
		Output: Output{
			Dir: "public/data/official",
		},
		Server: Server{
			Addr:              ":8080",
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			TTL:          7 * 24 * time.Hour,
		},
		Log: Log{
			Level:  "info",
			Format: "json",
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// FromEnv builds a Config from defaults, the optional CIVITAS_CONFIG file and
// environment variables.
func FromEnv() (Config, error) {
	return Load(os.Getenv("CIVITAS_CONFIG"))
}

// Load is FromEnv with an explicit YAML path. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration after every override has been applied.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
