// Package config provides configuration types and loading for quotevec.
package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/viant/quotevec/vector"
)

// Config is the root configuration struct.
// Top-level groups: Embedder, Store, Query, Bot, Slack, Log, Health.
type Config struct {
	Embedder EmbedderConfig `json:"embedder"`
	Store    StoreConfig    `json:"store"`
	Query    QueryConfig    `json:"query"`
	Bot      BotConfig      `json:"bot"`
	Slack    SlackConfig    `json:"slack"`
	Log      LogConfig      `json:"log"`
	Health   HealthConfig   `json:"health"`
}

// ---------------------------------------------------------------------------
// Embedder – text to vector model
// ---------------------------------------------------------------------------

// Embedder backends.
const (
	EmbedderHashing = "hashing"
	EmbedderOpenAI  = "openai"
)

// EmbedderConfig selects and tunes the embedding backend. Dimension is the
// vector width D that the store schema enforces; it must match the model.
type EmbedderConfig struct {
	Backend           string   `json:"backend" split_words:"true"`
	Model             string   `json:"model" split_words:"true"`
	Dimension         int      `json:"dimension" split_words:"true"`
	BatchSize         int      `json:"batchSize" split_words:"true"`
	BaseURL           string   `json:"baseURL,omitempty" split_words:"true"`
	APIKey            string   `json:"apiKey,omitempty" split_words:"true"`
	SendDimensions    bool     `json:"sendDimensions,omitempty" split_words:"true"`
	RequestsPerSecond float64  `json:"requestsPerSecond,omitempty" split_words:"true"`
	Timeout           Duration `json:"timeout" split_words:"true"`
}

// ---------------------------------------------------------------------------
// Store – vector persistence
// ---------------------------------------------------------------------------

// Store backends.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreBolt     = "bolt"
)

// StoreConfig selects the storage backend. DSN is used by sqlite and
// postgres, Path by bolt.
type StoreConfig struct {
	Backend      string   `json:"backend" split_words:"true"`
	DSN          string   `json:"dsn,omitempty" split_words:"true"`
	Path         string   `json:"path,omitempty" split_words:"true"`
	Table        string   `json:"table,omitempty" split_words:"true"`
	MaxOpenConns int      `json:"maxOpenConns,omitempty" split_words:"true"`
	LockTimeout  Duration `json:"lockTimeout" split_words:"true"`
}

// ---------------------------------------------------------------------------
// Query – ranking defaults
// ---------------------------------------------------------------------------

// QueryConfig holds the ranking defaults. Threshold is a distance cutoff in
// Metric's distance space (lower is more similar).
type QueryConfig struct {
	Metric    vector.Metric `json:"metric" split_words:"true"`
	Threshold float64       `json:"threshold" split_words:"true"`
	TopN      int           `json:"topN" split_words:"true"`
}

// ---------------------------------------------------------------------------
// Bot – chat behaviour
// ---------------------------------------------------------------------------

// BotConfig tunes the chat command router and the ambient trigger.
type BotConfig struct {
	Prefix               string   `json:"prefix" split_words:"true"`
	Admins               []string `json:"admins,omitempty" split_words:"true"`
	Ambient              bool     `json:"ambient" split_words:"true"`
	AmbientRatePerMinute float64  `json:"ambientRatePerMinute" split_words:"true"`
	PageSize             int      `json:"pageSize" split_words:"true"`
	Workers              int      `json:"workers" split_words:"true"`
	CallTimeout          Duration `json:"callTimeout" split_words:"true"`
	CollectorPath        string   `json:"collectorPath,omitempty" split_words:"true"`
}

// SlackConfig configures the Slack Socket Mode transport.
type SlackConfig struct {
	BotToken  string `json:"botToken,omitempty" split_words:"true"`
	AppToken  string `json:"appToken,omitempty" split_words:"true"`
	BotUserID string `json:"botUserID,omitempty" split_words:"true"`
	APIURL    string `json:"apiURL,omitempty" split_words:"true"`
	Debug     bool   `json:"debug,omitempty" split_words:"true"`
}

// LogConfig configures logrus.
type LogConfig struct {
	Level  string `json:"level" split_words:"true"`
	Format string `json:"format" split_words:"true"`
	File   string `json:"file,omitempty" split_words:"true"`
}

// HealthConfig configures the HTTP health endpoint; an empty Addr disables it.
type HealthConfig struct {
	Addr string `json:"addr,omitempty" split_words:"true"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Embedder: EmbedderConfig{
			Backend:   EmbedderHashing,
			Model:     "hashing-ngram-v1",
			Dimension: 384,
			BatchSize: 32,
			Timeout:   Duration{30 * time.Second},
		},
		Store: StoreConfig{
			Backend:     StoreSQLite,
			DSN:         "quotes.sqlite",
			Path:        "quotes.db",
			LockTimeout: Duration{5 * time.Second},
		},
		Query: QueryConfig{
			Metric:    vector.Cosine,
			Threshold: 0.5,
			TopN:      1,
		},
		Bot: BotConfig{
			Prefix:               "!",
			Ambient:              true,
			AmbientRatePerMinute: 6,
			PageSize:             10,
			Workers:              4,
			CallTimeout:          Duration{10 * time.Second},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var result *multierror.Error
	add := func(format string, args ...any) { result = multierror.Append(result, fmt.Errorf(format, args...)) }

	switch c.Embedder.Backend {
	case EmbedderHashing:
	case EmbedderOpenAI:
		if c.Embedder.Model == "" {
			add("embedder.model is required for the openai backend")
		}
	default:
		add("embedder.backend %q: want %s or %s", c.Embedder.Backend, EmbedderHashing, EmbedderOpenAI)
	}
	if err := vector.ValidateDimension(c.Embedder.Dimension); err != nil {
		add("embedder.dimension: %w", err)
	}
	switch c.Store.Backend {
	case StoreSQLite, StorePostgres:
		if strings.TrimSpace(c.Store.DSN) == "" {
			add("store.dsn is required for the %s backend", c.Store.Backend)
		}
	case StoreBolt:
		if strings.TrimSpace(c.Store.Path) == "" {
			add("store.path is required for the bolt backend")
		}
	default:
		add("store.backend %q: want %s, %s or %s", c.Store.Backend, StoreSQLite, StorePostgres, StoreBolt)
	}
	if c.Store.Table != "" {
		if err := vector.ValidateIdentifier(c.Store.Table); err != nil {
			add("store.table: %w", err)
		}
	}
	if !c.Query.Metric.Valid() {
		add("query.metric: %w", &vector.MetricError{Name: c.Query.Metric.String()})
	}
	if c.Query.TopN < 0 {
		add("query.topN must not be negative, got %d", c.Query.TopN)
	}
	if c.Bot.PageSize <= 0 {
		add("bot.pageSize must be positive, got %d", c.Bot.PageSize)
	}
	if c.Bot.Workers <= 0 {
		add("bot.workers must be positive, got %d", c.Bot.Workers)
	}
	if c.Bot.AmbientRatePerMinute < 0 {
		add("bot.ambientRatePerMinute must not be negative")
	}
	return result.ErrorOrNil()
}

// Duration is a time.Duration that reads and writes as a Go duration string
// ("5s", "1m30s") in JSON and environment variables.
type Duration struct {
	time.Duration
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

// UnmarshalJSON implements json.Unmarshaler. Bare numbers are seconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var seconds float64
	if err := json.Unmarshal(data, &seconds); err == nil {
		d.Duration = time.Duration(seconds * float64(time.Second))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("config: duration must be a string or number: %w", err)
	}
	return d.Decode(s)
}

// Decode implements envconfig.Decoder.
func (d *Duration) Decode(value string) error {
	v, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	d.Duration = v
	return nil
}
