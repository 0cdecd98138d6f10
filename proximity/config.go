// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package proximity

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jcodagnone/cercania/utils/textutils"
	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration that reads and writes as "1.5s" in TOML and JSON.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", text, err)
	}

	*d = Duration(v)

	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the time.Duration value.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// DistanceConfig controls how distance matrix requests are chunked and paced.
type DistanceConfig struct {
	// ChunkSize is the maximum number of destinations per request.
	ChunkSize int `json:"chunk_size" toml:"chunk_size" validate:"gt=0"`

	// WindowSize is the maximum number of elements per WindowDelay.
	WindowSize  int      `json:"window_size"  toml:"window_size"  validate:"gtefield=ChunkSize"`
	WindowDelay Duration `json:"window_delay" toml:"window_delay" validate:"gte=0"`

	RetryAttempts int      `json:"retry_attempts" toml:"retry_attempts" validate:"gte=0"`
	RetryDelay    Duration `json:"retry_delay"    toml:"retry_delay"    validate:"gte=0"`
}

// DetailsConfig controls candidate enrichment.
type DetailsConfig struct {
	RetryAttempts int      `json:"retry_attempts" toml:"retry_attempts" validate:"gte=0"`
	RetryDelay    Duration `json:"retry_delay"    toml:"retry_delay"    validate:"gte=0"`

	// Interval is the minimum spacing between two details requests.
	Interval Duration `json:"interval" toml:"interval" validate:"gte=0"`

	Fields   []string `json:"fields"    toml:"fields"    validate:"required,min=1,dive,required"`
	CacheTTL Duration `json:"cache_ttl" toml:"cache_ttl" validate:"gte=0"`
}

// SearchConfig controls place search requests.
type SearchConfig struct {
	RetryAttempts int      `json:"retry_attempts" toml:"retry_attempts" validate:"gte=0"`
	RetryDelay    Duration `json:"retry_delay"    toml:"retry_delay"    validate:"gte=0"`
}

// Config is the full pipeline configuration.
type Config struct {
	CandidateLimit int             `json:"candidate_limit" toml:"candidate_limit" validate:"gt=0"`
	Language       string          `json:"language"        toml:"language"`
	TravelMode     string          `json:"travel_mode"     toml:"travel_mode"     validate:"omitempty,oneof=driving walking bicycling transit"`
	Search         SearchConfig    `json:"search"          toml:"search"`
	Distance       DistanceConfig  `json:"distance"        toml:"distance"`
	Details        DetailsConfig   `json:"details"         toml:"details"`
	Categories     []PlaceCategory `json:"categories"      toml:"categories"      validate:"dive"`
}

// Default values.
const (
	DefaultCandidateLimit     = 3
	DefaultChunkSize          = 25
	DefaultWindowSize         = 100
	DefaultWindowDelay        = time.Second
	DefaultDistanceAttempts   = 3
	DefaultDetailsAttempts    = 2
	DefaultDetailsRetryDelay  = 1500 * time.Millisecond
	DefaultDetailsInterval    = 200 * time.Millisecond
	DefaultDetailsCacheTTL    = 24 * time.Hour
	DefaultSearchAttempts     = 2
	DefaultSearchRetryDelay   = time.Second
	DefaultDistanceRetryDelay = time.Second
)

// DefaultConfig returns a configuration with the default knobs and no categories.
func DefaultConfig() *Config {
	return &Config{
		CandidateLimit: DefaultCandidateLimit,
		TravelMode:     "driving",
		Search: SearchConfig{
			RetryAttempts: DefaultSearchAttempts,
			RetryDelay:    Duration(DefaultSearchRetryDelay),
		},
		Distance: DistanceConfig{
			ChunkSize:     DefaultChunkSize,
			WindowSize:    DefaultWindowSize,
			WindowDelay:   Duration(DefaultWindowDelay),
			RetryAttempts: DefaultDistanceAttempts,
			RetryDelay:    Duration(DefaultDistanceRetryDelay),
		},
		Details: DetailsConfig{
			RetryAttempts: DefaultDetailsAttempts,
			RetryDelay:    Duration(DefaultDetailsRetryDelay),
			Interval:      Duration(DefaultDetailsInterval),
			Fields:        []string{"formatted_phone_number", "international_phone_number", "website"},
			CacheTTL:      Duration(DefaultDetailsCacheTTL),
		},
	}
}

// LoadConfig reads a TOML configuration file on top of DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path is provided by the operator
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig parses TOML data on top of DefaultConfig and validates it.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration.
func (c *Config) Validate() error {
	if len(c.Categories) == 0 {
		return ErrNoCategories
	}

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	seen := make(map[string]string, len(c.Categories))
	for _, cat := range c.Categories {
		if err := cat.Validate(); err != nil {
			return err
		}

		key := textutils.Key(cat.Name)
		if other, ok := seen[key]; ok {
			return fmt.Errorf("invalid config: categories %q and %q share the key %q", other, cat.Name, key)
		}

		seen[key] = cat.Name
	}

	return nil
}

// Validate checks a single category.
func (c PlaceCategory) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid category %q: %w", c.Name, err)
	}

	if len(c.SearchKeywords) == 0 && c.SearchText == "" {
		return fmt.Errorf("invalid category %q: %w", c.Name, errors.New("keywords or text required"))
	}

	return nil
}

// Category finds a category by name, ignoring case, accents and spacing.
func (c *Config) Category(name string) (PlaceCategory, bool) {
	key := textutils.Key(name)
	for _, cat := range c.Categories {
		if textutils.Key(cat.Name) == key {
			return cat, true
		}
	}

	return PlaceCategory{}, false
}
