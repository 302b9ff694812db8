package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gyeh/billaudit/internal/tier"
)

// Store kinds.
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StoreLevelDB  = "leveldb"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

// Learning record policies.
const (
	RecordCharged  = "charged"
	RecordStandard = "standard"
)

// Config holds all runtime configuration for a billaudit run.
type Config struct {
	ConfigPath string `yaml:"-"`
	LogFormat  string `yaml:"-"` // "text" or "json"
	LogLevel   string `yaml:"-"`

	Store    StoreConfig    `yaml:"store"`
	Pricing  PricingConfig  `yaml:"pricing"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Learning LearningConfig `yaml:"learning"`
	LLM      LLMConfig      `yaml:"llm"`
}

type StoreConfig struct {
	Kind     string `yaml:"kind"`
	Path     string `yaml:"path"`     // file and leveldb
	DSN      string `yaml:"dsn"`      // postgres
	URI      string `yaml:"uri"`      // mongo
	Database string `yaml:"database"` // mongo
}

type PricingConfig struct {
	FlagRatio   float64                       `yaml:"flag_ratio"`
	MetroCities []string                      `yaml:"metro_cities"`
	Tiers       map[string]map[string]float64 `yaml:"tiers"` // tier -> category -> ceiling
}

type LedgerConfig struct {
	Retention    int `yaml:"retention"`
	HistoryLimit int `yaml:"history_limit"`
}

type LearningConfig struct {
	Record    string `yaml:"record"` // "charged" or "standard"
	QueueSize int    `yaml:"queue_size"`
}

type LLMConfig struct {
	BaseURL           string        `yaml:"base_url"`
	APIKey            string        `yaml:"-"` // flag or LLM_API_KEY only
	ExtractModel      string        `yaml:"extract_model"`
	FallbackModel     string        `yaml:"fallback_model"`
	DraftModel        string        `yaml:"draft_model"`
	TranscribeModel   string        `yaml:"transcribe_model"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Timeout           time.Duration `yaml:"timeout"`
	CacheSize         int           `yaml:"cache_size"`
}

// Default returns the configuration used when no file or flag says otherwise.
func Default() Config {
	return Config{
		LogFormat: "text",
		LogLevel:  "info",
		Store: StoreConfig{
			Kind:     StoreFile,
			Path:     "data/history.json",
			Database: "billaudit",
		},
		Pricing: PricingConfig{
			FlagRatio:   1.5,
			MetroCities: append([]string(nil), tier.DefaultMetroCities...),
		},
		Ledger: LedgerConfig{Retention: 50, HistoryLimit: 100},
		Learning: LearningConfig{
			Record:    RecordCharged,
			QueueSize: 64,
		},
		LLM: LLMConfig{
			BaseURL:           "https://api.groq.com/openai/v1",
			ExtractModel:      "meta-llama/llama-4-scout-17b-16e-instruct",
			FallbackModel:     "meta-llama/llama-4-maverick-17b-128e-instruct",
			DraftModel:        "llama-3.1-8b-instant",
			TranscribeModel:   "whisper-large-v3",
			RequestsPerSecond: 2,
			Timeout:           60 * time.Second,
			CacheSize:         128,
		},
	}
}

// LoadFromFile reads a YAML config file and merges its values into Config.
// Keys absent from the file keep their current values.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	next := *c
	if err := yaml.Unmarshal(data, &next); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if err := next.validateSections(); err != nil {
		return err
	}
	*c = next
	return nil
}

// validateSections checks the values that can come from the YAML file.
func (c *Config) validateSections() error {
	switch c.Store.Kind {
	case StoreMemory, StoreFile, StoreLevelDB, StorePostgres, StoreMongo:
	default:
		return fmt.Errorf("unknown store kind %q in config", c.Store.Kind)
	}
	if c.Pricing.FlagRatio <= 0 {
		return fmt.Errorf("pricing.flag_ratio must be positive, got %v", c.Pricing.FlagRatio)
	}
	if _, err := tier.DefaultTable().WithOverrides(c.Pricing.Tiers); err != nil {
		return fmt.Errorf("pricing.tiers: %w", err)
	}
	if c.Ledger.Retention < 0 || c.Ledger.HistoryLimit < 0 {
		return fmt.Errorf("ledger limits must not be negative")
	}
	switch strings.ToLower(c.Learning.Record) {
	case RecordCharged, RecordStandard:
		c.Learning.Record = strings.ToLower(c.Learning.Record)
	default:
		return fmt.Errorf("unknown learning.record %q in config", c.Learning.Record)
	}
	if c.LLM.RequestsPerSecond < 0 {
		return fmt.Errorf("llm.requests_per_second must not be negative")
	}
	return nil
}

// Validate checks the merged configuration.
func (c *Config) Validate() error {
	if err := c.validateSections(); err != nil {
		return err
	}
	switch c.Store.Kind {
	case StoreFile, StoreLevelDB:
		if c.Store.Path == "" {
			return fmt.Errorf("--store-path is required for the %s store", c.Store.Kind)
		}
	case StorePostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("--dsn or BILLAUDIT_DSN is required for the postgres store")
		}
	case StoreMongo:
		if c.Store.URI == "" {
			return fmt.Errorf("--mongo-uri or MONGO_URI is required for the mongo store")
		}
	}
	return nil
}

// ValidateWithLLM also requires an API key for commands that call a model.
func (c *Config) ValidateWithLLM() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("--api-key or LLM_API_KEY is required")
	}
	return nil
}

// TierTable returns the default tier table with configured overrides applied.
func (c *Config) TierTable() (tier.Table, error) {
	return tier.DefaultTable().WithOverrides(c.Pricing.Tiers)
}
