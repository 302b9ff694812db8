package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/billaudit/internal/config"
	"github.com/gyeh/billaudit/internal/exitcode"
	"github.com/gyeh/billaudit/internal/logging"
)

var cfg = config.Default()

var rootCmd = &cobra.Command{
	Use:               "billaudit",
	Short:             "Hospital bill auditor with a self-learning rate card",
	Long:              "Audits hospital bills against city-tier price ceilings and a rate card learned from past bills, and drafts overcharging complaints.",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfigFile,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.ConfigPath, "config", os.Getenv("BILLAUDIT_CONFIG"), "YAML config file (or set BILLAUDIT_CONFIG)")
	pf.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: text or json")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	pf.StringVar(&cfg.Store.Kind, "store", envOr("BILLAUDIT_STORE", cfg.Store.Kind), "Rate card store: memory, file, leveldb, postgres or mongo")
	pf.StringVar(&cfg.Store.Path, "store-path", cfg.Store.Path, "Path for the file or leveldb store")
	pf.StringVar(&cfg.Store.DSN, "dsn", os.Getenv("BILLAUDIT_DSN"), "Postgres connection string (or set BILLAUDIT_DSN)")
	pf.StringVar(&cfg.Store.URI, "mongo-uri", os.Getenv("MONGO_URI"), "MongoDB connection string (or set MONGO_URI)")
	pf.StringVar(&cfg.LLM.APIKey, "api-key", os.Getenv("LLM_API_KEY"), "API key for the model provider (or set LLM_API_KEY)")
	pf.StringVar(&cfg.LLM.BaseURL, "llm-base-url", cfg.LLM.BaseURL, "OpenAI-compatible API base URL")
}

// overridable lists persistent flags that also live in the config file.
// An explicitly set flag wins over the file.
var overridable = map[string]func(dst, src *config.Config){
	"store":        func(d, s *config.Config) { d.Store.Kind = s.Store.Kind },
	"store-path":   func(d, s *config.Config) { d.Store.Path = s.Store.Path },
	"dsn":          func(d, s *config.Config) { d.Store.DSN = s.Store.DSN },
	"mongo-uri":    func(d, s *config.Config) { d.Store.URI = s.Store.URI },
	"llm-base-url": func(d, s *config.Config) { d.LLM.BaseURL = s.LLM.BaseURL },
}

func loadConfigFile(cmd *cobra.Command, args []string) error {
	if cfg.ConfigPath == "" {
		return nil
	}
	flagged := cfg
	if err := cfg.LoadFromFile(cfg.ConfigPath); err != nil {
		log := logging.Setup(cfg.LogFormat, cfg.LogLevel)
		log.Error().Err(err).Str("path", cfg.ConfigPath).Msg("config file invalid")
		os.Exit(exitcode.UsageError)
	}
	for name, apply := range overridable {
		if cmd.Flags().Changed(name) {
			apply(&cfg, &flagged)
		}
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
