package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"issuehub/internal/platform/config"
	"issuehub/internal/platform/logger"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "issuehub",
	Short: "Issue tracking API server",
	Long: `issuehub serves a JSON API for registering users and tracking issues.
Settings come from issuehub.yaml, ISSUEHUB_* environment variables and flags.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./issuehub.yaml or /etc/issuehub/issuehub.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("database-dsn", "", "database connection string; empty keeps data in memory")
}

// loadConfig resolves settings for cmd, letting flags override file and env.
func loadConfig(cmd *cobra.Command) (config.Server, *slog.Logger, error) {
	v := viper.New()
	flags := cmd.Flags()
	for key, flag := range map[string]string{
		"log.level":    "log-level",
		"database.dsn": "database-dsn",
		"addr":         "addr",
	} {
		if f := flags.Lookup(flag); f != nil && f.Changed {
			_ = v.BindPFlag(key, f)
		}
	}

	cfg, err := config.Load(v, configFile)
	if err != nil {
		return config.Server{}, nil, err
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return config.Server{}, nil, err
	}
	return cfg, log, nil
}
