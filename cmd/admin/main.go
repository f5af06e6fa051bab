// Command admin runs maintenance tasks against the habitat database.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/SteveWTK/neptunes-tribe-english-sub006/config"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/database"
	applogger "github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/logger"
)

var configPath string

// env is what every subcommand needs; built once in PersistentPreRunE.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
}

var app env

var rootCmd = &cobra.Command{
	Use:           "admin",
	Short:         "Habitat English administration tool",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err := applogger.NewLogger(&cfg.Log)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
		if err != nil {
			return err
		}
		app = env{cfg: cfg, logger: logger, db: db}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if app.db != nil {
			if sqlDB, err := app.db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		if app.logger != nil {
			_ = app.logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml")
	rootCmd.AddCommand(migrateCmd, codesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
