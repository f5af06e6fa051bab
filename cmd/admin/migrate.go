package main

import (
	"github.com/spf13/cobra"

	"github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/database"
)

var migrateDown int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Long: `Apply every pending migration. With --down N, roll back the
last N migrations instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sqlDB, err := app.db.DB()
		if err != nil {
			return err
		}
		if migrateDown > 0 {
			return database.RollbackMigrations(sqlDB, migrateDown, app.logger)
		}
		return database.RunMigrations(sqlDB, app.logger)
	},
}

func init() {
	migrateCmd.Flags().IntVar(&migrateDown, "down", 0, "roll back this many migrations")
}
