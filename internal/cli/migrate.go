package cli

import (
	"github.com/spf13/cobra"

	"github.com/set-night/turbostart/internal/config"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load[config.Migrate]()
		if err != nil {
			return err
		}
		setupLogger(cfg.SlogLevel())
		return migrateUp(cfg.DatabaseURL)
	},
}
