package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/perchhub/perch/internal/observability"
	"github.com/perchhub/perch/internal/token"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Initialize the token seed file",
	Long: `Generate the seed file used to derive rotating access tokens.

The current token is revealed exactly once, at generation time. If the seed
file already exists this command is a no-op; delete the file first to force
regeneration (which invalidates all previously paired consoles).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := viper.GetString("security.seed_path")
		store := token.NewSeedStore(path)

		created, err := store.EnsureInitialized()
		if err != nil {
			ExitWithCodeStderr(foundry.ExitFailure, "Seed file initialization failed", err)
		}

		if created {
			observability.CLILogger.Info("seed file generated: " + path)
		} else {
			observability.CLILogger.Info("seed file already exists, leaving it untouched: " + path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
