// Package cmd implements the perch command line interface.
package cmd

import (
	"fmt"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/perchhub/perch/internal/config"
	"github.com/perchhub/perch/internal/observability"
)

var (
	cfgFile string
	verbose bool

	// Version info set by main package via ldflags.
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by the main package to set build metadata.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

var rootCmd = &cobra.Command{
	Use:   "perch",
	Short: "Self-hosted server monitoring agent",
	Long: `Perch is the agent side of a self-hosted server monitoring console.

It exposes host telemetry and Docker state over an authenticated HTTP API
guarded by rotating time-windowed tokens, adaptive rate limiting and an
attack-tool honeypot.`,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /opt/perch/config/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig merges defaults, the config file and PERCH_ environment
// variables into viper's global state.
func initConfig() {
	config.SetDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("/opt/perch/config")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("PERCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			ExitWithCodeStderr(foundry.ExitConfigInvalid,
				fmt.Sprintf("Failed to read config file %s", viper.ConfigFileUsed()), err)
		}
	}

	observability.InitCLILogger(verbose || viper.GetBool("verbose"))

	if viper.ConfigFileUsed() != "" {
		observability.CLILogger.Debug("loaded config file: " + viper.ConfigFileUsed())
	}
}
