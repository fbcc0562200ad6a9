package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set at build time with -ldflags "-X ...cli.Version=..."
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "newscheck",
	Short: "newscheck - asynchronous fact-checking for chat messages",
	Long: `newscheck verifies short news claims submitted through a chat bot.

A worker pool consumes tasks from a Redis queue, searches news and web
engines for evidence, reads the most authoritative pages, scores every
claim against a fixed rubric and sends the report back to the chat.

The verdict is one of True, Likely true, Unclear, Likely false or False,
with a 0-100 score, cited sources and caveats.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "newscheck %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.newscheck/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "text", "log format: text or json")

	// Bind flags to viper
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads .env, the config file and NEWSCHECK_* variables
func initConfig() {
	if err := loadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	bindEnv(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		dir, err := defaultConfigDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(dir)
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	} else if cfgFile != "" {
		fmt.Fprintf(os.Stderr, "Error reading config file %s: %v\n", cfgFile, err)
	}
}
