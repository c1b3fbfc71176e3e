// Package cmd provides the CLI commands for sekisho.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gatten-sekisho/sekisho/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "sekisho",
	Short: "sekisho - operator client for a permit gate",
	Long: `sekisho drives a remote decision service that reviews requests through
three gates (explanation, policy, permit) and executes actions only under an
issued permit.

Quick start:
  1. Start the decision service (default http://127.0.0.1:8000)
  2. Run: sekisho status
  3. Run: sekisho submit --preset safe --execute with

Configuration:
  Config is loaded from sekisho.yaml in the current directory,
  $HOME/.sekisho/, or /etc/sekisho/.

  Environment variables can override config values with the SEKISHO_ prefix.
  Example: SEKISHO_API_BASE_URL=http://gate.internal:8000

Commands:
  status      Probe the decision service
  submit      Submit a request and show the gate board
  execute     Attempt the action without a permit
  demo        Run the scripted walkthrough
  console     Interactive session
  version     Print version information`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command's
// context so in-flight requests settle before exit.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), gracefulSignals()...)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./sekisho.yaml)")
	flags.String("api-base", "", "decision service origin (default: "+config.DefaultBaseURL+")")
	flags.String("timeout", "", "deadline for submit and execute calls (default: "+config.DefaultTimeout+")")
	flags.StringP("output", "o", "", "output format: text, json or yaml")
	flags.String("color", "", "color output: auto, always or never")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// flagKeys maps persistent flags to configuration keys.
var flagKeys = map[string]string{
	"api-base": "api.base_url",
	"timeout":  "api.timeout",
	"output":   "output.format",
	"color":    "output.color",
}

func initConfig() {
	config.InitViper(cfgFile)
	for flag, key := range flagKeys {
		_ = viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag))
	}
	_ = viper.BindPFlag("metrics.addr", consoleCmd.Flags().Lookup("metrics-addr"))
}
