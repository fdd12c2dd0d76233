// Command medivoice runs the medicine reminder engine: an HTTP API with a
// background scheduler, a patient console and a few maintenance commands.
//
// Usage:
//
//	medivoice serve                       # HTTP API + scheduler
//	medivoice scheduler                   # scheduler only
//	medivoice today --patient p-1         # today's reminders
//	medivoice console --patient p-1       # interactive console
//	medivoice export --patient p-1        # adherence workbook
//	medivoice voice-test --lang hi-IN     # speak the test phrase
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/shankar379/medivoice/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "medivoice",
		Short:         "Voice medicine reminders for patients",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.GetDefaultConfigPath(),
		"Path to config file (env: "+config.EnvPrefix+"*)")

	load := func() (*app, error) {
		return newApp(configPath)
	}

	rootCmd.AddCommand(serveCmd(load))
	rootCmd.AddCommand(schedulerCmd(load))
	rootCmd.AddCommand(todayCmd(load))
	rootCmd.AddCommand(consoleCmd(load))
	rootCmd.AddCommand(exportCmd(load))
	rootCmd.AddCommand(voiceTestCmd(load))
	rootCmd.AddCommand(languagesCmd())

	return rootCmd
}
