package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "eris-cli",
	Short: "eris-cli is the command-line interface for the eris Discord bridge.",
	Long:  `A CLI for inspecting the eris configuration and producing signed interaction payloads for local testing.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to eris.yaml")
	rootCmd.PersistentFlags().StringP("port", "p", "", "override the server port")

	if err := viper.BindPFlag("server.port", rootCmd.PersistentFlags().Lookup("port")); err != nil {
		slog.Error("Error binding flag", "error", err)
		os.Exit(1)
	}
}

// initConfig points viper at an explicit config file if one was given.
// Environment variables are read by config.LoadConfig.
func initConfig() {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	}
}
