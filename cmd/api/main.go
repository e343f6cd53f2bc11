package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/mallmap/core/cmd/api/commands"
)

// @title MallMap API
// @version 1.0
// @description Mall and store status API for the Qatar mall map

// @contact.name MallMap Support
// @contact.url https://github.com/mallmap/core

// @license.name MIT

// @host localhost:5000
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	opts := &commands.Options{}

	rootCmd := &cobra.Command{
		Use:           "mallmap",
		Short:         "MallMap API Server",
		Long:          `MallMap serves the mall and store map for Qatar and lets admins, managers and store owners keep opening status and store details current.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "Path to a config file (default ./config.yaml when present)")

	// Add commands
	rootCmd.AddCommand(commands.NewServeCommand(opts))
	rootCmd.AddCommand(commands.NewMigrateCommand(opts))
	rootCmd.AddCommand(commands.NewDataCommand(opts))
	rootCmd.AddCommand(commands.NewUserCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
