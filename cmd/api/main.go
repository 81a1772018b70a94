package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/tasklog/core/cmd/api/commands"
)

// @title Tasklog API
// @version 1.0
// @description Task tracking with timers and time reports

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	rootCmd := &cobra.Command{
		Use:   "tasklog",
		Short: "Tasklog API Server",
		Long:  `Tasklog tracks tasks, the time spent on them and who they are assigned to.`,
	}

	// Add commands
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewUserCommand())
	rootCmd.AddCommand(commands.NewSeedCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
