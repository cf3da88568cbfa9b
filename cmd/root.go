/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/coursehub/apiserver/config"
	"github.com/coursehub/apiserver/internal/observability"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "coursehub",
	Short: "Course catalog API server",
	Long: `Course catalog API server. It serves courses, lessons, categories,
user profiles, enrollments and reviews over HTTP with JWT authentication.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) *logrus.Logger {
	return observability.NewLogger(cfg.Log.Level, cfg.Log.Format, os.Stdout)
}
