/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/coursehub/apiserver/config"
	"github.com/coursehub/apiserver/internal/db"
	"github.com/coursehub/apiserver/internal/services"
	"github.com/coursehub/apiserver/internal/store"
	"github.com/spf13/cobra"
)

var (
	superuserName     string
	superuserPassword string
)

// createSuperuserCmd creates an administrator account.
var createSuperuserCmd = &cobra.Command{
	Use:   "createsuperuser",
	Short: "Create an administrator account",
	Long: `Create an administrator account. The password may be given with
--password or the SUPERUSER_PASSWORD environment variable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		password := superuserPassword
		if password == "" {
			password = os.Getenv("SUPERUSER_PASSWORD")
		}
		if superuserName == "" || password == "" {
			return errors.New("username and password are required")
		}

		cfg := config.LoadConfig()
		logger := newLogger(cfg)

		conn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer conn.Close()

		accounts := services.NewAccountService(store.NewAccountRepository(conn), nil)
		account, err := accounts.CreateSuperuser(cmd.Context(), superuserName, password)
		if err != nil {
			return err
		}

		logger.WithField("id", account.ID).WithField("username", account.Username).Info("superuser created")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createSuperuserCmd)
	createSuperuserCmd.Flags().StringVarP(&superuserName, "username", "u", "", "login name of the new account")
	createSuperuserCmd.Flags().StringVarP(&superuserPassword, "password", "p", "", "password of the new account")
}
