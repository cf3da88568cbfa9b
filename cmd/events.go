/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/coursehub/apiserver/config"
	"github.com/coursehub/apiserver/internal/mq"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect catalog change events",
}

var eventsTailResource string

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Log change events as they are published",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := newLogger(cfg)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		queue, err := mq.NewFromConfig(ctx, cfg.MQ, logger)
		if err != nil {
			return err
		}
		if queue == nil {
			return errors.New("MQ_BACKEND is not configured")
		}
		defer queue.Close()

		logger.WithFields(logrus.Fields{
			"channel":  cfg.MQ.EventsChannel,
			"resource": eventsTailResource,
		}).Info("waiting for events")
		return queue.Tail(ctx, eventsTailResource, func(_ context.Context, messageID string, ev mq.Event) error {
			logger.WithFields(logrus.Fields{
				"message_id": messageID,
				"resource":   ev.Resource,
				"action":     ev.Action,
				"id":         ev.ID,
				"at":         ev.At,
			}).Info("change event")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
	eventsTailCmd.Flags().StringVarP(&eventsTailResource, "resource", "r", "", "only show events for this resource, e.g. courses")
}
