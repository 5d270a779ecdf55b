package main

import (
	"os"

	"bill_reminder_bot/internal/infra/config"
	"bill_reminder_bot/internal/infra/logger"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var appCfg *config.AppConfig

var rootCmd = &cobra.Command{
	Use:   "bot",
	Short: "Recurring bill reminder bot",
	Long:  "Telegram bot that tracks recurring bills, moves them between payment cycles and sends reminders before they are due.",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		appCfg = cfg
		logger.Init(cfg)
		logger.Log.WithFields(logrus.Fields{
			"environment": cfg.Environment,
			"admin_id":    cfg.AdminTelegramID,
			"timezone":    cfg.Location.String(),
			"postgres":    cfg.IsPostgres(),
		}).Info("Configuration loaded")
		return nil
	},
	RunE:          runServe,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Log.WithError(err).Error("Command failed")
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd, sweepCmd, remindCmd)
}
