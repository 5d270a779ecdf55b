package main

import (
	"fmt"

	"bill_reminder_bot/internal/domain/telegram"
	"bill_reminder_bot/internal/infra/logger"
	"bill_reminder_bot/internal/infra/scheduler"
	infraTelegram "bill_reminder_bot/internal/infra/telegram"

	"github.com/spf13/cobra"
	"gopkg.in/telebot.v3"
)

var flagNoPush bool

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Move next-cycle bills due within a week back to the current cycle, once",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := openStorage(cmd.Context(), appCfg)
		if err != nil {
			return err
		}
		defer st.close()

		svc := newServices(appCfg, st, nil)
		s := scheduler.NewBillScheduler(svc.notifications, svc.bills, logger.Component("sweep"), appCfg.Location, appCfg.CronSpecReminderCheck, appCfg.CronSpecSweep)
		moved := s.RunSweep(cmd.Context())
		fmt.Fprintf(cmd.OutOrStdout(), "moved %d bill(s) to the current cycle\n", moved)
		return nil
	},
}

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Run one reminder check for the current minute",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := openStorage(cmd.Context(), appCfg)
		if err != nil {
			return err
		}
		defer st.close()

		var client telegram.Client
		if !flagNoPush {
			bot, err := telebot.NewBot(telebot.Settings{Token: appCfg.TelegramToken})
			if err != nil {
				return err
			}
			client = infraTelegram.NewTelebotAdapter(bot)
		}

		svc := newServices(appCfg, st, client)
		s := scheduler.NewBillScheduler(svc.notifications, svc.bills, logger.Component("remind"), appCfg.Location, appCfg.CronSpecReminderCheck, appCfg.CronSpecSweep)
		fired := s.RunReminderCheck(cmd.Context())
		fmt.Fprintf(cmd.OutOrStdout(), "sent %d reminder(s)\n", fired)
		return nil
	},
}

func init() {
	remindCmd.Flags().BoolVar(&flagNoPush, "no-push", false, "Store reminders in the inbox without sending Telegram messages")
}
