package main

import (
	"os/signal"
	"syscall"
	"time"

	"bill_reminder_bot/internal/app"
	"bill_reminder_bot/internal/infra/logger"
	"bill_reminder_bot/internal/infra/scheduler"
	"bill_reminder_bot/internal/infra/telegram"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/telebot.v3"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot and the reminder scheduler (default)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mainLogger := logger.Component("main")
	mainLogger.Info("Bill Reminder Bot starting...")

	st, err := openStorage(ctx, appCfg)
	if err != nil {
		return err
	}
	defer st.close()

	botLogger := logger.Component("telebot")
	bot, err := telebot.NewBot(telebot.Settings{
		Token:  appCfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) { // Global error handler
			entry := botLogger.WithError(err)
			if c != nil && c.Sender() != nil && c.Chat() != nil {
				entry = entry.WithFields(logrus.Fields{
					"text":      c.Text(),
					"sender_id": c.Sender().ID,
					"chat_id":   c.Chat().ID,
				})
			}
			entry.Error("Handler error")
		},
	})
	if err != nil {
		return err
	}

	svc := newServices(appCfg, st, telegram.NewTelebotAdapter(bot))
	counter := app.NewUnreadCounter(st.notifications, svc.bus)
	go counter.Run(ctx)

	billScheduler := scheduler.NewBillScheduler(
		svc.notifications,
		svc.bills,
		logger.Component("scheduler"),
		appCfg.Location,
		appCfg.CronSpecReminderCheck,
		appCfg.CronSpecSweep,
	)
	if err := billScheduler.Start(); err != nil {
		return err
	}

	telegram.RegisterAll(ctx, bot, telegram.Deps{
		Users:          svc.users,
		Bills:          svc.bills,
		Notifications:  svc.notifications,
		UnreadCounts:   counter,
		Location:       appCfg.Location,
		CurrencySymbol: appCfg.CurrencySymbol,
		Logger:         logger.Component("telegram"),
	})
	mainLogger.Info("Application setup complete. Bot and Scheduler are starting...")

	// Start bot in a goroutine so it doesn't block graceful shutdown handling
	go bot.Start()

	<-ctx.Done()
	mainLogger.Info("Shutting down application...")
	bot.Stop()
	billScheduler.Stop()
	mainLogger.Info("Application shut down gracefully.")
	return nil
}
