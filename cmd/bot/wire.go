package main

import (
	"context"
	"fmt"

	"bill_reminder_bot/internal/app"
	"bill_reminder_bot/internal/domain/bill"
	"bill_reminder_bot/internal/domain/notification"
	domainTelegram "bill_reminder_bot/internal/domain/telegram"
	"bill_reminder_bot/internal/domain/user"
	"bill_reminder_bot/internal/infra/config"
	idb "bill_reminder_bot/internal/infra/database"
	"bill_reminder_bot/internal/infra/logger"
)

type storage struct {
	users         user.Repository
	bills         bill.Repository
	notifications notification.Repository
	close         func() error
}

// openStorage picks lib/pq for postgres:// URLs and gorm SQLite otherwise.
func openStorage(ctx context.Context, cfg *config.AppConfig) (*storage, error) {
	log := logger.Component("database")

	if cfg.IsPostgres() {
		db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("could not connect to database: %w", err)
		}
		if err := idb.EnsurePostgresSchema(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		log.Info("PostgreSQL connection established successfully.")
		return &storage{
			users:         idb.NewPostgresUserRepository(db),
			bills:         idb.NewPostgresBillRepository(db),
			notifications: idb.NewPostgresNotificationRepository(db),
			close:         db.Close,
		}, nil
	}

	gdb, err := idb.NewSQLiteConnection(cfg.DatabaseURL, log.WithField("driver", "sqlite"))
	if err != nil {
		return nil, fmt.Errorf("could not open sqlite database: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("could not get sqlite handle: %w", err)
	}
	log.WithField("dsn", cfg.DatabaseURL).Info("SQLite database opened successfully.")
	return &storage{
		users:         idb.NewGormUserRepository(gdb),
		bills:         idb.NewGormBillRepository(gdb),
		notifications: idb.NewGormNotificationRepository(gdb),
		close:         sqlDB.Close,
	}, nil
}

type services struct {
	users         *app.UserService
	bills         *app.BillService
	notifications *app.NotificationService
	bus           *app.CountBus
}

// newServices builds the application layer. tc may be nil when nothing should be pushed to Telegram.
func newServices(cfg *config.AppConfig, st *storage, tc domainTelegram.Client) *services {
	bus := app.NewCountBus(0)
	notifications := app.NewNotificationService(
		st.notifications, st.bills, st.users, tc, bus,
		logger.Component("notification_service"), cfg.Location, cfg.CurrencySymbol,
	)
	return &services{
		users:         app.NewUserService(st.users, cfg.AdminTelegramID),
		bills:         app.NewBillService(st.bills, notifications, logger.Component("bill_service"), cfg.Location, cfg.CurrencySymbol),
		notifications: notifications,
		bus:           bus,
	}
}
