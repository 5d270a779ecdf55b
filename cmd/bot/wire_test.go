package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"bill_reminder_bot/internal/app"
	"bill_reminder_bot/internal/domain/bill"
	"bill_reminder_bot/internal/infra/config"

	"github.com/shopspring/decimal"
)

func TestOpenStorageSQLiteWiresServices(t *testing.T) {
	cfg := &config.AppConfig{
		DatabaseURL:     filepath.Join(t.TempDir(), "data", "bills.db"),
		AdminTelegramID: 42,
		Location:        time.UTC,
		CurrencySymbol:  "$",
	}
	if cfg.IsPostgres() {
		t.Fatal("file path treated as postgres")
	}

	ctx := context.Background()
	st, err := openStorage(ctx, cfg)
	if err != nil {
		t.Fatalf("openStorage: %v", err)
	}
	defer st.close()

	svc := newServices(cfg, st, nil)
	u, created, err := svc.users.Register(ctx, 42, "Ada", "")
	if err != nil || !created {
		t.Fatalf("Register: created=%v err=%v", created, err)
	}

	due := time.Date(2030, 5, 31, 0, 0, 0, 0, time.UTC)
	b, err := svc.bills.CreateBill(ctx, u.ID, app.BillInput{
		Name:        "Rent",
		Amount:      decimal.NewFromInt(900),
		Frequency:   bill.FrequencyMonthly,
		NextDueDate: &due,
	})
	if err != nil {
		t.Fatalf("CreateBill: %v", err)
	}
	paid, err := svc.bills.MarkPaid(ctx, u.ID, b.ID)
	if err != nil {
		t.Fatalf("MarkPaid: %v", err)
	}
	if got := paid.NextDueDate.Time.Format(bill.DateLayout); got != "2030-06-30" {
		t.Errorf("next due = %s, want 2030-06-30", got)
	}
}
