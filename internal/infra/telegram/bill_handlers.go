package telegram

import (
	"context"
	"fmt"

	"bill_reminder_bot/internal/domain/bill"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func RegisterBillHandlers(ctx context.Context, b *telebot.Bot, d Deps) {
	handlerLogger := func(c telebot.Context, command string) *logrus.Entry {
		return d.Logger.WithFields(logrus.Fields{"handler": command, "sender_id": c.Sender().ID})
	}

	b.Handle("/bills", func(c telebot.Context) error {
		log := handlerLogger(c, "/bills")
		u, err := d.currentUser(ctx, c)
		if err != nil {
			return replyError(c, log, err)
		}
		log = log.WithField("user_id", u.ID)

		// Bills that came due move back before the list is shown.
		if moved, err := d.Bills.SweepUser(ctx, u.ID); err != nil {
			log.WithError(err).Warn("Sweep before listing failed")
		} else if moved > 0 {
			log.WithField("moved", moved).Info("Bills moved back to the current cycle")
		}

		bills, err := d.Bills.ListBills(ctx, u.ID)
		if err != nil {
			return replyError(c, log, err)
		}
		nextCycle, mode := parseListArgs(commandArgs(c))
		current, next := bill.Partition(bills)
		shown := current
		if nextCycle {
			shown = next
		}
		bill.SortBills(shown, mode)

		header := fmt.Sprintf("%s: %d bill(s), sorted by %s. Current %d, next %d.",
			cycleTitle(nextCycle), len(shown), mode, len(current), len(next))
		if err := c.Send(header); err != nil {
			return err
		}
		now := d.Bills.Now()
		for i, bl := range shown {
			if i == maxListedItems {
				return c.Send(fmt.Sprintf("…and %d more.", len(shown)-maxListedItems))
			}
			if err := c.Send(formatBill(bl, now, d.CurrencySymbol), billKeyboard(bl)); err != nil {
				return err
			}
		}
		return nil
	})

	b.Handle("/add_bill", func(c telebot.Context) error {
		log := handlerLogger(c, "/add_bill")
		in, err := parseBillInput(commandArgs(c), d.Location)
		if err != nil {
			if err == errUsage {
				return c.Send(`Usage: /add_bill <name> <amount> <frequency> <YYYY-MM-DD> [category] ["description"]
Example: /add_bill "Home loan" 15000 monthly 2024-05-05 Housing "Bank transfer"`)
			}
			return c.Send("Error: " + err.Error())
		}
		u, err := d.currentUser(ctx, c)
		if err != nil {
			return replyError(c, log, err)
		}
		created, err := d.Bills.CreateBill(ctx, u.ID, in)
		if err != nil {
			return replyError(c, log, err)
		}
		return c.Send("Bill added.\n\n"+formatBill(created, d.Bills.Now(), d.CurrencySymbol), billKeyboard(created))
	})

	b.Handle("/edit_bill", func(c telebot.Context) error {
		log := handlerLogger(c, "/edit_bill")
		args := commandArgs(c)
		if len(args) < 1 {
			return c.Send("Usage: /edit_bill <id> <name> <amount> <frequency> <YYYY-MM-DD> [category] [\"description\"]")
		}
		id, err := parseID(args[0])
		if err != nil {
			return c.Send("Error: " + err.Error())
		}
		in, err := parseBillInput(args[1:], d.Location)
		if err != nil {
			if err == errUsage {
				return c.Send("Usage: /edit_bill <id> <name> <amount> <frequency> <YYYY-MM-DD> [category] [\"description\"]")
			}
			return c.Send("Error: " + err.Error())
		}
		u, err := d.currentUser(ctx, c)
		if err != nil {
			return replyError(c, log, err)
		}
		updated, err := d.Bills.EditBill(ctx, u.ID, id, in)
		if err != nil {
			return replyError(c, log.WithField("bill_id", id), err)
		}
		return c.Send("Bill updated.\n\n"+formatBill(updated, d.Bills.Now(), d.CurrencySymbol), billKeyboard(updated))
	})

	b.Handle("/reminder", func(c telebot.Context) error {
		log := handlerLogger(c, "/reminder")
		args := commandArgs(c)
		if len(args) != 3 {
			return c.Send("Usage: /reminder <id> <days_before> <HH:MM>\nExample: /reminder 3 0 08:30")
		}
		id, err := parseID(args[0])
		if err != nil {
			return c.Send("Error: " + err.Error())
		}
		rs, err := parseReminder(args[1], args[2])
		if err != nil {
			return c.Send("Error: " + err.Error())
		}
		u, err := d.currentUser(ctx, c)
		if err != nil {
			return replyError(c, log, err)
		}
		updated, err := d.Bills.UpdateReminder(ctx, u.ID, id, rs)
		if err != nil {
			return replyError(c, log.WithField("bill_id", id), err)
		}
		return c.Send("Reminder updated.\n\n" + formatBill(updated, d.Bills.Now(), d.CurrencySymbol))
	})

	// /paid, /unpaid and /delete_bill share the same shape: one bill id.
	withBillID := func(command string, run func(c telebot.Context, userID, id int64, log *logrus.Entry) error) telebot.HandlerFunc {
		return func(c telebot.Context) error {
			log := handlerLogger(c, command)
			args := commandArgs(c)
			if len(args) != 1 {
				return c.Send(fmt.Sprintf("Usage: %s <id>", command))
			}
			id, err := parseID(args[0])
			if err != nil {
				return c.Send("Error: " + err.Error())
			}
			u, err := d.currentUser(ctx, c)
			if err != nil {
				return replyError(c, log, err)
			}
			return run(c, u.ID, id, log.WithFields(logrus.Fields{"user_id": u.ID, "bill_id": id}))
		}
	}

	b.Handle("/paid", withBillID("/paid", func(c telebot.Context, userID, id int64, log *logrus.Entry) error {
		updated, err := d.Bills.MarkPaid(ctx, userID, id)
		if err != nil {
			return replyError(c, log, err)
		}
		return c.Send("Marked as paid, moved to the next cycle.\n\n" + formatBill(updated, d.Bills.Now(), d.CurrencySymbol))
	}))

	b.Handle("/unpaid", withBillID("/unpaid", func(c telebot.Context, userID, id int64, log *logrus.Entry) error {
		updated, err := d.Bills.MarkUnpaid(ctx, userID, id)
		if err != nil {
			return replyError(c, log, err)
		}
		return c.Send("Moved back to the current cycle.\n\n" + formatBill(updated, d.Bills.Now(), d.CurrencySymbol))
	}))

	b.Handle("/delete_bill", withBillID("/delete_bill", func(c telebot.Context, userID, id int64, log *logrus.Entry) error {
		if err := d.Bills.DeleteBill(ctx, userID, id); err != nil {
			return replyError(c, log, err)
		}
		return c.Send(fmt.Sprintf("Bill #%d deleted.", id))
	}))
}
