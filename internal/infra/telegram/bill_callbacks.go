package telegram

import (
	"context"
	"fmt"

	"bill_reminder_bot/internal/domain/bill"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// RegisterBillCallbacks handles the inline buttons under bill cards.
func RegisterBillCallbacks(ctx context.Context, b *telebot.Bot, d Deps) {
	handle := func(unique string, run func(userID, id int64) (*bill.Bill, string, error)) {
		b.Handle(&telebot.Btn{Unique: unique}, func(c telebot.Context) error {
			log := d.Logger.WithFields(logrus.Fields{
				"callback":  unique,
				"sender_id": c.Sender().ID,
				"data":      c.Callback().Data,
			})
			id, err := parseID(c.Callback().Data)
			if err != nil {
				log.WithError(err).Warn("Invalid callback payload")
				return c.Respond(&telebot.CallbackResponse{Text: "Unknown bill."})
			}
			u, err := d.currentUser(ctx, c)
			if err != nil {
				log.WithError(err).Error("Failed to resolve user")
				return c.Respond(&telebot.CallbackResponse{Text: userMessage(err)})
			}

			updated, answer, err := run(u.ID, id)
			if err != nil {
				log.WithError(err).Warn("Bill action failed")
				return c.Respond(&telebot.CallbackResponse{Text: userMessage(err), ShowAlert: true})
			}

			if updated != nil {
				err = c.Edit(formatBill(updated, d.Bills.Now(), d.CurrencySymbol), billKeyboard(updated))
			} else {
				err = c.Edit(answer)
			}
			if err != nil {
				// The card may be too old to edit; the action itself succeeded.
				log.WithError(err).Debug("Could not edit bill card")
			}
			return c.Respond(&telebot.CallbackResponse{Text: answer})
		})
	}

	handle(uniqueBillPay, func(userID, id int64) (*bill.Bill, string, error) {
		updated, err := d.Bills.MarkPaid(ctx, userID, id)
		return updated, "Paid. Moved to the next cycle.", err
	})
	handle(uniqueBillUnpay, func(userID, id int64) (*bill.Bill, string, error) {
		updated, err := d.Bills.MarkUnpaid(ctx, userID, id)
		return updated, "Moved back to the current cycle.", err
	})
	handle(uniqueBillDelete, func(userID, id int64) (*bill.Bill, string, error) {
		if err := d.Bills.DeleteBill(ctx, userID, id); err != nil {
			return nil, "", err
		}
		return nil, fmt.Sprintf("🗑 Bill #%d deleted.", id), nil
	})
}
