package telegram

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"bill_reminder_bot/internal/app"
	"bill_reminder_bot/internal/domain/bill"
	"bill_reminder_bot/internal/domain/notification"

	"github.com/shopspring/decimal"
	"gopkg.in/telebot.v3"
)

// Inline button endpoints. The bill id travels as the callback payload.
const (
	uniqueBillPay    = "bill_pay"
	uniqueBillUnpay  = "bill_unpay"
	uniqueBillDelete = "bill_delete"
)

const maxListedItems = 20

var errUsage = errors.New("usage")

// splitArgs splits a command payload on whitespace. Double quotes group
// words, so bill names may contain spaces: /add_bill "Home loan" 1200 ...
func splitArgs(payload string) []string {
	var (
		args    []string
		cur     strings.Builder
		inQuote bool
		started bool
	)
	flush := func() {
		if started {
			args = append(args, cur.String())
		}
		cur.Reset()
		started = false
	}
	for _, r := range payload {
		switch {
		case r == '"':
			inQuote = !inQuote
			started = true
		case unicode.IsSpace(r) && !inQuote:
			flush()
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	flush()
	return args
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(s), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%q is not a valid id", s)
	}
	return id, nil
}

// parseBillInput reads <name> <amount> <frequency> <YYYY-MM-DD> [category] [description].
func parseBillInput(args []string, loc *time.Location) (app.BillInput, error) {
	if len(args) < 4 || len(args) > 6 {
		return app.BillInput{}, errUsage
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(args[1]))
	if err != nil {
		return app.BillInput{}, fmt.Errorf("%q is not a valid amount", args[1])
	}
	freq, ok := bill.ParseFrequency(args[2])
	if !ok {
		return app.BillInput{}, fmt.Errorf("unknown frequency %q, use daily, weekly, monthly, quarterly or yearly", args[2])
	}
	due, err := time.ParseInLocation(bill.DateLayout, args[3], loc)
	if err != nil {
		return app.BillInput{}, fmt.Errorf("%q is not a date, use YYYY-MM-DD", args[3])
	}
	in := app.BillInput{
		Name:        args[0],
		Amount:      amount,
		Frequency:   freq,
		NextDueDate: &due,
	}
	if len(args) >= 5 {
		in.Category = args[4]
	}
	if len(args) == 6 {
		in.Description = &args[5]
	}
	return in, nil
}

// parseReminder reads <days_before> <HH:MM>.
func parseReminder(days, clock string) (bill.ReminderSettings, error) {
	d, err := strconv.Atoi(days)
	if err != nil {
		return bill.ReminderSettings{}, fmt.Errorf("%q is not a number of days", days)
	}
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return bill.ReminderSettings{}, fmt.Errorf("%q is not a time, use HH:MM", clock)
	}
	return bill.ReminderSettings{DaysBefore: d, Hour: t.Hour(), Minute: t.Minute()}, nil
}

// parseListArgs reads the optional cycle and sort mode of /bills in any order.
func parseListArgs(args []string) (nextCycle bool, mode bill.SortMode) {
	mode = bill.SortDueDateAsc
	for _, a := range args {
		switch strings.ToLower(a) {
		case "next", "paid":
			nextCycle = true
		case "current", "unpaid":
			nextCycle = false
		default:
			if m, ok := bill.ParseSortMode(a); ok {
				mode = m
			}
		}
	}
	return nextCycle, mode
}

func statusIcon(s bill.DueStatus) string {
	switch s {
	case bill.DueStatusOverdue:
		return "🔴"
	case bill.DueStatusUrgent:
		return "🟠"
	default:
		return "🟢"
	}
}

func formatAmount(currency string, amount decimal.Decimal) string {
	return currency + amount.StringFixed(2)
}

// formatBill renders one bill card.
func formatBill(b *bill.Bill, now time.Time, currency string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s #%d %s: %s (%s)\n", statusIcon(b.Status(now)), b.ID, b.Name,
		formatAmount(currency, b.Amount), strings.ToLower(string(b.Frequency)))
	if b.Category != "" {
		fmt.Fprintf(&sb, "Category: %s\n", b.Category)
	}
	if b.Description != "" {
		fmt.Fprintf(&sb, "%s\n", b.Description)
	}
	if b.NextDueDate.Valid {
		fmt.Fprintf(&sb, "Due: %s, %s\n", b.NextDueDate.Time.Format(bill.DateLayout), b.DueLabel(now))
	} else {
		fmt.Fprintf(&sb, "%s\n", b.DueLabel(now))
	}

	rs := b.Reminder()
	fmt.Fprintf(&sb, "Reminder: %d day(s) before at %02d:%02d", rs.DaysBefore, rs.Hour, rs.Minute)
	if left, ok := bill.TimeRemaining(b, now); ok {
		fmt.Fprintf(&sb, ", in %s", left)
	} else if b.NextDueDate.Valid {
		sb.WriteString(", time reached")
	}
	if b.IsPaid && b.PaidDate.Valid {
		fmt.Fprintf(&sb, "\nPaid on %s", b.PaidDate.Time.In(now.Location()).Format(bill.DateLayout))
	}
	return sb.String()
}

// billKeyboard offers the cycle move that fits the bill, plus delete.
func billKeyboard(b *bill.Bill) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	id := strconv.FormatInt(b.ID, 10)
	move := markup.Data("✅ Paid", uniqueBillPay, id)
	if b.IsPaid {
		move = markup.Data("↩️ Move to current", uniqueBillUnpay, id)
	}
	markup.Inline(markup.Row(move, markup.Data("🗑 Delete", uniqueBillDelete, id)))
	return markup
}

func cycleTitle(nextCycle bool) string {
	if nextCycle {
		return "Next cycle (paid)"
	}
	return "Current cycle (unpaid)"
}

func formatNotifications(list []*notification.Notification, unread int, loc *time.Location) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Notifications (%d unread)\n", unread)
	if len(list) == 0 {
		sb.WriteString("\nNothing here.")
		return sb.String()
	}
	for i, n := range list {
		if i == maxListedItems {
			fmt.Fprintf(&sb, "\n…and %d more", len(list)-maxListedItems)
			break
		}
		mark := "📭"
		if !n.IsRead {
			mark = "✉️"
		}
		fmt.Fprintf(&sb, "\n%s #%d %s\n   %s", mark, n.ID, n.CreatedAt.In(loc).Format("2006-01-02 15:04"), n.Message)
	}
	return sb.String()
}

const helpText = `Bill reminder commands:

/bills [current|next] [duedate-asc|duedate-desc|reminder-asc|reminder-desc]
 - List your bills. Bills due within a week move back to the current cycle first.
/add_bill <name> <amount> <frequency> <YYYY-MM-DD> [category] ["description"]
 - Add a bill. Quote names with spaces. Frequency: daily, weekly, monthly, quarterly, yearly.
/edit_bill <id> <name> <amount> <frequency> <YYYY-MM-DD> [category] ["description"]
 - Leaving out the description keeps the current one.
/reminder <id> <days_before> <HH:MM>
 - Set when the reminder fires. Default: 2 days before at 09:00.
/paid <id>  /unpaid <id>  /delete_bill <id>

/notifications [unread]
/read <id>  /unread <id>  /read_all
/delete_notification <id>  /clear_notifications

/help - Show this message.`

const adminHelpText = `

Admin:
/list_users - Show registered users.`
