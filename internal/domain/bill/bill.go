package bill

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidBill is wrapped by every validation failure returned from Validate.
var ErrInvalidBill = errors.New("invalid bill")

// Frequency is the recurrence period of a bill.
type Frequency string

const (
	FrequencyDaily     Frequency = "DAILY"
	FrequencyWeekly    Frequency = "WEEKLY"
	FrequencyMonthly   Frequency = "MONTHLY"
	FrequencyQuarterly Frequency = "QUARTERLY"
	FrequencyYearly    Frequency = "YEARLY"
)

// ParseFrequency normalises s. The bool is false when s is not one of the
// known frequencies, in which case FrequencyMonthly is returned.
func ParseFrequency(s string) (Frequency, bool) {
	f := Frequency(strings.ToUpper(strings.TrimSpace(s)))
	if f.IsValid() {
		return f, true
	}
	return FrequencyMonthly, false
}

func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return true
	}
	return false
}

// Bill is a recurring bill owned by a user.
// IsPaid means the bill already was paid for its previous due date and now
// tracks the next cycle; NextDueDate is always the due date of the
// occurrence the bill currently represents.
type Bill struct {
	ID                 int64
	UserID             int64
	Name               string
	Category           string
	Description        string
	Amount             decimal.Decimal
	Frequency          Frequency
	NextDueDate        sql.NullTime // date only
	DayOfMonthDue      int          // informational, derived from NextDueDate on create/edit
	IsPaid             bool
	PaidDate           sql.NullTime
	ReminderDaysBefore sql.NullInt32
	ReminderHour       sql.NullInt32
	ReminderMinute     sql.NullInt32
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

const (
	DefaultReminderDaysBefore = 2
	DefaultReminderHour       = 9
	DefaultReminderMinute     = 0
)

// ReminderSettings is the resolved reminder lead time of a bill.
type ReminderSettings struct {
	DaysBefore int
	Hour       int
	Minute     int
}

// DefaultReminderSettings returns the settings applied to bills that never set their own.
func DefaultReminderSettings() ReminderSettings {
	return ReminderSettings{
		DaysBefore: DefaultReminderDaysBefore,
		Hour:       DefaultReminderHour,
		Minute:     DefaultReminderMinute,
	}
}

// Reminder resolves the bill's reminder settings. Only unset fields fall back
// to defaults; an explicit zero is kept.
func (b *Bill) Reminder() ReminderSettings {
	rs := DefaultReminderSettings()
	if b.ReminderDaysBefore.Valid {
		rs.DaysBefore = int(b.ReminderDaysBefore.Int32)
	}
	if b.ReminderHour.Valid {
		rs.Hour = int(b.ReminderHour.Int32)
	}
	if b.ReminderMinute.Valid {
		rs.Minute = int(b.ReminderMinute.Int32)
	}
	return rs
}

// SetReminder stores rs explicitly on the bill.
func (b *Bill) SetReminder(rs ReminderSettings) {
	b.ReminderDaysBefore = sql.NullInt32{Int32: int32(rs.DaysBefore), Valid: true}
	b.ReminderHour = sql.NullInt32{Int32: int32(rs.Hour), Valid: true}
	b.ReminderMinute = sql.NullInt32{Int32: int32(rs.Minute), Valid: true}
}

// SetNextDueDate sets the due date (time of day dropped) and re-derives DayOfMonthDue.
// Rollover through MarkPaid does not go through here.
func (b *Bill) SetNextDueDate(d time.Time) {
	b.NextDueDate = sql.NullTime{Time: DateOnly(d), Valid: true}
	b.DayOfMonthDue = d.Day()
}

func (rs ReminderSettings) validate() error {
	if rs.DaysBefore < 0 {
		return fmt.Errorf("%w: reminder days before must not be negative, got %d", ErrInvalidBill, rs.DaysBefore)
	}
	if rs.Hour < 0 || rs.Hour > 23 {
		return fmt.Errorf("%w: reminder hour must be in [0,23], got %d", ErrInvalidBill, rs.Hour)
	}
	if rs.Minute < 0 || rs.Minute > 59 {
		return fmt.Errorf("%w: reminder minute must be in [0,59], got %d", ErrInvalidBill, rs.Minute)
	}
	return nil
}

// Validate checks the bill before it is written to storage.
func (b *Bill) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidBill)
	}
	if b.Amount.IsNegative() {
		return fmt.Errorf("%w: amount %s is negative", ErrInvalidBill, b.Amount.String())
	}
	if !b.Frequency.IsValid() {
		return fmt.Errorf("%w: unknown frequency %q", ErrInvalidBill, b.Frequency)
	}
	// Zero is allowed only for a bill that never had a due date.
	minDay := 0
	if b.NextDueDate.Valid {
		minDay = 1
	}
	if b.DayOfMonthDue < minDay || b.DayOfMonthDue > 31 {
		return fmt.Errorf("%w: day of month due must be in [%d,31], got %d", ErrInvalidBill, minDay, b.DayOfMonthDue)
	}
	return b.Reminder().validate()
}

// Clone returns a shallow copy; Bill has no reference fields besides Amount, which is immutable.
func (b *Bill) Clone() *Bill {
	c := *b
	return &c
}

// DateLayout is the calendar date format used in storage and chat input.
const DateLayout = "2006-01-02"

// DateOnly truncates t to midnight in its own location.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AnchorTo moves the calendar date in NextDueDate to midnight in loc.
// Storage hands dates back at UTC midnight; reminder times must be computed
// in the user's zone.
func (b *Bill) AnchorTo(loc *time.Location) {
	if !b.NextDueDate.Valid || loc == nil {
		return
	}
	y, m, d := b.NextDueDate.Time.Date()
	b.NextDueDate.Time = time.Date(y, m, d, 0, 0, 0, 0, loc)
}
