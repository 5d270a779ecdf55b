package bill

import (
	"database/sql"
	"fmt"
	"math"
	"time"
)

const day = 24 * time.Hour

// DemotionWindowDays is how close (in days) a next-cycle bill's due date must
// be before the sweep moves it back to the current cycle.
const DemotionWindowDays = 7

// UrgentWithinDays is the largest day difference still classified as urgent.
const UrgentWithinDays = 3

// Advance returns the due date one period after due.
// Month based periods keep the day of month and clamp to the last day of
// the target month (Jan 31 -> Feb 28/29). Unknown frequencies advance monthly.
func Advance(due time.Time, f Frequency) time.Time {
	switch f {
	case FrequencyDaily:
		return due.AddDate(0, 0, 1)
	case FrequencyWeekly:
		return due.AddDate(0, 0, 7)
	case FrequencyQuarterly:
		return addMonthsClamped(due, 3)
	case FrequencyYearly:
		return addMonthsClamped(due, 12)
	default:
		return addMonthsClamped(due, 1)
	}
}

// addMonthsClamped differs from time.AddDate, which normalises Jan 31 + 1 month to Mar 3.
func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := daysInMonth(first.Year(), first.Month()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DueStatus is the urgency classification of a bill's next due date.
type DueStatus string

const (
	DueStatusOverdue DueStatus = "OVERDUE"
	DueStatusUrgent  DueStatus = "URGENT"
	DueStatusNormal  DueStatus = "NORMAL"
)

// DaysUntil returns ceil((next - now) / 24h).
func DaysUntil(next, now time.Time) int {
	diff := next.Sub(now)
	return int(math.Ceil(float64(diff) / float64(day)))
}

// Classify buckets a due date relative to now. A bill without a due date is NORMAL.
func Classify(next sql.NullTime, now time.Time) DueStatus {
	if !next.Valid {
		return DueStatusNormal
	}
	diffDays := DaysUntil(next.Time, now)
	switch {
	case diffDays < 0:
		return DueStatusOverdue
	case diffDays <= UrgentWithinDays:
		return DueStatusUrgent
	default:
		return DueStatusNormal
	}
}

// Status is Classify applied to the bill's next due date.
func (b *Bill) Status(now time.Time) DueStatus {
	return Classify(b.NextDueDate, now)
}

// DueLabel is the human readable due state of the bill.
func (b *Bill) DueLabel(now time.Time) string {
	if !b.NextDueDate.Valid {
		return fmt.Sprintf("Due on day %d of month", b.DayOfMonthDue)
	}
	diffDays := DaysUntil(b.NextDueDate.Time, now)
	switch {
	case diffDays < 0:
		return "Overdue"
	case diffDays == 0:
		return "Due Today"
	case diffDays == 1:
		return "Due Tomorrow"
	default:
		return fmt.Sprintf("Due in %d days", diffDays)
	}
}

// ReminderAt is the instant the bill's reminder fires: the due date minus
// the reminder days, at the reminder hour and minute. False when the bill
// has no due date.
func ReminderAt(b *Bill) (time.Time, bool) {
	if !b.NextDueDate.Valid {
		return time.Time{}, false
	}
	rs := b.Reminder()
	y, m, d := b.NextDueDate.Time.Date()
	return time.Date(y, m, d-rs.DaysBefore, rs.Hour, rs.Minute, 0, 0, b.NextDueDate.Time.Location()), true
}

// Countdown is a duration split into whole days, hours and minutes.
type Countdown struct {
	Days    int
	Hours   int
	Minutes int
}

func (c Countdown) String() string {
	return fmt.Sprintf("%dd %dh %dm", c.Days, c.Hours, c.Minutes)
}

// TimeRemaining is the time left until the bill's reminder fires.
// False once the reminder time has been reached or when there is no due date.
func TimeRemaining(b *Bill, now time.Time) (Countdown, bool) {
	at, ok := ReminderAt(b)
	if !ok || !at.After(now) {
		return Countdown{}, false
	}
	diff := at.Sub(now)
	return Countdown{
		Days:    int(diff / day),
		Hours:   int((diff % day) / time.Hour),
		Minutes: int((diff % time.Hour) / time.Minute),
	}, true
}

// Sweep returns the ids of next-cycle bills whose due date is at most
// DemotionWindowDays away (or already past). It does not modify the bills.
func Sweep(bills []*Bill, now time.Time) []int64 {
	cutoff := now.AddDate(0, 0, DemotionWindowDays)
	var ids []int64
	for _, b := range bills {
		if b == nil || !b.IsPaid || !b.NextDueDate.Valid {
			continue
		}
		if !b.NextDueDate.Time.After(cutoff) {
			ids = append(ids, b.ID)
		}
	}
	return ids
}

// Patch is a partial update of a bill's cycle fields. Nil fields are left untouched.
// Storage must apply a patch in a single write.
type Patch struct {
	IsPaid      *bool
	PaidDate    *sql.NullTime
	NextDueDate *sql.NullTime
}

func (p Patch) IsEmpty() bool {
	return p.IsPaid == nil && p.PaidDate == nil && p.NextDueDate == nil
}

// Apply returns a copy of b with the patch applied.
func (p Patch) Apply(b *Bill) *Bill {
	out := b.Clone()
	if p.IsPaid != nil {
		out.IsPaid = *p.IsPaid
	}
	if p.PaidDate != nil {
		out.PaidDate = *p.PaidDate
	}
	if p.NextDueDate != nil {
		out.NextDueDate = *p.NextDueDate
	}
	return out
}

// MarkPaid moves the bill to the next cycle: paid now, due date advanced one period.
// A bill without a due date only gets the paid flag and timestamp.
func MarkPaid(b *Bill, now time.Time) Patch {
	paid := true
	paidDate := sql.NullTime{Time: now, Valid: true}
	p := Patch{IsPaid: &paid, PaidDate: &paidDate}
	if b.NextDueDate.Valid {
		next := sql.NullTime{Time: Advance(b.NextDueDate.Time, b.Frequency), Valid: true}
		p.NextDueDate = &next
	}
	return p
}

// MarkUnpaid moves the bill back to the current cycle. Paid date and due date are kept.
func MarkUnpaid(_ *Bill) Patch {
	paid := false
	return Patch{IsPaid: &paid}
}
