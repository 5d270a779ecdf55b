package bill

import (
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseFrequency(t *testing.T) {
	cases := []struct {
		in   string
		want Frequency
		ok   bool
	}{
		{"monthly", FrequencyMonthly, true},
		{" Weekly ", FrequencyWeekly, true},
		{"QUARTERLY", FrequencyQuarterly, true},
		{"yearly", FrequencyYearly, true},
		{"daily", FrequencyDaily, true},
		{"biweekly", FrequencyMonthly, false},
		{"", FrequencyMonthly, false},
	}
	for _, tc := range cases {
		got, ok := ParseFrequency(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ParseFrequency(%q) = (%s, %v), want (%s, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestReminderDefaults(t *testing.T) {
	b := &Bill{}
	if got := b.Reminder(); got != DefaultReminderSettings() {
		t.Fatalf("Reminder() = %+v, want defaults", got)
	}

	b.ReminderDaysBefore = sql.NullInt32{Int32: 0, Valid: true}
	got := b.Reminder()
	if got.DaysBefore != 0 {
		t.Fatalf("DaysBefore = %d, want explicit 0 to be kept", got.DaysBefore)
	}
	if got.Hour != DefaultReminderHour || got.Minute != DefaultReminderMinute {
		t.Fatalf("unset hour/minute = %d:%d, want defaults", got.Hour, got.Minute)
	}
}

func TestSetNextDueDateDerivesDayOfMonth(t *testing.T) {
	b := &Bill{}
	b.SetNextDueDate(mustTime(t, "2025-05-31 13:20"))
	if b.DayOfMonthDue != 31 {
		t.Fatalf("DayOfMonthDue = %d, want 31", b.DayOfMonthDue)
	}
	if b.NextDueDate.Time.Hour() != 0 || b.NextDueDate.Time.Minute() != 0 {
		t.Fatalf("NextDueDate kept time of day: %s", b.NextDueDate.Time)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Bill {
		return &Bill{
			Name:      "Rent",
			Amount:    decimal.RequireFromString("1200.50"),
			Frequency: FrequencyMonthly,
		}
	}
	if err := valid().Validate(); err != nil {
		t.Fatalf("Validate(valid) = %v", err)
	}

	cases := map[string]func(b *Bill){
		"empty name":      func(b *Bill) { b.Name = "  " },
		"negative amount": func(b *Bill) { b.Amount = decimal.NewFromInt(-1) },
		"bad frequency":   func(b *Bill) { b.Frequency = "HOURLY" },
		"bad day":         func(b *Bill) { b.DayOfMonthDue = 32 },
		"negative days":   func(b *Bill) { b.SetReminder(ReminderSettings{DaysBefore: -1, Hour: 9}) },
		"hour too large":  func(b *Bill) { b.SetReminder(ReminderSettings{DaysBefore: 1, Hour: 24}) },
		"minute too big":  func(b *Bill) { b.SetReminder(ReminderSettings{DaysBefore: 1, Hour: 9, Minute: 60}) },
	}
	undated := valid()
	undated.DayOfMonthDue = 0
	if err := undated.Validate(); err != nil {
		t.Fatalf("Validate(no due date, day 0) = %v", err)
	}
	dated := valid()
	dated.NextDueDate = due(mustDate(t, "2025-05-31"))
	err := dated.Validate()
	if err == nil || !strings.Contains(err.Error(), "[1,31]") {
		t.Fatalf("Validate(dated, day 0) = %v, want a [1,31] range error", err)
	}

	for name, mutate := range cases {
		b := valid()
		mutate(b)
		if err := b.Validate(); !errors.Is(err, ErrInvalidBill) {
			t.Fatalf("%s: Validate() = %v, want ErrInvalidBill", name, err)
		}
	}
}

func TestSortBills(t *testing.T) {
	mk := func(id int64, date string, days int) *Bill {
		b := &Bill{ID: id}
		if date != "" {
			b.NextDueDate = due(mustDate(t, date))
		}
		b.SetReminder(ReminderSettings{DaysBefore: days, Hour: 9})
		return b
	}
	ids := func(bills []*Bill) []int64 {
		out := make([]int64, len(bills))
		for i, b := range bills {
			out[i] = b.ID
		}
		return out
	}
	equal := func(a, b []int64) bool {
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
		return true
	}

	base := func() []*Bill {
		return []*Bill{
			mk(1, "2025-03-10", 0), // reminder 03-10
			mk(2, "", 2),
			mk(3, "2025-03-05", 0), // reminder 03-05
			mk(4, "2025-03-12", 9), // reminder 03-03
		}
	}

	cases := []struct {
		mode SortMode
		want []int64
	}{
		{SortDueDateAsc, []int64{3, 1, 4, 2}},
		{SortDueDateDesc, []int64{4, 1, 3, 2}},
		{SortReminderAsc, []int64{4, 3, 1, 2}},
		{SortReminderDesc, []int64{1, 3, 4, 2}},
	}
	for _, tc := range cases {
		bills := base()
		SortBills(bills, tc.mode)
		if got := ids(bills); !equal(got, tc.want) {
			t.Fatalf("SortBills(%s) = %v, want %v", tc.mode, got, tc.want)
		}
	}
}

func TestParseSortMode(t *testing.T) {
	if m, ok := ParseSortMode("Reminder-Desc"); !ok || m != SortReminderDesc {
		t.Fatalf("ParseSortMode = (%s, %v)", m, ok)
	}
	if m, ok := ParseSortMode("alphabetical"); ok || m != SortDueDateAsc {
		t.Fatalf("ParseSortMode(unknown) = (%s, %v), want fallback", m, ok)
	}
}

func TestPartition(t *testing.T) {
	bills := []*Bill{{ID: 1}, {ID: 2, IsPaid: true}, {ID: 3}}
	current, next := Partition(bills)
	if len(current) != 2 || current[0].ID != 1 || current[1].ID != 3 {
		t.Fatalf("current = %v", current)
	}
	if len(next) != 1 || next[0].ID != 2 {
		t.Fatalf("next = %v", next)
	}
}
