package bill

import (
	"sort"
	"strings"
	"time"
)

// SortMode selects the ordering of a bill list.
type SortMode string

const (
	SortDueDateAsc   SortMode = "duedate-asc"
	SortDueDateDesc  SortMode = "duedate-desc"
	SortReminderAsc  SortMode = "reminder-asc"
	SortReminderDesc SortMode = "reminder-desc"
)

// ParseSortMode falls back to SortDueDateAsc for unknown input.
func ParseSortMode(s string) (SortMode, bool) {
	m := SortMode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case SortDueDateAsc, SortDueDateDesc, SortReminderAsc, SortReminderDesc:
		return m, true
	}
	return SortDueDateAsc, false
}

// SortBills orders bills in place. Bills without a due date go last in every mode.
func SortBills(bills []*Bill, mode SortMode) {
	key := func(b *Bill) (time.Time, bool) {
		if b.NextDueDate.Valid {
			return b.NextDueDate.Time, true
		}
		return time.Time{}, false
	}
	if mode == SortReminderAsc || mode == SortReminderDesc {
		key = ReminderAt
	}
	desc := mode == SortDueDateDesc || mode == SortReminderDesc

	sort.SliceStable(bills, func(i, j int) bool {
		ti, oki := key(bills[i])
		tj, okj := key(bills[j])
		switch {
		case !oki:
			return false
		case !okj:
			return true
		case desc:
			return ti.After(tj)
		default:
			return ti.Before(tj)
		}
	})
}

// Partition splits bills into the current cycle (unpaid) and the next cycle (paid).
func Partition(bills []*Bill) (current, next []*Bill) {
	for _, b := range bills {
		if b.IsPaid {
			next = append(next, b)
		} else {
			current = append(current, b)
		}
	}
	return current, next
}
