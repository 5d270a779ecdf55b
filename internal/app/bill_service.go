package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"bill_reminder_bot/internal/domain/bill"
	"bill_reminder_bot/internal/domain/notification"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var ErrBillNotOwned = errors.New("bill belongs to another user")

// Notifier stores a message in a user's inbox.
type Notifier interface {
	Notify(ctx context.Context, userID int64, message string) (*notification.Notification, error)
}

// BillInput carries the user editable fields of a bill.
type BillInput struct {
	Name        string
	Category    string
	Description *string // nil keeps the current description
	Amount      decimal.Decimal
	Frequency   bill.Frequency
	NextDueDate *time.Time              // nil means no due date
	Reminder    *bill.ReminderSettings // nil keeps the current settings, defaults on create
}

// BillService runs bill operations for a user. Mutations of one bill are
// serialized so concurrent calls never act on stale state.
type BillService struct {
	billRepo bill.Repository
	notifier Notifier
	logger   *logrus.Entry

	loc            *time.Location
	currencySymbol string
	now            func() time.Time
	locks          keyedMutex
}

func NewBillService(br bill.Repository, notifier Notifier, logger *logrus.Entry, loc *time.Location, currencySymbol string) *BillService {
	if loc == nil {
		loc = time.Local
	}
	return &BillService{
		billRepo:       br,
		notifier:       notifier,
		logger:         logger,
		loc:            loc,
		currencySymbol: currencySymbol,
		now:            time.Now,
	}
}

// Now is the current time in the service's location.
func (s *BillService) Now() time.Time {
	return s.now().In(s.loc)
}

func (s *BillService) CreateBill(ctx context.Context, userID int64, in BillInput) (*bill.Bill, error) {
	b := &bill.Bill{UserID: userID}
	applyInput(b, in)
	rs := bill.DefaultReminderSettings()
	if in.Reminder != nil {
		rs = *in.Reminder
	}
	b.SetReminder(rs)
	if err := b.Validate(); err != nil {
		return nil, err
	}

	if err := s.billRepo.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to save bill: %w", err)
	}
	b.AnchorTo(s.loc)
	s.logger.WithFields(logrus.Fields{"bill_id": b.ID, "user_id": userID}).Info("Bill created")
	return b, nil
}

func (s *BillService) EditBill(ctx context.Context, userID, id int64, in BillInput) (*bill.Bill, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	b, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	applyInput(b, in)
	if in.Reminder != nil {
		b.SetReminder(*in.Reminder)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if err := s.billRepo.Update(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to save bill: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"bill_id": id, "user_id": userID}).Info("Bill updated")
	return b, nil
}

func applyInput(b *bill.Bill, in BillInput) {
	b.Name = strings.TrimSpace(in.Name)
	b.Category = strings.TrimSpace(in.Category)
	if in.Description != nil {
		b.Description = strings.TrimSpace(*in.Description)
	}
	b.Amount = in.Amount
	b.Frequency = in.Frequency
	if in.NextDueDate != nil {
		b.SetNextDueDate(*in.NextDueDate)
	} else {
		b.NextDueDate = sql.NullTime{}
	}
}

func (s *BillService) UpdateReminder(ctx context.Context, userID, id int64, rs bill.ReminderSettings) (*bill.Bill, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	b, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	b.SetReminder(rs)
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if err := s.billRepo.Update(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to save reminder: %w", err)
	}
	return b, nil
}

func (s *BillService) GetBill(ctx context.Context, userID, id int64) (*bill.Bill, error) {
	return s.load(ctx, userID, id)
}

func (s *BillService) ListBills(ctx context.Context, userID int64) ([]*bill.Bill, error) {
	bills, err := s.billRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	for _, b := range bills {
		b.AnchorTo(s.loc)
	}
	return bills, nil
}

// MarkPaid moves the bill to the next cycle with a single storage write.
func (s *BillService) MarkPaid(ctx context.Context, userID, id int64) (*bill.Bill, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	b, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	updated, err := s.billRepo.ApplyPatch(ctx, id, bill.MarkPaid(b, s.Now()))
	if err != nil {
		return nil, fmt.Errorf("failed to mark bill paid: %w", err)
	}
	updated.AnchorTo(s.loc)
	s.logger.WithFields(logrus.Fields{"bill_id": id, "user_id": userID, "next_due": dueString(updated)}).Info("Bill marked paid")
	return updated, nil
}

// MarkUnpaid moves the bill back to the current cycle. A bill coming back
// from the next cycle leaves a "Bill Alert" in the user's inbox.
func (s *BillService) MarkUnpaid(ctx context.Context, userID, id int64) (*bill.Bill, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	b, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.markUnpaidLocked(ctx, b)
}

func (s *BillService) markUnpaidLocked(ctx context.Context, b *bill.Bill) (*bill.Bill, error) {
	wasNextCycle := b.IsPaid
	updated, err := s.billRepo.ApplyPatch(ctx, b.ID, bill.MarkUnpaid(b))
	if err != nil {
		return nil, fmt.Errorf("failed to mark bill unpaid: %w", err)
	}
	updated.AnchorTo(s.loc)

	log := s.logger.WithFields(logrus.Fields{"bill_id": b.ID, "user_id": b.UserID})
	log.Info("Bill moved to current cycle")
	if wasNextCycle && updated.NextDueDate.Valid && s.notifier != nil {
		if _, err := s.notifier.Notify(ctx, updated.UserID, s.alertMessage(updated)); err != nil {
			log.WithError(err).Warn("Failed to store bill alert")
		}
	}
	return updated, nil
}

func (s *BillService) alertMessage(b *bill.Bill) string {
	days := bill.DaysUntil(b.NextDueDate.Time, s.Now())
	return fmt.Sprintf("Bill Alert: %s is now due in %d days (Due: %s). Amount: %s%s",
		b.Name, days, dueString(b), s.currencySymbol, b.Amount.StringFixed(2))
}

func (s *BillService) DeleteBill(ctx context.Context, userID, id int64) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	if _, err := s.load(ctx, userID, id); err != nil {
		return err
	}
	if err := s.billRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete bill: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"bill_id": id, "user_id": userID}).Info("Bill deleted")
	return nil
}

// SweepUser demotes the user's next-cycle bills that are due within the
// demotion window. It returns the number of bills moved.
func (s *BillService) SweepUser(ctx context.Context, userID int64) (int, error) {
	bills, err := s.ListBills(ctx, userID)
	if err != nil {
		return 0, err
	}
	return s.demote(ctx, bills)
}

// SweepAll runs the demotion sweep over every bill with a due date.
func (s *BillService) SweepAll(ctx context.Context) (int, error) {
	bills, err := s.billRepo.ListWithDueDate(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list bills for sweep: %w", err)
	}
	for _, b := range bills {
		b.AnchorTo(s.loc)
	}
	return s.demote(ctx, bills)
}

func (s *BillService) demote(ctx context.Context, bills []*bill.Bill) (int, error) {
	owners := make(map[int64]int64, len(bills))
	for _, b := range bills {
		owners[b.ID] = b.UserID
	}

	var errs []error
	moved := 0
	for _, id := range bill.Sweep(bills, s.Now()) {
		ok, err := s.demoteOne(ctx, owners[id], id)
		if err != nil {
			errs = append(errs, fmt.Errorf("bill %d: %w", id, err))
			continue
		}
		if ok {
			moved++
		}
	}
	return moved, errors.Join(errs...)
}

// demoteOne re-checks the bill under its lock; it may have changed since the list was read.
func (s *BillService) demoteOne(ctx context.Context, userID, id int64) (bool, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	b, err := s.load(ctx, userID, id)
	if err != nil {
		return false, err
	}
	if len(bill.Sweep([]*bill.Bill{b}, s.Now())) == 0 {
		return false, nil
	}
	if _, err := s.markUnpaidLocked(ctx, b); err != nil {
		return false, err
	}
	return true, nil
}

func (s *BillService) load(ctx context.Context, userID, id int64) (*bill.Bill, error) {
	b, err := s.billRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, ErrBillNotOwned
	}
	b.AnchorTo(s.loc)
	return b, nil
}

func dueString(b *bill.Bill) string {
	if !b.NextDueDate.Valid {
		return ""
	}
	return b.NextDueDate.Time.Format(bill.DateLayout)
}
