package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bill_reminder_bot/internal/domain/bill"
	"bill_reminder_bot/internal/domain/notification"
	"bill_reminder_bot/internal/domain/user"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Records mirror the Postgres schema for the gorm backed SQLite store.

type userRecord struct {
	ID         int64  `gorm:"primaryKey"`
	TelegramID int64  `gorm:"uniqueIndex;not null"`
	FirstName  string `gorm:"not null"`
	LastName   *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (userRecord) TableName() string { return "users" }

type billRecord struct {
	ID                 int64           `gorm:"primaryKey"`
	UserID             int64           `gorm:"index;not null"`
	Name               string          `gorm:"not null"`
	Category           string          `gorm:"not null;default:''"`
	Description        string          `gorm:"not null;default:''"`
	Amount             decimal.Decimal `gorm:"type:text;not null"` // text keeps the exact decimal
	Frequency          string          `gorm:"type:varchar(20);not null"`
	NextDueDate        *string         `gorm:"type:varchar(10);index"` // YYYY-MM-DD
	DayOfMonthDue      int             `gorm:"not null;default:0"`
	IsPaid             bool            `gorm:"not null;default:false"`
	PaidDate           *time.Time
	ReminderDaysBefore *int32
	ReminderHour       *int32
	ReminderMinute     *int32
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (billRecord) TableName() string { return "bills" }

type notificationRecord struct {
	ID        int64  `gorm:"primaryKey"`
	UserID    int64  `gorm:"index;not null"`
	Message   string `gorm:"not null"`
	IsRead    bool   `gorm:"not null;default:false"`
	CreatedAt time.Time
}

func (notificationRecord) TableName() string { return "notifications" }

func nullInt32Ptr(v sql.NullInt32) *int32 {
	if !v.Valid {
		return nil
	}
	i := v.Int32
	return &i
}

func ptrNullInt32(p *int32) sql.NullInt32 {
	if p == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: *p, Valid: true}
}

func dateString(t sql.NullTime) *string {
	if !t.Valid {
		return nil
	}
	s := t.Time.Format(bill.DateLayout)
	return &s
}

func parseDateString(s *string) (sql.NullTime, error) {
	if s == nil || *s == "" {
		return sql.NullTime{}, nil
	}
	t, err := time.ParseInLocation(bill.DateLayout, *s, time.UTC)
	if err != nil {
		return sql.NullTime{}, fmt.Errorf("invalid stored date %q: %w", *s, err)
	}
	return sql.NullTime{Time: t, Valid: true}, nil
}

func toBillRecord(b *bill.Bill) *billRecord {
	rec := &billRecord{
		ID:                 b.ID,
		UserID:             b.UserID,
		Name:               b.Name,
		Category:           b.Category,
		Description:        b.Description,
		Amount:             b.Amount,
		Frequency:          string(b.Frequency),
		NextDueDate:        dateString(b.NextDueDate),
		DayOfMonthDue:      b.DayOfMonthDue,
		IsPaid:             b.IsPaid,
		ReminderDaysBefore: nullInt32Ptr(b.ReminderDaysBefore),
		ReminderHour:       nullInt32Ptr(b.ReminderHour),
		ReminderMinute:     nullInt32Ptr(b.ReminderMinute),
	}
	if b.PaidDate.Valid {
		t := b.PaidDate.Time
		rec.PaidDate = &t
	}
	return rec
}

func (rec *billRecord) toDomain() (*bill.Bill, error) {
	next, err := parseDateString(rec.NextDueDate)
	if err != nil {
		return nil, err
	}
	b := &bill.Bill{
		ID:                 rec.ID,
		UserID:             rec.UserID,
		Name:               rec.Name,
		Category:           rec.Category,
		Description:        rec.Description,
		Amount:             rec.Amount,
		Frequency:          bill.Frequency(rec.Frequency),
		NextDueDate:        next,
		DayOfMonthDue:      rec.DayOfMonthDue,
		IsPaid:             rec.IsPaid,
		ReminderDaysBefore: ptrNullInt32(rec.ReminderDaysBefore),
		ReminderHour:       ptrNullInt32(rec.ReminderHour),
		ReminderMinute:     ptrNullInt32(rec.ReminderMinute),
		CreatedAt:          rec.CreatedAt,
		UpdatedAt:          rec.UpdatedAt,
	}
	if rec.PaidDate != nil {
		b.PaidDate = sql.NullTime{Time: *rec.PaidDate, Valid: true}
	}
	return b, nil
}

func billsToDomain(records []billRecord) ([]*bill.Bill, error) {
	bills := make([]*bill.Bill, 0, len(records))
	for i := range records {
		b, err := records[i].toDomain()
		if err != nil {
			return nil, err
		}
		bills = append(bills, b)
	}
	return bills, nil
}

// GormUserRepository stores users through gorm.
type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func userFromRecord(rec *userRecord) *user.User {
	u := &user.User{
		ID:         rec.ID,
		TelegramID: rec.TelegramID,
		FirstName:  rec.FirstName,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}
	if rec.LastName != nil {
		u.LastName = sql.NullString{String: *rec.LastName, Valid: true}
	}
	return u
}

func (r *GormUserRepository) Create(ctx context.Context, u *user.User) error {
	rec := &userRecord{TelegramID: u.TelegramID, FirstName: u.FirstName}
	if u.LastName.Valid {
		ln := u.LastName.String
		rec.LastName = &ln
	}
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateTelegramID
		}
		return fmt.Errorf("create user: %w", err)
	}
	u.ID, u.CreatedAt, u.UpdatedAt = rec.ID, rec.CreatedAt, rec.UpdatedAt
	return nil
}

func (r *GormUserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	var rec userRecord
	if err := r.db.WithContext(ctx).First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return userFromRecord(&rec), nil
}

func (r *GormUserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*user.User, error) {
	var rec userRecord
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by telegram id: %w", err)
	}
	return userFromRecord(&rec), nil
}

func (r *GormUserRepository) ListAll(ctx context.Context) ([]*user.User, error) {
	var records []userRecord
	if err := r.db.WithContext(ctx).Order("id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]*user.User, 0, len(records))
	for i := range records {
		users = append(users, userFromRecord(&records[i]))
	}
	return users, nil
}

// GormBillRepository stores bills through gorm.
type GormBillRepository struct {
	db *gorm.DB
}

func NewGormBillRepository(db *gorm.DB) *GormBillRepository {
	return &GormBillRepository{db: db}
}

func (r *GormBillRepository) Create(ctx context.Context, b *bill.Bill) error {
	rec := toBillRecord(b)
	rec.ID = 0
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("create bill: %w", err)
	}
	b.ID, b.CreatedAt, b.UpdatedAt = rec.ID, rec.CreatedAt, rec.UpdatedAt
	return nil
}

func (r *GormBillRepository) GetByID(ctx context.Context, id int64) (*bill.Bill, error) {
	return r.get(r.db.WithContext(ctx), id)
}

func (r *GormBillRepository) get(db *gorm.DB, id int64) (*bill.Bill, error) {
	var rec billRecord
	if err := db.First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBillNotFound
		}
		return nil, fmt.Errorf("get bill by id: %w", err)
	}
	return rec.toDomain()
}

func (r *GormBillRepository) ListByUser(ctx context.Context, userID int64) ([]*bill.Bill, error) {
	var records []billRecord
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("next_due_date IS NULL, next_due_date, id").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list bills for user %d: %w", userID, err)
	}
	return billsToDomain(records)
}

func (r *GormBillRepository) ListWithDueDate(ctx context.Context) ([]*bill.Bill, error) {
	var records []billRecord
	if err := r.db.WithContext(ctx).Where("next_due_date IS NOT NULL").
		Order("next_due_date, id").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list bills with due date: %w", err)
	}
	return billsToDomain(records)
}

func (r *GormBillRepository) Update(ctx context.Context, b *bill.Bill) error {
	rec := toBillRecord(b)
	res := r.db.WithContext(ctx).Model(&billRecord{}).Where("id = ?", b.ID).Updates(map[string]any{
		"name":                 rec.Name,
		"category":             rec.Category,
		"description":          rec.Description,
		"amount":               rec.Amount,
		"frequency":            rec.Frequency,
		"next_due_date":        rec.NextDueDate,
		"day_of_month_due":     rec.DayOfMonthDue,
		"reminder_days_before": rec.ReminderDaysBefore,
		"reminder_hour":        rec.ReminderHour,
		"reminder_minute":      rec.ReminderMinute,
	})
	if res.Error != nil {
		return fmt.Errorf("update bill: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrBillNotFound
	}
	return nil
}

// ApplyPatch writes all set patch fields with one UPDATE.
func (r *GormBillRepository) ApplyPatch(ctx context.Context, id int64, p bill.Patch) (*bill.Bill, error) {
	updates := map[string]any{}
	if p.IsPaid != nil {
		updates["is_paid"] = *p.IsPaid
	}
	if p.PaidDate != nil {
		if p.PaidDate.Valid {
			updates["paid_date"] = p.PaidDate.Time
		} else {
			updates["paid_date"] = nil
		}
	}
	if p.NextDueDate != nil {
		updates["next_due_date"] = dateString(*p.NextDueDate)
	}

	var out *bill.Bill
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			res := tx.Model(&billRecord{}).Where("id = ?", id).Updates(updates)
			if res.Error != nil {
				return fmt.Errorf("patch bill %d: %w", id, res.Error)
			}
			if res.RowsAffected == 0 {
				return ErrBillNotFound
			}
		}
		b, err := r.get(tx, id)
		if err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormBillRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&billRecord{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete bill: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrBillNotFound
	}
	return nil
}

// GormNotificationRepository stores the notification inbox through gorm.
type GormNotificationRepository struct {
	db *gorm.DB
}

func NewGormNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

func notificationFromRecord(rec *notificationRecord) *notification.Notification {
	return &notification.Notification{
		ID:        rec.ID,
		UserID:    rec.UserID,
		Message:   rec.Message,
		IsRead:    rec.IsRead,
		CreatedAt: rec.CreatedAt,
	}
}

func (r *GormNotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	rec := &notificationRecord{UserID: n.UserID, Message: n.Message, IsRead: n.IsRead}
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	n.ID, n.CreatedAt = rec.ID, rec.CreatedAt
	return nil
}

func (r *GormNotificationRepository) GetByID(ctx context.Context, id int64) (*notification.Notification, error) {
	var rec notificationRecord
	if err := r.db.WithContext(ctx).First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("get notification by id: %w", err)
	}
	return notificationFromRecord(&rec), nil
}

func (r *GormNotificationRepository) list(ctx context.Context, userID int64, unreadOnly bool) ([]*notification.Notification, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	var records []notificationRecord
	if err := q.Order("created_at DESC, id DESC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list notifications for user %d: %w", userID, err)
	}
	list := make([]*notification.Notification, 0, len(records))
	for i := range records {
		list = append(list, notificationFromRecord(&records[i]))
	}
	return list, nil
}

func (r *GormNotificationRepository) ListByUser(ctx context.Context, userID int64) ([]*notification.Notification, error) {
	return r.list(ctx, userID, false)
}

func (r *GormNotificationRepository) ListUnreadByUser(ctx context.Context, userID int64) ([]*notification.Notification, error) {
	return r.list(ctx, userID, true)
}

func (r *GormNotificationRepository) SetRead(ctx context.Context, id int64, read bool) error {
	res := r.db.WithContext(ctx).Model(&notificationRecord{}).Where("id = ?", id).Update("is_read", read)
	if res.Error != nil {
		return fmt.Errorf("set notification read: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *GormNotificationRepository) MarkAllRead(ctx context.Context, userID int64) error {
	err := r.db.WithContext(ctx).Model(&notificationRecord{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error
	if err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}

func (r *GormNotificationRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&notificationRecord{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete notification: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *GormNotificationRepository) DeleteAllByUser(ctx context.Context, userID int64) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&notificationRecord{}).Error; err != nil {
		return fmt.Errorf("delete notifications of user %d: %w", userID, err)
	}
	return nil
}

func (r *GormNotificationRepository) CountUnread(ctx context.Context, userID int64) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&notificationRecord{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return int(n), nil
}
