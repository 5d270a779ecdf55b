package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bill_reminder_bot/internal/domain/bill"
)

type PostgresBillRepository struct {
	db *sql.DB
}

func NewPostgresBillRepository(db *sql.DB) *PostgresBillRepository {
	return &PostgresBillRepository{db: db}
}

const billColumns = `id, user_id, name, category, description, amount, frequency, next_due_date,
       day_of_month_due, is_paid, paid_date, reminder_days_before, reminder_hour, reminder_minute,
       created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBill(row rowScanner) (*bill.Bill, error) {
	b := &bill.Bill{}
	err := row.Scan(
		&b.ID, &b.UserID, &b.Name, &b.Category, &b.Description, &b.Amount, &b.Frequency, &b.NextDueDate,
		&b.DayOfMonthDue, &b.IsPaid, &b.PaidDate, &b.ReminderDaysBefore, &b.ReminderHour, &b.ReminderMinute,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// dateArg sends a calendar date as text so the session time zone cannot shift it.
func dateArg(t sql.NullTime) any {
	if !t.Valid {
		return nil
	}
	return t.Time.Format(bill.DateLayout)
}

func (r *PostgresBillRepository) Create(ctx context.Context, b *bill.Bill) error {
	query := `INSERT INTO bills (user_id, name, category, description, amount, frequency, next_due_date,
                   day_of_month_due, is_paid, paid_date, reminder_days_before, reminder_hour, reminder_minute)
               VALUES ($1, $2, $3, $4, $5, $6, $7::date, $8, $9, $10, $11, $12, $13)
               RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		b.UserID, b.Name, b.Category, b.Description, b.Amount, b.Frequency, dateArg(b.NextDueDate),
		b.DayOfMonthDue, b.IsPaid, b.PaidDate, b.ReminderDaysBefore, b.ReminderHour, b.ReminderMinute,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating bill: %w", err)
	}
	return nil
}

func (r *PostgresBillRepository) GetByID(ctx context.Context, id int64) (*bill.Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills WHERE id = $1`
	b, err := scanBill(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBillNotFound
		}
		return nil, fmt.Errorf("error getting bill by ID: %w", err)
	}
	return b, nil
}

func scanBills(rows *sql.Rows) ([]*bill.Bill, error) {
	bills := make([]*bill.Bill, 0)
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning bill row: %w", err)
		}
		bills = append(bills, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bill rows: %w", err)
	}
	return bills, nil
}

func (r *PostgresBillRepository) ListByUser(ctx context.Context, userID int64) ([]*bill.Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills
               WHERE user_id = $1 ORDER BY next_due_date NULLS LAST, id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing bills for user %d: %w", userID, err)
	}
	defer rows.Close()
	return scanBills(rows)
}

func (r *PostgresBillRepository) ListWithDueDate(ctx context.Context) ([]*bill.Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills
               WHERE next_due_date IS NOT NULL ORDER BY next_due_date, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing bills with due date: %w", err)
	}
	defer rows.Close()
	return scanBills(rows)
}

func (r *PostgresBillRepository) Update(ctx context.Context, b *bill.Bill) error {
	query := `UPDATE bills
               SET name = $1, category = $2, description = $3, amount = $4, frequency = $5,
                   next_due_date = $6::date, day_of_month_due = $7,
                   reminder_days_before = $8, reminder_hour = $9, reminder_minute = $10,
                   updated_at = NOW()
               WHERE id = $11
               RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query,
		b.Name, b.Category, b.Description, b.Amount, b.Frequency,
		dateArg(b.NextDueDate), b.DayOfMonthDue,
		b.ReminderDaysBefore, b.ReminderHour, b.ReminderMinute, b.ID,
	).Scan(&b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBillNotFound
		}
		return fmt.Errorf("error updating bill: %w", err)
	}
	return nil
}

// ApplyPatch updates the paid flag, paid date and due date in a single statement.
func (r *PostgresBillRepository) ApplyPatch(ctx context.Context, id int64, p bill.Patch) (*bill.Bill, error) {
	var isPaid sql.NullBool
	if p.IsPaid != nil {
		isPaid = sql.NullBool{Bool: *p.IsPaid, Valid: true}
	}
	var paidDate sql.NullTime
	if p.PaidDate != nil {
		paidDate = *p.PaidDate
	}
	var nextDue any
	if p.NextDueDate != nil {
		nextDue = dateArg(*p.NextDueDate)
	}

	query := `UPDATE bills
               SET is_paid = COALESCE($1::boolean, is_paid),
                   paid_date = CASE WHEN $2::boolean THEN $3::timestamptz ELSE paid_date END,
                   next_due_date = CASE WHEN $4::boolean THEN $5::date ELSE next_due_date END,
                   updated_at = NOW()
               WHERE id = $6
               RETURNING ` + billColumns
	b, err := scanBill(r.db.QueryRowContext(ctx, query,
		isPaid, p.PaidDate != nil, paidDate, p.NextDueDate != nil, nextDue, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBillNotFound
		}
		return nil, fmt.Errorf("error patching bill %d: %w", id, err)
	}
	return b, nil
}

func (r *PostgresBillRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bills WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting bill: %w", err)
	}
	return expectAffected(res, ErrBillNotFound)
}
