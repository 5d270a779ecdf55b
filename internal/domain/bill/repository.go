package bill

import (
	"context"
)

// Repository defines the storage boundary for bills.
type Repository interface {
	Create(ctx context.Context, b *Bill) error
	GetByID(ctx context.Context, id int64) (*Bill, error)
	ListByUser(ctx context.Context, userID int64) ([]*Bill, error)
	ListWithDueDate(ctx context.Context) ([]*Bill, error) // For the reminder job
	Update(ctx context.Context, b *Bill) error           // Editable fields only, cycle fields go through ApplyPatch
	// ApplyPatch writes all set patch fields in one statement and returns the stored bill.
	ApplyPatch(ctx context.Context, id int64, p Patch) (*Bill, error)
	Delete(ctx context.Context, id int64) error
}
