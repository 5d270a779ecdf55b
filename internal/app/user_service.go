package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bill_reminder_bot/internal/domain/user"
	idb "bill_reminder_bot/internal/infra/database"
)

var ErrAdminNotAuthorized = errors.New("performing user is not authorized as an admin")

type UserService struct {
	userRepo        user.Repository
	adminTelegramID int64
}

func NewUserService(ur user.Repository, adminID int64) *UserService {
	return &UserService{
		userRepo:        ur,
		adminTelegramID: adminID,
	}
}

// Register returns the user for telegramID, creating it on first contact.
// The bool reports whether a new user was created.
func (s *UserService) Register(ctx context.Context, telegramID int64, firstName, lastNameValue string) (*user.User, bool, error) {
	existing, err := s.userRepo.GetByTelegramID(ctx, telegramID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, idb.ErrUserNotFound) {
		return nil, false, fmt.Errorf("failed to check existing user: %w", err)
	}

	var lastName sql.NullString
	if lastNameValue != "" {
		lastName = sql.NullString{String: lastNameValue, Valid: true}
	}
	u := &user.User{
		TelegramID: telegramID,
		FirstName:  firstName,
		LastName:   lastName,
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		if errors.Is(err, idb.ErrDuplicateTelegramID) {
			// Lost a race with a concurrent /start.
			existing, err := s.userRepo.GetByTelegramID(ctx, telegramID)
			if err != nil {
				return nil, false, fmt.Errorf("failed to load concurrently created user: %w", err)
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("failed to create user in repository: %w", err)
	}
	return u, true, nil
}

func (s *UserService) GetByTelegramID(ctx context.Context, telegramID int64) (*user.User, error) {
	return s.userRepo.GetByTelegramID(ctx, telegramID)
}

func (s *UserService) IsAdmin(telegramID int64) bool {
	return s.adminTelegramID != 0 && telegramID == s.adminTelegramID
}

// ListUsers returns every registered user. Admin only.
func (s *UserService) ListUsers(ctx context.Context, performingAdminID int64) ([]*user.User, error) {
	if !s.IsAdmin(performingAdminID) {
		return nil, ErrAdminNotAuthorized
	}
	users, err := s.userRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}
