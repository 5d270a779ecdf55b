package app

import (
	"context"
	"errors"
	"testing"
)

func TestUserServiceRegisterIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(&fakeUserRepo{}, 100)

	u, created, err := svc.Register(ctx, 42, "Asha", "Rao")
	if err != nil || !created {
		t.Fatalf("first Register = %v, %v", created, err)
	}
	if u.DisplayName() != "Asha Rao" {
		t.Errorf("display name = %q", u.DisplayName())
	}

	again, created, err := svc.Register(ctx, 42, "Someone", "")
	if err != nil {
		t.Fatalf("second Register: %v", err)
	}
	if created || again.ID != u.ID {
		t.Errorf("second Register created=%v id=%d, want existing %d", created, again.ID, u.ID)
	}
}

func TestUserServiceListUsersAdminOnly(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(&fakeUserRepo{}, 100)
	if _, _, err := svc.Register(ctx, 42, "Asha", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := svc.ListUsers(ctx, 42); !errors.Is(err, ErrAdminNotAuthorized) {
		t.Errorf("non-admin err = %v, want ErrAdminNotAuthorized", err)
	}
	users, err := svc.ListUsers(ctx, 100)
	if err != nil {
		t.Fatalf("admin ListUsers: %v", err)
	}
	if len(users) != 1 {
		t.Errorf("users = %d, want 1", len(users))
	}
}
