package repository

import (
	"testing"
	"time"

	"github.com/storefront-next/internal/constants"
	"github.com/storefront-next/internal/models"
)

func TestUserRepositoryLookupAndUpdates(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))
	user := &models.User{
		UID:          "uid-1",
		Email:        "ada@example.com",
		PasswordHash: "hash",
		DisplayName:  "Ada",
		Status:       constants.UserStatusActive,
	}
	if err := repo.Create(user); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	got, err := repo.GetByEmail("  ADA@example.com ")
	if err != nil || got == nil {
		t.Fatalf("get by email failed: %v", err)
	}
	if got.UID != "uid-1" {
		t.Fatalf("uid want uid-1 got %s", got.UID)
	}
	if missing, err := repo.GetByUID("nope"); err != nil || missing != nil {
		t.Fatalf("missing uid want nil,nil got %v,%v", missing, err)
	}

	if err := repo.UpdateDisplayName("uid-1", "Countess"); err != nil {
		t.Fatalf("update display name failed: %v", err)
	}
	if err := repo.BumpTokenVersion("uid-1"); err != nil {
		t.Fatalf("bump token version failed: %v", err)
	}
	if err := repo.TouchLastLogin("uid-1", time.Now()); err != nil {
		t.Fatalf("touch last login failed: %v", err)
	}
	got, err = repo.GetByUID("uid-1")
	if err != nil || got == nil {
		t.Fatalf("get by uid failed: %v", err)
	}
	if got.DisplayName != "Countess" {
		t.Fatalf("display name want Countess got %s", got.DisplayName)
	}
	if got.TokenVersion != 1 {
		t.Fatalf("token version want 1 got %d", got.TokenVersion)
	}
	if got.LastLoginAt == nil {
		t.Fatalf("last login should be set")
	}
}
