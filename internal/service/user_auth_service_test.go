package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/storefront-next/internal/cache"
	"github.com/storefront-next/internal/config"
	"github.com/storefront-next/internal/models"
	"github.com/storefront-next/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func setupUserAuthServiceTest(t *testing.T, withRedis bool) *UserAuthService {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if withRedis {
		mr := miniredis.RunT(t)
		cache.UseClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "sf-test")
	} else {
		cache.UseClient(nil, "")
	}
	t.Cleanup(func() {
		_ = cache.Close()
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	cfg := config.Defaults()
	cfg.UserJWT.SecretKey = "test-secret"
	cfg.Security.LoginRateLimit.MaxAttempts = 3
	cfg.Security.LoginRateLimit.WindowSeconds = 60
	return NewUserAuthService(cfg, repository.NewUserRepository(db))
}

func TestRegisterThenResolve(t *testing.T) {
	svc := setupUserAuthServiceTest(t, true)
	ctx := context.Background()

	session, err := svc.Register(ctx, " Ada@Example.com ", "secret1", "")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if session.User.Email != "ada@example.com" {
		t.Fatalf("email want normalized got %s", session.User.Email)
	}
	if session.User.DisplayName != "ada" {
		t.Fatalf("display name want derived from email got %s", session.User.DisplayName)
	}

	user, err := svc.Resolve(ctx, session.Token)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if user.UID != session.User.UID {
		t.Fatalf("uid want %s got %s", session.User.UID, user.UID)
	}
}

func TestRegisterRejectsDuplicateAndWeakPassword(t *testing.T) {
	svc := setupUserAuthServiceTest(t, false)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "ada@example.com", "secret1", "Ada"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := svc.Register(ctx, "ADA@example.com", "secret1", "Ada"); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("duplicate want ErrEmailExists got %v", err)
	}
	_, err := svc.Register(ctx, "bob@example.com", "123", "Bob")
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("short password want ErrWeakPassword got %v", err)
	}
	var policyErr PasswordPolicyError
	if !errors.As(err, &policyErr) || policyErr.Key() != "error.password_min_length" {
		t.Fatalf("policy error key want error.password_min_length got %v", err)
	}
}

func TestAuthenticateWrongPassword(t *testing.T) {
	svc := setupUserAuthServiceTest(t, false)
	ctx := context.Background()
	if _, err := svc.Register(ctx, "ada@example.com", "secret1", "Ada"); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, err := svc.Authenticate(ctx, "ada@example.com", "nope-nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password want ErrInvalidCredentials got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "ghost@example.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email want ErrInvalidCredentials got %v", err)
	}
	session, err := svc.Authenticate(ctx, "ada@example.com", "secret1")
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if session.User.LastLoginAt == nil {
		t.Fatalf("last login should be recorded")
	}
}

func TestAuthenticateRateLimited(t *testing.T) {
	svc := setupUserAuthServiceTest(t, true)
	ctx := context.Background()
	if _, err := svc.Register(ctx, "ada@example.com", "secret1", "Ada"); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := svc.Authenticate(ctx, "ada@example.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d want ErrInvalidCredentials got %v", i, err)
		}
	}
	if _, err := svc.Authenticate(ctx, "ada@example.com", "secret1"); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("fourth attempt want ErrTooManyAttempts got %v", err)
	}
}

func TestRevokeInvalidatesToken(t *testing.T) {
	svc := setupUserAuthServiceTest(t, true)
	ctx := context.Background()
	session, err := svc.Register(ctx, "ada@example.com", "secret1", "Ada")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if err := svc.Revoke(ctx, session.Token); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if _, err := svc.Resolve(ctx, session.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("revoked token want ErrInvalidToken got %v", err)
	}
	if _, err := svc.Resolve(ctx, "garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage token want ErrInvalidToken got %v", err)
	}
}

func TestRenameRefreshesCachedProfile(t *testing.T) {
	svc := setupUserAuthServiceTest(t, true)
	ctx := context.Background()
	session, err := svc.Register(ctx, "ada@example.com", "secret1", "Ada")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, err := svc.Rename(ctx, session.Token, "  "); !errors.Is(err, ErrInvalidDisplayName) {
		t.Fatalf("blank name want ErrInvalidDisplayName got %v", err)
	}
	renamed, err := svc.Rename(ctx, session.Token, "Countess")
	if err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	if renamed.DisplayName != "Countess" {
		t.Fatalf("display name want Countess got %s", renamed.DisplayName)
	}
	resolved, err := svc.Resolve(ctx, session.Token)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved.DisplayName != "Countess" {
		t.Fatalf("resolved display name want Countess got %s", resolved.DisplayName)
	}
}
