package service

import (
	"context"
	"testing"
	"time"

	"github.com/storefront-next/internal/constants"
	"github.com/storefront-next/internal/models"
	"github.com/storefront-next/internal/repository"
)

type fakeAuthEventRepo struct {
	created []models.AuthEvent
	filter  repository.AuthEventListFilter
}

func (r *fakeAuthEventRepo) Create(event *models.AuthEvent) error {
	r.created = append(r.created, *event)
	return nil
}

func (r *fakeAuthEventRepo) List(filter repository.AuthEventListFilter) ([]models.AuthEvent, int64, error) {
	r.filter = filter
	return r.created, int64(len(r.created)), nil
}

func (r *fakeAuthEventRepo) WithContext(context.Context) repository.AuthEventRepository { return r }

func TestAuthEventRecordNormalizesInput(t *testing.T) {
	repo := &fakeAuthEventRepo{}
	svc := NewAuthEventService(repo)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	if err := svc.Record(RecordAuthEventInput{
		Email:      "  Shopper@Example.COM ",
		Action:     constants.AuthEventActionSignIn,
		Status:     "weird",
		FailReason: "",
	}); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if err := svc.Record(RecordAuthEventInput{
		UserUID:    "u-1",
		Action:     constants.AuthEventActionSignIn,
		Status:     " SUCCESS ",
		FailReason: "invalid_credential",
	}); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	if len(repo.created) != 2 {
		t.Fatalf("created want 2 got %d", len(repo.created))
	}
	failed := repo.created[0]
	if failed.Email != "shopper@example.com" {
		t.Fatalf("email want normalized got %q", failed.Email)
	}
	if failed.Status != constants.AuthEventStatusFailed || failed.FailReason != constants.AuthErrorUnknown {
		t.Fatalf("unknown status should record a failure with unknown reason, got %+v", failed)
	}
	if failed.Source != constants.AuthEventSourceWeb || !failed.CreatedAt.Equal(fixed) {
		t.Fatalf("source/created_at want web/%v got %s/%v", fixed, failed.Source, failed.CreatedAt)
	}
	ok := repo.created[1]
	if ok.Status != constants.AuthEventStatusSuccess || ok.FailReason != "" {
		t.Fatalf("success should drop fail reason, got %+v", ok)
	}
}

func TestAuthEventListByUserClampsPaging(t *testing.T) {
	repo := &fakeAuthEventRepo{}
	svc := NewAuthEventService(repo)

	if _, _, err := svc.ListByUser("u-1", 0, 500); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if repo.filter.Page != 1 || repo.filter.PageSize != 100 || repo.filter.UserUID != "u-1" {
		t.Fatalf("unexpected filter: %+v", repo.filter)
	}

	repo.filter = repository.AuthEventListFilter{}
	events, total, err := svc.ListByUser("  ", 1, 20)
	if err != nil || total != 0 || len(events) != 0 {
		t.Fatalf("blank user should list nothing, got %v %d %v", events, total, err)
	}
	if repo.filter.UserUID != "" {
		t.Fatalf("blank user should not reach the repository")
	}
}
