package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/storefront-next/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func appleLines(quantity int) models.CartLines {
	return models.CartLines{{
		ID:        "1",
		Name:      "Apple",
		UnitPrice: models.NewMoneyFromInt(40),
		Image:     "https://img.example/apple.png",
		Quantity:  quantity,
	}}
}

func TestCartRecordSaveAndLoad(t *testing.T) {
	repo := NewCartRecordRepository(openTestDB(t))

	if record, err := repo.GetByOwner("u-1"); err != nil || record != nil {
		t.Fatalf("absent record want nil,nil got %v,%v", record, err)
	}

	stamp, err := repo.Save("u-1", appleLines(2), time.Now())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	record, err := repo.GetByOwner("u-1")
	if err != nil || record == nil {
		t.Fatalf("load failed: %v", err)
	}
	if !record.Items.Equal(appleLines(2)) {
		t.Fatalf("items want %+v got %+v", appleLines(2), record.Items)
	}
	if !record.UpdatedAt.Equal(stamp) {
		t.Fatalf("updated_at want %v got %v", stamp, record.UpdatedAt)
	}
}

func TestCartRecordSaveStampsStrictlyIncrease(t *testing.T) {
	repo := NewCartRecordRepository(openTestDB(t))
	at := time.Now()

	first, err := repo.Save("u-1", appleLines(1), at)
	if err != nil {
		t.Fatalf("first save failed: %v", err)
	}
	second, err := repo.Save("u-1", appleLines(2), at)
	if err != nil {
		t.Fatalf("second save failed: %v", err)
	}
	if !second.After(first) {
		t.Fatalf("stamp should increase: first=%v second=%v", first, second)
	}
	third, found, err := repo.DeleteByOwner("u-1", at)
	if err != nil || !found {
		t.Fatalf("delete want found got found=%v err=%v", found, err)
	}
	if !third.After(second) {
		t.Fatalf("delete stamp should increase: second=%v third=%v", second, third)
	}
}

func TestCartRecordDeleteLeavesNoRecord(t *testing.T) {
	db := openTestDB(t)
	repo := NewCartRecordRepository(db)
	if _, err := repo.Save("u-1", appleLines(1), time.Now()); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, _, err := repo.DeleteByOwner("u-1", time.Now()); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	var count int64
	if err := db.Model(&models.CartRecord{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("record count want 0 got %d", count)
	}
	if _, found, err := repo.DeleteByOwner("u-1", time.Now()); err != nil || found {
		t.Fatalf("second delete want not found got found=%v err=%v", found, err)
	}
}

func TestCartRecordStampSurvivesDelete(t *testing.T) {
	repo := NewCartRecordRepository(openTestDB(t))
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	first, err := repo.Save("u-1", appleLines(1), at)
	if err != nil {
		t.Fatalf("first save failed: %v", err)
	}
	cleared, found, err := repo.DeleteByOwner("u-1", at)
	if err != nil || !found {
		t.Fatalf("delete want found got found=%v err=%v", found, err)
	}
	again, found, err := repo.DeleteByOwner("u-1", at)
	if err != nil || found {
		t.Fatalf("repeated delete want not found got found=%v err=%v", found, err)
	}
	saved, err := repo.Save("u-1", appleLines(3), at)
	if err != nil {
		t.Fatalf("save after delete failed: %v", err)
	}
	if !cleared.After(first) || !again.After(cleared) || !saved.After(again) {
		t.Fatalf("stamps should increase across delete: %v %v %v %v", first, cleared, again, saved)
	}

	record, err := repo.GetByOwner("u-1")
	if err != nil || record == nil {
		t.Fatalf("load after resave failed: record=%v err=%v", record, err)
	}
	if !record.Items.Equal(appleLines(3)) || !record.UpdatedAt.Equal(saved) {
		t.Fatalf("record want qty 3 at %v got %+v", saved, record)
	}
}
