package store

import (
	"context"
	"encoding/json"

	"github.com/storefront-next/internal/constants"
	"github.com/storefront-next/internal/logger"
	"github.com/storefront-next/internal/models"
	"github.com/storefront-next/internal/repository"
)

// LocalStore 设备本地购物车（访客使用，单设备无外部变更）
type LocalStore struct {
	repo     repository.LocalSnapshotRepository
	deviceID string
}

// NewLocalStore 创建设备本地存储
func NewLocalStore(repo repository.LocalSnapshotRepository, deviceID string) *LocalStore {
	return &LocalStore{repo: repo, deviceID: deviceID}
}

// Load 读取本地快照
func (s *LocalStore) Load(ctx context.Context) (models.CartLines, error) {
	row, err := s.repo.WithContext(ctx).Get(s.deviceID, constants.LocalKeyCart)
	if err != nil {
		return models.CartLines{}, s.fail("load", err)
	}
	if row == nil || row.Value == "" {
		return models.CartLines{}, nil
	}
	var lines models.CartLines
	if err := json.Unmarshal([]byte(row.Value), &lines); err != nil {
		return models.CartLines{}, s.fail("load", err)
	}
	return lines, nil
}

// Save 覆盖本地快照，空购物车删除快照
func (s *LocalStore) Save(ctx context.Context, lines models.CartLines) error {
	repo := s.repo.WithContext(ctx)
	if len(lines) == 0 {
		if err := repo.Delete(s.deviceID, constants.LocalKeyCart); err != nil {
			return s.fail("save", err)
		}
		return nil
	}
	payload, err := json.Marshal(lines)
	if err != nil {
		return s.fail("save", err)
	}
	if err := repo.Put(s.deviceID, constants.LocalKeyCart, string(payload)); err != nil {
		return s.fail("save", err)
	}
	return nil
}

// Subscribe 本地存储没有外部变更来源
func (s *LocalStore) Subscribe(fn func(models.CartLines)) func() {
	return noopUnsubscribe
}

func (s *LocalStore) fail(op string, err error) error {
	logger.Warnw("cart_store_failed",
		"backend", constants.CartBackendLocal,
		"op", op,
		"device_id", s.deviceID,
		"error", err,
	)
	return &Error{Op: op, Backend: constants.CartBackendLocal, Err: err}
}
