package identity

import (
	"context"

	"github.com/storefront-next/internal/constants"
	"github.com/storefront-next/internal/repository"
)

// TokenStore 设备上保存的会话 token
type TokenStore interface {
	LoadToken(ctx context.Context) (string, error)
	SaveToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
}

// LocalTokenStore 基于设备本地快照的 token 存储
type LocalTokenStore struct {
	repo     repository.LocalSnapshotRepository
	deviceID string
}

// NewLocalTokenStore 创建设备 token 存储
func NewLocalTokenStore(repo repository.LocalSnapshotRepository, deviceID string) *LocalTokenStore {
	return &LocalTokenStore{repo: repo, deviceID: deviceID}
}

// LoadToken 读取 token，不存在返回空串
func (s *LocalTokenStore) LoadToken(ctx context.Context) (string, error) {
	row, err := s.repo.WithContext(ctx).Get(s.deviceID, constants.LocalKeySession)
	if err != nil || row == nil {
		return "", err
	}
	return row.Value, nil
}

// SaveToken 保存 token
func (s *LocalTokenStore) SaveToken(ctx context.Context, token string) error {
	return s.repo.WithContext(ctx).Put(s.deviceID, constants.LocalKeySession, token)
}

// ClearToken 删除 token
func (s *LocalTokenStore) ClearToken(ctx context.Context) error {
	return s.repo.WithContext(ctx).Delete(s.deviceID, constants.LocalKeySession)
}
