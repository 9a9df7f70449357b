package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/storefront-next/internal/models"
)

const authStateCacheTTL = 10 * time.Minute

// UserAuthState 用户鉴权快照
// 仅用于服务端 Redis 缓存，解析 token 时避免每次查询数据库
type UserAuthState struct {
	UID          string `json:"uid"`
	Email        string `json:"email"`
	DisplayName  string `json:"display_name"`
	AvatarURL    string `json:"avatar_url"`
	Status       string `json:"status"`
	TokenVersion uint64 `json:"token_version"`
	UpdatedAt    int64  `json:"updated_at"`
}

func userAuthStateKey(uid string) string {
	return fmt.Sprintf("auth:user:%s", uid)
}

// BuildUserAuthState 从用户模型构建鉴权快照
func BuildUserAuthState(user *models.User) *UserAuthState {
	if user == nil {
		return nil
	}
	return &UserAuthState{
		UID:          user.UID,
		Email:        user.Email,
		DisplayName:  user.DisplayName,
		AvatarURL:    user.AvatarURL,
		Status:       user.Status,
		TokenVersion: user.TokenVersion,
		UpdatedAt:    time.Now().Unix(),
	}
}

// ToUser 还原为用户模型（仅包含快照字段）
func (s *UserAuthState) ToUser() *models.User {
	if s == nil {
		return nil
	}
	return &models.User{
		UID:          s.UID,
		Email:        s.Email,
		DisplayName:  s.DisplayName,
		AvatarURL:    s.AvatarURL,
		Status:       s.Status,
		TokenVersion: s.TokenVersion,
	}
}

// GetUserAuthState 获取用户鉴权快照
func GetUserAuthState(ctx context.Context, uid string) (*UserAuthState, bool, error) {
	if strings.TrimSpace(uid) == "" {
		return nil, false, nil
	}
	var state UserAuthState
	hit, err := GetJSON(ctx, userAuthStateKey(uid), &state)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &state, true, nil
}

// SetUserAuthState 写入用户鉴权快照
func SetUserAuthState(ctx context.Context, state *UserAuthState) error {
	if state == nil || strings.TrimSpace(state.UID) == "" {
		return nil
	}
	return SetJSON(ctx, userAuthStateKey(state.UID), state, authStateCacheTTL)
}

// DelUserAuthState 删除用户鉴权快照
func DelUserAuthState(ctx context.Context, uid string) error {
	if strings.TrimSpace(uid) == "" {
		return nil
	}
	return Del(ctx, userAuthStateKey(uid))
}
