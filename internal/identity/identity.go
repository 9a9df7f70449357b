package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/storefront-next/internal/constants"
)

// Identity 已认证身份（不可变值，每次变化都会构造新值）
type Identity struct {
	ID          string
	Email       *string
	DisplayName *string
	AvatarURI   *string
}

// Credentials 登录注册凭据
type Credentials struct {
	Email       string
	Password    string
	DisplayName string
}

// Provider 身份提供方
type Provider interface {
	Current() *Identity
	// OnChange 身份切换时同步回调（出现、消失或切换为其他用户）
	OnChange(fn func(*Identity)) (unsubscribe func())
	SignIn(ctx context.Context, creds Credentials) error
	SignUp(ctx context.Context, creds Credentials) error
	SignOut(ctx context.Context) error
}

// Kind 认证错误类型
type Kind string

// 认证错误类型
const (
	KindInvalidCredential Kind = constants.AuthErrorInvalidCredential
	KindAlreadyRegistered Kind = constants.AuthErrorAlreadyRegistered
	KindWeakCredential    Kind = constants.AuthErrorWeakCredential
	KindRateLimited       Kind = constants.AuthErrorRateLimited
	KindUnknown           Kind = constants.AuthErrorUnknown
)

// AuthError 认证失败
type AuthError struct {
	Kind Kind
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("auth: %s", e.Kind)
	}
	return fmt.Sprintf("auth: %s: %v", e.Kind, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is 按错误类型比较，便于 errors.Is(err, ErrRateLimited)
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	if !ok {
		return false
	}
	return t.Err == nil && t.Kind == e.Kind
}

// 按类型比较用的哨兵错误
var (
	ErrInvalidCredential = &AuthError{Kind: KindInvalidCredential}
	ErrAlreadyRegistered = &AuthError{Kind: KindAlreadyRegistered}
	ErrWeakCredential    = &AuthError{Kind: KindWeakCredential}
	ErrRateLimited       = &AuthError{Kind: KindRateLimited}
	ErrUnknown           = &AuthError{Kind: KindUnknown}
)

// ErrSignedOut 当前没有已登录身份
var ErrSignedOut = errors.New("identity: not signed in")

// KindOf 提取错误类型，非认证错误返回 Unknown
func KindOf(err error) Kind {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Kind
	}
	return KindUnknown
}

func sameIdentity(a, b *Identity) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID == b.ID
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

// Value 解引用可选字段
func Value(field *string) string {
	if field == nil {
		return ""
	}
	return *field
}
