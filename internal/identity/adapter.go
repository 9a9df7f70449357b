package identity

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/storefront-next/internal/logger"
	"github.com/storefront-next/internal/models"
	"github.com/storefront-next/internal/service"
)

// Authenticator 外部身份服务
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*service.UserSession, error)
	Register(ctx context.Context, email, password, displayName string) (*service.UserSession, error)
	Resolve(ctx context.Context, token string) (*models.User, error)
	Revoke(ctx context.Context, token string) error
	Rename(ctx context.Context, token, displayName string) (*models.User, error)
}

type listener struct {
	id uint64
	fn func(*Identity)
}

// Adapter 身份提供方适配器
// 回调在触发切换的 goroutine 上按注册顺序同步执行，回调内不允许再调用登录登出
type Adapter struct {
	auth   Authenticator
	tokens TokenStore

	// opMu 串行化登录/注册/登出/恢复，保证回调按切换顺序执行
	opMu sync.Mutex

	mu        sync.RWMutex
	current   *Identity
	token     string
	listeners []listener
	nextID    uint64
}

var _ Provider = (*Adapter)(nil)

// NewAdapter 创建适配器
func NewAdapter(auth Authenticator, tokens TokenStore) *Adapter {
	return &Adapter{auth: auth, tokens: tokens}
}

// Current 当前身份，未登录返回 nil
func (a *Adapter) Current() *Identity {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current
}

// Token 当前会话 token
func (a *Adapter) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token
}

// OnChange 注册身份切换回调
func (a *Adapter) OnChange(fn func(*Identity)) func() {
	a.mu.Lock()
	a.nextID++
	id := a.nextID
	a.listeners = append(a.listeners, listener{id: id, fn: fn})
	a.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			defer a.mu.Unlock()
			for i, l := range a.listeners {
				if l.id == id {
					a.listeners = append(a.listeners[:i:i], a.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// SignIn 邮箱密码登录
func (a *Adapter) SignIn(ctx context.Context, creds Credentials) error {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	session, err := a.auth.Authenticate(ctx, creds.Email, creds.Password)
	if err != nil {
		return mapAuthError(err)
	}
	a.establish(ctx, session)
	return nil
}

// SignUp 注册并登录
func (a *Adapter) SignUp(ctx context.Context, creds Credentials) error {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	session, err := a.auth.Register(ctx, creds.Email, creds.Password, creds.DisplayName)
	if err != nil {
		return mapAuthError(err)
	}
	a.establish(ctx, session)
	return nil
}

// SignOut 登出，未登录时为空操作
func (a *Adapter) SignOut(ctx context.Context) error {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	token := a.Token()
	if a.Current() == nil && token == "" {
		return nil
	}
	if token != "" {
		if err := a.auth.Revoke(ctx, token); err != nil {
			logger.Warnw("identity_revoke_failed", "error", err)
		}
	}
	if err := a.tokens.ClearToken(ctx); err != nil {
		logger.Warnw("identity_token_clear_failed", "error", err)
	}
	a.transition(nil, "")
	return nil
}

// Restore 从设备保存的 token 恢复身份
// token 无效时清除 token 并保持未登录
func (a *Adapter) Restore(ctx context.Context) error {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	token, err := a.tokens.LoadToken(ctx)
	if err != nil {
		logger.Warnw("identity_token_load_failed", "error", err)
		return &AuthError{Kind: KindUnknown, Err: err}
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	user, err := a.auth.Resolve(ctx, token)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) || errors.Is(err, service.ErrUserDisabled) {
			if clearErr := a.tokens.ClearToken(ctx); clearErr != nil {
				logger.Warnw("identity_token_clear_failed", "error", clearErr)
			}
			a.transition(nil, "")
			return nil
		}
		return mapAuthError(err)
	}
	a.transition(fromUser(user), token)
	return nil
}

// UpdateDisplayName 修改昵称，身份 ID 不变因此不触发切换回调
func (a *Adapter) UpdateDisplayName(ctx context.Context, displayName string) (*Identity, error) {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	token := a.Token()
	if a.Current() == nil || token == "" {
		return nil, &AuthError{Kind: KindInvalidCredential, Err: ErrSignedOut}
	}
	user, err := a.auth.Rename(ctx, token, displayName)
	if err != nil {
		return nil, mapAuthError(err)
	}
	next := fromUser(user)
	a.transition(next, token)
	return next, nil
}

func (a *Adapter) establish(ctx context.Context, session *service.UserSession) {
	previous := a.Token()
	if previous != "" && previous != session.Token {
		if err := a.auth.Revoke(ctx, previous); err != nil {
			logger.Warnw("identity_revoke_failed", "error", err)
		}
	}
	if err := a.tokens.SaveToken(ctx, session.Token); err != nil {
		// 当前会话仍然有效，只是重启后无法恢复
		logger.Warnw("identity_token_save_failed", "error", err)
	}
	a.transition(fromUser(session.User), session.Token)
}

// transition 替换当前身份，身份 ID 变化时同步通知监听者
func (a *Adapter) transition(next *Identity, token string) {
	a.mu.Lock()
	previous := a.current
	a.current = next
	a.token = token
	changed := !sameIdentity(previous, next)
	var targets []listener
	if changed {
		targets = append(targets, a.listeners...)
	}
	a.mu.Unlock()

	if !changed {
		return
	}
	logger.Debugw("identity_changed",
		"from", idOf(previous),
		"to", idOf(next),
	)
	for _, l := range targets {
		l.fn(next)
	}
}

func fromUser(user *models.User) *Identity {
	if user == nil {
		return nil
	}
	return &Identity{
		ID:          user.UID,
		Email:       optional(user.Email),
		DisplayName: optional(user.DisplayName),
		AvatarURI:   optional(user.AvatarURL),
	}
}

func idOf(identity *Identity) string {
	if identity == nil {
		return ""
	}
	return identity.ID
}

func mapAuthError(err error) error {
	if err == nil {
		return nil
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr
	}
	switch {
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrUserDisabled),
		errors.Is(err, service.ErrInvalidDisplayName):
		return &AuthError{Kind: KindInvalidCredential, Err: err}
	case errors.Is(err, service.ErrEmailExists):
		return &AuthError{Kind: KindAlreadyRegistered, Err: err}
	case errors.Is(err, service.ErrWeakPassword):
		return &AuthError{Kind: KindWeakCredential, Err: err}
	case errors.Is(err, service.ErrTooManyAttempts):
		return &AuthError{Kind: KindRateLimited, Err: err}
	default:
		logger.Warnw("identity_provider_failed", "error", err)
		return &AuthError{Kind: KindUnknown, Err: err}
	}
}
