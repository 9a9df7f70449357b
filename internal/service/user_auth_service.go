package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/storefront-next/internal/cache"
	"github.com/storefront-next/internal/config"
	"github.com/storefront-next/internal/constants"
	"github.com/storefront-next/internal/logger"
	"github.com/storefront-next/internal/models"
	"github.com/storefront-next/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const maxDisplayNameLength = 64

// UserAuthService 用户认证服务
type UserAuthService struct {
	cfg      *config.Config
	userRepo repository.UserRepository
	now      func() time.Time
}

// NewUserAuthService 创建用户认证服务
func NewUserAuthService(cfg *config.Config, userRepo repository.UserRepository) *UserAuthService {
	return &UserAuthService{
		cfg:      cfg,
		userRepo: userRepo,
		now:      time.Now,
	}
}

// UserSession 登录成功后的会话
type UserSession struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

// UserJWTClaims 用户 JWT 声明
type UserJWTClaims struct {
	UID          string `json:"uid"`
	Email        string `json:"email"`
	TokenVersion uint64 `json:"token_version"`
	jwt.RegisteredClaims
}

// GenerateUserJWT 生成用户 JWT Token
func (s *UserAuthService) GenerateUserJWT(user *models.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(time.Duration(resolveUserJWTExpireHours(s.cfg.UserJWT)) * time.Hour)
	claims := UserJWTClaims{
		UID:          user.UID,
		Email:        user.Email,
		TokenVersion: user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.UID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.UserJWT.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseUserJWT 解析用户 JWT Token
func (s *UserAuthService) ParseUserJWT(tokenString string) (*UserJWTClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	claims := &UserJWTClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.UserJWT.SecretKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || strings.TrimSpace(claims.UID) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Register 用户注册并直接登录
func (s *UserAuthService) Register(ctx context.Context, email, password, displayName string) (*UserSession, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(s.cfg.Security.PasswordPolicy, password); err != nil {
		return nil, err
	}
	name, err := normalizeDisplayName(displayName)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = resolveNicknameFromEmail(normalized)
	}

	repo := s.userRepo.WithContext(ctx)
	exist, err := repo.GetByEmail(normalized)
	if err != nil {
		return nil, err
	}
	if exist != nil {
		return nil, ErrEmailExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &models.User{
		UID:          uuid.NewString(),
		Email:        normalized,
		PasswordHash: string(hashedPassword),
		DisplayName:  name,
		Status:       constants.UserStatusActive,
		LastLoginAt:  &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.Create(user); err != nil {
		// 并发注册同一邮箱时唯一索引冲突
		if again, lookupErr := repo.GetByEmail(normalized); lookupErr == nil && again != nil {
			return nil, ErrEmailExists
		}
		return nil, err
	}

	session, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}
	logger.Infow("user_registered", "uid", user.UID)
	return session, nil
}

// Authenticate 邮箱密码登录
func (s *UserAuthService) Authenticate(ctx context.Context, email, password string) (*UserSession, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	attemptKey := signInAttemptKey(normalized)
	if err := s.checkSignInAttempts(ctx, attemptKey); err != nil {
		return nil, err
	}

	repo := s.userRepo.WithContext(ctx)
	user, err := repo.GetByEmail(normalized)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if strings.ToLower(user.Status) != constants.UserStatusActive {
		return nil, ErrUserDisabled
	}

	now := s.now()
	if err := repo.TouchLastLogin(user.UID, now); err != nil {
		logger.Warnw("user_touch_last_login_failed", "uid", user.UID, "error", err)
	}
	user.LastLoginAt = &now
	if err := cache.ResetWindow(ctx, attemptKey); err != nil {
		logger.Warnw("sign_in_attempts_reset_failed", "uid", user.UID, "error", err)
	}
	return s.issueSession(ctx, user)
}

// Resolve 根据 token 恢复用户资料
func (s *UserAuthService) Resolve(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.ParseUserJWT(token)
	if err != nil {
		return nil, err
	}
	if revoked, err := s.isRevoked(ctx, claims.ID); err != nil {
		logger.Warnw("user_token_revocation_check_failed", "uid", claims.UID, "error", err)
	} else if revoked {
		return nil, ErrInvalidToken
	}

	user, err := s.loadAuthUser(ctx, claims.UID)
	if err != nil {
		return nil, err
	}
	if user == nil || user.TokenVersion != claims.TokenVersion {
		return nil, ErrInvalidToken
	}
	if strings.ToLower(user.Status) != constants.UserStatusActive {
		return nil, ErrUserDisabled
	}
	return user, nil
}

// Revoke 注销 token
func (s *UserAuthService) Revoke(ctx context.Context, token string) error {
	claims, err := s.ParseUserJWT(token)
	if err != nil {
		// 已失效的 token 无需注销
		return nil
	}
	if claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	return cache.SetJSON(ctx, revokedTokenKey(claims.ID), true, ttl)
}

// Rename 修改昵称
func (s *UserAuthService) Rename(ctx context.Context, token, displayName string) (*models.User, error) {
	user, err := s.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	name, err := normalizeDisplayName(displayName)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, ErrInvalidDisplayName
	}
	if err := s.userRepo.WithContext(ctx).UpdateDisplayName(user.UID, name); err != nil {
		return nil, err
	}
	if err := cache.DelUserAuthState(ctx, user.UID); err != nil {
		logger.Warnw("user_auth_state_evict_failed", "uid", user.UID, "error", err)
	}
	user.DisplayName = name
	return user, nil
}

func (s *UserAuthService) issueSession(ctx context.Context, user *models.User) (*UserSession, error) {
	token, expiresAt, err := s.GenerateUserJWT(user)
	if err != nil {
		return nil, err
	}
	if err := cache.SetUserAuthState(ctx, cache.BuildUserAuthState(user)); err != nil {
		logger.Warnw("user_auth_state_cache_failed", "uid", user.UID, "error", err)
	}
	return &UserSession{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (s *UserAuthService) loadAuthUser(ctx context.Context, uid string) (*models.User, error) {
	state, hit, err := cache.GetUserAuthState(ctx, uid)
	if err != nil {
		logger.Warnw("user_auth_state_read_failed", "uid", uid, "error", err)
	}
	if hit && state != nil {
		return state.ToUser(), nil
	}
	user, err := s.userRepo.WithContext(ctx).GetByUID(uid)
	if err != nil || user == nil {
		return user, err
	}
	if err := cache.SetUserAuthState(ctx, cache.BuildUserAuthState(user)); err != nil {
		logger.Warnw("user_auth_state_cache_failed", "uid", uid, "error", err)
	}
	return user, nil
}

func (s *UserAuthService) checkSignInAttempts(ctx context.Context, key string) error {
	limit := s.cfg.Security.LoginRateLimit
	hit, err := cache.HitWindow(ctx, key, limit.WindowSeconds)
	if err != nil {
		logger.Warnw("sign_in_rate_limit_unavailable", "error", err)
		return fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}
	if hit.Exceeded(limit.MaxAttempts) {
		return ErrTooManyAttempts
	}
	return nil
}

func (s *UserAuthService) isRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	var revoked bool
	hit, err := cache.GetJSON(ctx, revokedTokenKey(tokenID), &revoked)
	if err != nil {
		return false, err
	}
	return hit && revoked, nil
}

func signInAttemptKey(email string) string {
	return fmt.Sprintf("auth:signin:%s", email)
}

func revokedTokenKey(tokenID string) string {
	return fmt.Sprintf("auth:revoked:%s", tokenID)
}

func normalizeEmail(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return "", ErrInvalidEmail
	}
	if _, err := mail.ParseAddress(normalized); err != nil {
		return "", ErrInvalidEmail
	}
	return normalized, nil
}

// NormalizeEmail 统一邮箱格式
func NormalizeEmail(email string) (string, error) {
	return normalizeEmail(email)
}

func normalizeDisplayName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if utf8.RuneCountInString(name) > maxDisplayNameLength {
		return "", ErrInvalidDisplayName
	}
	return name, nil
}

func resolveUserJWTExpireHours(cfg config.JWTConfig) int {
	if cfg.ExpireHours <= 0 {
		return 24
	}
	return cfg.ExpireHours
}

func resolveNicknameFromEmail(email string) string {
	parts := strings.SplitN(email, "@", 2)
	if len(parts) == 2 && strings.TrimSpace(parts[0]) != "" {
		return strings.TrimSpace(parts[0])
	}
	return email
}
