package service

import "errors"

// 服务层通用错误
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailExists        = errors.New("email already registered")
	ErrWeakPassword       = errors.New("password does not satisfy policy")
	ErrTooManyAttempts    = errors.New("too many sign-in attempts")
	ErrUserDisabled       = errors.New("user disabled")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidDisplayName = errors.New("invalid display name")
	ErrAuthUnavailable    = errors.New("auth service unavailable")
)
