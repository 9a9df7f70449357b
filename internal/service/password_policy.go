package service

import (
	"unicode"

	"github.com/storefront-next/internal/config"
)

// PasswordPolicyError 密码策略校验错误，携带 i18n key 与参数
type PasswordPolicyError struct {
	key  string
	args []interface{}
}

func (e PasswordPolicyError) Error() string {
	return e.key
}

func (e PasswordPolicyError) Is(target error) bool {
	return target == ErrWeakPassword
}

// Key i18n 消息键
func (e PasswordPolicyError) Key() string {
	return e.key
}

// Args i18n 消息参数
func (e PasswordPolicyError) Args() []interface{} {
	return e.args
}

func validatePassword(policy config.PasswordPolicyConfig, password string) error {
	if len(password) == 0 {
		return PasswordPolicyError{key: "error.password_required"}
	}
	if policy.MinLength > 0 && len([]rune(password)) < policy.MinLength {
		return PasswordPolicyError{key: "error.password_min_length", args: []interface{}{policy.MinLength}}
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasNumber = true
		default:
			hasSpecial = true
		}
	}

	if policy.RequireUpper && !hasUpper {
		return PasswordPolicyError{key: "error.password_require_upper"}
	}
	if policy.RequireLower && !hasLower {
		return PasswordPolicyError{key: "error.password_require_lower"}
	}
	if policy.RequireNumber && !hasNumber {
		return PasswordPolicyError{key: "error.password_require_number"}
	}
	if policy.RequireSpecial && !hasSpecial {
		return PasswordPolicyError{key: "error.password_require_special"}
	}
	return nil
}
