package public

import (
	"errors"

	handlershared "github.com/storefront-next/internal/http/handlers/shared"
	"github.com/storefront-next/internal/http/response"
	"github.com/storefront-next/internal/identity"
	"github.com/storefront-next/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	key    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackKey string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.key, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackKey, err)
}

// 细分原因优先于错误类别匹配
var authErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidEmail, code: response.CodeBadRequest, key: "error.email_invalid"},
	{target: service.ErrUserDisabled, code: response.CodeUnauthorized, key: "error.user_disabled"},
	{target: service.ErrInvalidDisplayName, code: response.CodeBadRequest, key: "error.display_name_invalid"},
	{target: identity.ErrSignedOut, code: response.CodeUnauthorized, key: "error.unauthorized"},
	{target: identity.ErrInvalidCredential, code: response.CodeUnauthorized, key: "error.login_invalid"},
	{target: identity.ErrAlreadyRegistered, code: response.CodeConflict, key: "error.email_exists"},
	{target: identity.ErrWeakCredential, code: response.CodeBadRequest, key: "error.password_weak"},
	{target: identity.ErrRateLimited, code: response.CodeTooManyRequests, key: "error.auth_rate_limited"},
}

// respondAuthError 将身份适配器错误映射为用户可读消息
func respondAuthError(c *gin.Context, err error) {
	var policyErr service.PasswordPolicyError
	if errors.As(err, &policyErr) {
		handlershared.RespondAppError(c, response.WrapError(response.CodeBadRequest, policyErr.Key(), nil, policyErr.Args()...))
		return
	}
	respondWithMappedError(c, err, authErrorRules, response.CodeInternal, "error.auth_failed")
}
