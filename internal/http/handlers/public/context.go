package public

import (
	"errors"

	handlershared "github.com/storefront-next/internal/http/handlers/shared"
	"github.com/storefront-next/internal/http/response"
	"github.com/storefront-next/internal/session"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

// currentSession 获取当前设备的会话，失败时已写入错误响应
func (h *Handler) currentSession(c *gin.Context) (*session.Session, bool) {
	deviceID, ok := handlershared.GetDeviceID(c)
	if !ok {
		return nil, false
	}
	sess, err := h.Sessions.Get(c.Request.Context(), deviceID)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrInvalidDeviceID):
			respondError(c, response.CodeBadRequest, "error.device_invalid", nil)
		default:
			respondError(c, response.CodeServiceUnavailable, "error.session_unavailable", err)
		}
		return nil, false
	}
	return sess, true
}
