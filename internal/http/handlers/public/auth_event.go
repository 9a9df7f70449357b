package public

import (
	"errors"

	"github.com/storefront-next/internal/constants"
	handlershared "github.com/storefront-next/internal/http/handlers/shared"
	"github.com/storefront-next/internal/http/response"
	"github.com/storefront-next/internal/identity"
	"github.com/storefront-next/internal/logger"
	"github.com/storefront-next/internal/service"
	"github.com/storefront-next/internal/session"

	"github.com/gin-gonic/gin"
)

// ListAuthEvents 当前用户的登录、注册、退出记录
func (h *Handler) ListAuthEvents(c *gin.Context) {
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}
	current := sess.Identity.Current()
	if current == nil {
		respondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return
	}
	page, pageSize := handlershared.ParsePagination(c)
	events, total, err := h.AuthEventService.ListByUser(current.ID, page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	totalPage := int64(0)
	if pageSize > 0 {
		totalPage = (total + int64(pageSize) - 1) / int64(pageSize)
	}
	response.SuccessWithPage(c, events, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: totalPage,
	})
}

// recordAuthEvent 记录身份事件，失败只写日志
func (h *Handler) recordAuthEvent(c *gin.Context, sess *session.Session, action, email string, prev *identity.Identity, authErr error) {
	input := service.RecordAuthEventInput{
		Email:     email,
		DeviceID:  sess.DeviceID,
		Action:    action,
		Status:    constants.AuthEventStatusSuccess,
		ClientIP:  c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		RequestID: c.GetString("request_id"),
	}
	if authErr == nil {
		if current := sess.Identity.Current(); current != nil {
			input.UserUID = current.ID
		} else if prev != nil {
			input.UserUID = prev.ID
		}
	} else {
		input.Status = constants.AuthEventStatusFailed
		input.FailReason = constants.AuthErrorUnknown
		var typed *identity.AuthError
		if errors.As(authErr, &typed) {
			input.FailReason = string(typed.Kind)
		}
	}
	if err := h.AuthEventService.Record(input); err != nil {
		logger.Warnw("auth_event_record_failed",
			"device_id", sess.DeviceID,
			"action", action,
			"error", err,
		)
	}
}
