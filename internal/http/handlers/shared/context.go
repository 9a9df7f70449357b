package shared

import (
	"github.com/storefront-next/internal/constants"
	"github.com/storefront-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetDeviceID 从上下文读取设备标识，缺失时返回错误响应
func GetDeviceID(c *gin.Context) (string, bool) {
	value, exists := c.Get(constants.DeviceContextKey)
	if !exists {
		RespondError(c, response.CodeBadRequest, "error.device_invalid", nil)
		return "", false
	}
	deviceID, ok := value.(string)
	if !ok || deviceID == "" {
		RespondError(c, response.CodeInternal, "error.device_invalid", nil)
		return "", false
	}
	return deviceID, true
}
