package response

// 业务状态码，与 HTTP 语义保持一致
const (
	CodeOK                 = 0
	CodeBadRequest         = 400
	CodeUnauthorized       = 401
	CodeNotFound           = 404
	CodeConflict           = 409 // 账号已注册
	CodeTooManyRequests    = 429
	CodeInternal           = 500
	CodeServiceUnavailable = 503 // 目录、会话或限流依赖不可用
)
