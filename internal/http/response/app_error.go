package response

import "fmt"

// AppError 处理器错误，Key 为国际化消息键，Message 为翻译后的文案
type AppError struct {
	Code    int
	Key     string
	Args    []interface{}
	Message string
	Err     error
}

func (e *AppError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Key
	}
	if e.Err == nil {
		return msg
	}
	return msg + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WrapError 以消息键包装错误，args 为消息模板参数
func WrapError(code int, key string, err error, args ...interface{}) *AppError {
	return &AppError{
		Code: code,
		Key:  key,
		Args: args,
		Err:  err,
	}
}

// Localize 按翻译函数填充 Message，已有文案时保持不变
func (e *AppError) Localize(translate func(key string) string) *AppError {
	if e.Message != "" || e.Key == "" || translate == nil {
		return e
	}
	format := translate(e.Key)
	if len(e.Args) > 0 {
		e.Message = fmt.Sprintf(format, e.Args...)
	} else {
		e.Message = format
	}
	return e
}
