package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// 预定义错误
var (
	ErrNotFound          = New(http.StatusNotFound, "资源不存在")
	ErrBadRequest        = New(http.StatusBadRequest, "请求错误")
	ErrInternalServer    = New(http.StatusInternalServerError, "服务器内部错误")
	ErrInvalidCredential = New(http.StatusUnauthorized, "用户名或密码错误")
	ErrAccountDisabled   = New(http.StatusForbidden, "用户已被禁用")
	ErrTooManyAttempts   = New(http.StatusTooManyRequests, "登录失败次数过多，请稍后重试")
	ErrForbidden         = New(http.StatusForbidden, "没有访问权限")

	// ErrAuthentication 所有认证失败共用，不区分过期与伪造
	ErrAuthentication = New(http.StatusUnauthorized, "未认证或认证已失效")
)

// AppError 应用错误
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New 创建新错误
func New(code int, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap 包装错误
func Wrap(err error, code int, message string) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// Is 检查是否为指定错误
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As 类型转换错误
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// FromError 提取 AppError，非应用错误视为内部错误
func FromError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, http.StatusInternalServerError, ErrInternalServer.Message)
}

// NotFound 创建未找到错误
func NotFound(resource string) *AppError {
	return New(http.StatusNotFound, fmt.Sprintf("%s不存在", resource))
}

// BadRequest 创建请求错误
func BadRequest(message string) *AppError {
	return New(http.StatusBadRequest, message)
}

// Validation 创建验证错误
func Validation(message string) *AppError {
	return New(http.StatusUnprocessableEntity, message)
}

// Duplicate 创建重复错误
func Duplicate(field string) *AppError {
	return New(http.StatusConflict, fmt.Sprintf("%s已存在", field))
}

// Internal 创建内部错误
func Internal(err error) *AppError {
	return Wrap(err, http.StatusInternalServerError, ErrInternalServer.Message)
}

// Transaction 关联替换等事务失败，事务已回滚
func Transaction(err error) *AppError {
	return Wrap(err, http.StatusInternalServerError, "操作失败，数据未变更")
}
