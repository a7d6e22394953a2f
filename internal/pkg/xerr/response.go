package xerr

import (
	"errors"
	"net/http"

	"github.com/3Eeeecho/go-clouddrive/internal/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CodeError 在服务层传递带有业务码的错误
type CodeError struct {
	Code int    // 业务错误码
	Err  error  // 错误分类
	Msg  string // 返回给调用方的信息
}

func (e *CodeError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return e.Err.Error()
}

func (e *CodeError) Unwrap() error {
	return e.Err
}

// New 创建归属于 kind 分类的业务错误
func New(code int, kind error, msg string) *CodeError {
	return &CodeError{Code: code, Err: kind, Msg: msg}
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

// HTTPStatus 按错误分类映射 HTTP 状态码
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Classify 返回业务码和可以安全返回给客户端的信息
func Classify(err error) (int, string) {
	var ce *CodeError
	if errors.As(err, &ce) && ce.Code != 0 {
		return ce.Code, ce.Error()
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return NotFoundCode, ErrNotFound.Error()
	case errors.Is(err, ErrConflict):
		return ConflictCode, ErrConflict.Error()
	case errors.Is(err, ErrUnauthorized):
		return UnauthorizedCode, ErrUnauthorized.Error()
	case errors.Is(err, ErrValidation):
		return ValidationFailedCode, ErrValidation.Error()
	case errors.Is(err, ErrStorageUnavailable):
		return StorageErrorCode, ErrStorageUnavailable.Error()
	default:
		return InternalServerErrorCode, ErrInternalServer.Error()
	}
}

// Response 是通用 JSON 响应结构
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func JSONResponse(c *gin.Context, httpStatus int, code int, message string, data any) {
	c.JSON(httpStatus, Response{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

func Success(c *gin.Context, httpStatus int, message string, data any) {
	JSONResponse(c, httpStatus, SuccessCode, message, data)
}

func Error(c *gin.Context, httpStatus int, code int, message string) {
	JSONResponse(c, httpStatus, code, message, nil)
}

// AbortWithError 终止请求并发送错误响应
func AbortWithError(c *gin.Context, httpStatus int, code int, message string) {
	Error(c, httpStatus, code, message)
	c.Abort()
}

// Fail 把服务层错误写成响应, 未分类的错误只记录日志不透出细节
func Fail(c *gin.Context, op string, err error) {
	status := HTTPStatus(err)
	code, msg := Classify(err)
	if status >= http.StatusInternalServerError {
		logger.Error(op+" failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	Error(c, status, code, msg)
}
