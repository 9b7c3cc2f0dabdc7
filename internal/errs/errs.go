// Package errs 定义请求层错误分类：
// ValidationError → 4xx，NetworkError → 5xx（仅提交循环内部按策略重试），
// AuthError → 401 且绝不重试。负载解码错误见 layout.CodecError。
package errs

import (
	"errors"
	"fmt"
)

type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// NetworkError 表示一次 RPC 调用不可达或被拒绝
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

func Network(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err}
}

func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

type AuthError struct {
	Msg string
}

func (e *AuthError) Error() string { return e.Msg }

func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
