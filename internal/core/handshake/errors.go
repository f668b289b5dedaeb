package handshake

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateSession 会话已在注册表中
	ErrDuplicateSession = errors.New("handshake: duplicate session")

	// ErrNilSession 会话为空
	ErrNilSession = errors.New("handshake: nil session")

	// ErrBindFailed 绑定监听地址失败
	ErrBindFailed = errors.New("handshake: bind failed")

	// ErrNotListening 未在监听
	ErrNotListening = errors.New("handshake: not listening")

	// ErrSessionClosed 会话已关闭
	ErrSessionClosed = errors.New("handshake: session closed")

	// ErrGreetingTooLong 首行超过长度上限
	ErrGreetingTooLong = errors.New("handshake: greeting too long")

	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("handshake: invalid config")
)

// BindError 所有监听地址都绑定失败
type BindError struct {
	Addrs  []string
	Errors []error
}

// Error 实现 error 接口
func (e *BindError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for i, err := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %v", e.Addrs[i], err))
	}
	return fmt.Sprintf("%v (%s)", ErrBindFailed, strings.Join(parts, "; "))
}

// Unwrap 支持 errors.Is(err, ErrBindFailed) 以及底层原因的匹配
func (e *BindError) Unwrap() []error {
	return append([]error{ErrBindFailed}, e.Errors...)
}

func (e *BindError) add(addr string, err error) {
	e.Addrs = append(e.Addrs, addr)
	e.Errors = append(e.Errors, err)
}
