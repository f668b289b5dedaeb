package discovery

import "errors"

var (
	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("discovery: invalid config")

	// ErrAlreadyStarted 刷新器已启动
	ErrAlreadyStarted = errors.New("discovery: refresher already started")
)
