package resourcemgr

import "errors"

var (
	// ErrUploadLimitExceeded 上传槽位已满
	ErrUploadLimitExceeded = errors.New("resourcemgr: upload limit exceeded")

	// ErrSlotsClosed 准入控制已关闭
	ErrSlotsClosed = errors.New("resourcemgr: upload slots closed")

	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("resourcemgr: invalid config")
)
