package types

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ============================================================================
//                              SessionID - 会话标识
// ============================================================================

// SessionID 握手会话标识，注册表以此判重
type SessionID string

// NewSessionID 生成新的会话标识
func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}

// String 返回字符串表示
func (id SessionID) String() string {
	return string(id)
}

// Short 返回用于日志的短标识
func (id SessionID) Short() string {
	if len(id) <= 8 {
		return string(id)
	}
	return string(id[:8])
}

// ============================================================================
//                              ClientGUID - 客户端 GUID
// ============================================================================

// ClientGUID 客户端 GUID（16 字节），推送应答 GIV 中携带
type ClientGUID [16]byte

// NewClientGUID 随机生成客户端 GUID
func NewClientGUID() ClientGUID {
	return ClientGUID(uuid.New())
}

// ParseClientGUID 解析 32 位十六进制 GUID
func ParseClientGUID(s string) (ClientGUID, error) {
	var g ClientGUID
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return g, fmt.Errorf("parse guid %q: %w", s, err)
	}
	if len(raw) != len(g) {
		return g, fmt.Errorf("parse guid %q: want %d bytes, got %d", s, len(g), len(raw))
	}
	copy(g[:], raw)
	return g, nil
}

// String 返回大写十六进制表示
func (g ClientGUID) String() string {
	return strings.ToUpper(hex.EncodeToString(g[:]))
}

// IsZero 是否为零值
func (g ClientGUID) IsZero() bool {
	return g == ClientGUID{}
}
