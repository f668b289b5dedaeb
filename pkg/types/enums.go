package types

import "strings"

// ============================================================================
//                              Direction - 连接方向
// ============================================================================

// Direction 连接方向
type Direction int

const (
	// DirUnknown 未知方向
	DirUnknown Direction = iota
	// DirInbound 入站连接（监听端接受）
	DirInbound
	// DirOutbound 出站连接（推送连接）
	DirOutbound
)

// String 返回方向的字符串表示
func (d Direction) String() string {
	switch d {
	case DirInbound:
		return "inbound"
	case DirOutbound:
		return "outbound"
	default:
		return "unknown"
	}
}

// ============================================================================
//                              AdvanceResult - 推进结果
// ============================================================================

// AdvanceResult 握手会话单步推进的结果
type AdvanceResult int

const (
	// StillAlive 会话仍在协商，下一轮继续推进
	StillAlive AdvanceResult = iota
	// Done 会话结束（完成移交或失败），应从注册表移除
	Done
)

// String 返回推进结果的字符串表示
func (r AdvanceResult) String() string {
	if r == Done {
		return "done"
	}
	return "alive"
}

// ============================================================================
//                              Protocol - 握手识别出的协议
// ============================================================================

// Protocol 根据首行请求识别出的应用协议
type Protocol int

const (
	// ProtocolUnknown 无法识别
	ProtocolUnknown Protocol = iota
	// ProtocolGnutella "GNUTELLA CONNECT/x.y"
	ProtocolGnutella
	// ProtocolHTTP "GET" / "HEAD" 请求
	ProtocolHTTP
	// ProtocolGiv "GIV index:guid/" 推送应答
	ProtocolGiv
	// ProtocolChat "CHAT CONNECT/x.y"
	ProtocolChat
)

// String 返回协议名
func (p Protocol) String() string {
	switch p {
	case ProtocolGnutella:
		return "gnutella"
	case ProtocolHTTP:
		return "http"
	case ProtocolGiv:
		return "giv"
	case ProtocolChat:
		return "chat"
	default:
		return "unknown"
	}
}

// ClassifyGreeting 根据首行内容识别协议
func ClassifyGreeting(line string) Protocol {
	switch {
	case strings.HasPrefix(line, "GNUTELLA CONNECT/"):
		return ProtocolGnutella
	case strings.HasPrefix(line, "GET "), strings.HasPrefix(line, "HEAD "):
		return ProtocolHTTP
	case strings.HasPrefix(line, "GIV "):
		return ProtocolGiv
	case strings.HasPrefix(line, "CHAT CONNECT/"):
		return ProtocolChat
	default:
		return ProtocolUnknown
	}
}

// ============================================================================
//                              DiagnosticKind - 诊断事件类型
// ============================================================================

// DiagnosticKind 诊断事件类型，供日志/界面层消费
type DiagnosticKind string

const (
	// DiagListening 开始监听
	DiagListening DiagnosticKind = "listening"
	// DiagBindFailed 绑定监听地址失败
	DiagBindFailed DiagnosticKind = "bind-failed"
	// DiagSecurityBlocked 入站连接被安全过滤器拒绝
	DiagSecurityBlocked DiagnosticKind = "security-blocked"
	// DiagPushBusy 上传准入拒绝推送请求
	DiagPushBusy DiagnosticKind = "push-busy"
	// DiagPushFailed 推送连接建立失败
	DiagPushFailed DiagnosticKind = "push-failed"
	// DiagBacklogFull 待接受队列已满
	DiagBacklogFull DiagnosticKind = "backlog-full"
)
