package metrics

import "time"

// 拒绝原因
const (
	ReasonSecurity = "security"
	ReasonBacklog  = "backlog"
)

// 推送结果
const (
	PushOK           = "ok"
	PushBusy         = "busy"
	PushFailed       = "failed"
	PushNotListening = "not-listening"
)

// Reporter 握手事件记录器
type Reporter interface {
	// AcceptedConn 记录一个已接受的入站连接
	AcceptedConn()

	// RejectedConn 记录一个被拒绝的入站连接
	RejectedConn(reason string)

	// PushResult 记录一次推送请求的结果
	PushResult(result string)

	// SessionsActive 更新当前会话数
	SessionsActive(n int)

	// SessionsRemoved 记录移除的会话数
	SessionsRemoved(n int)

	// PumpSkipped 记录一次因锁竞争跳过的泵送
	PumpSkipped()

	// StableSince 记录首次稳定时间，零值表示已重置
	StableSince(t time.Time)
}

// Nop 不记录任何指标
type Nop struct{}

var _ Reporter = Nop{}

func (Nop) AcceptedConn()           {}
func (Nop) RejectedConn(string)     {}
func (Nop) PushResult(string)       {}
func (Nop) SessionsActive(int)      {}
func (Nop) SessionsRemoved(int)     {}
func (Nop) PumpSkipped()            {}
func (Nop) StableSince(_ time.Time) {}
