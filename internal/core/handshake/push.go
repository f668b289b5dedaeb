package handshake

import (
	"context"
	"time"

	"github.com/dep2p/go-handshakes/internal/core/metrics"
	"github.com/dep2p/go-handshakes/pkg/interfaces"
	"github.com/dep2p/go-handshakes/pkg/types"
)

// PushConnector 发起出站推送连接
//
// 被防火墙阻挡的远端无法连入时请求我们推送：先经上传准入判定，
// 然后建立连接并发送 GIV 应答，成功后会话交由调度器驱动。
type PushConnector struct {
	admissionTimeout time.Duration

	upload    interfaces.UploadAdmission
	factory   interfaces.SessionFactory
	registry  *Registry
	sink      interfaces.DiagnosticSink
	reporter  metrics.Reporter
	wake      func()
	listening func() bool
}

// RequestPush 向 remote 发起推送，返回是否已建立并注册会话
//
// 上传准入拒绝时不会打开任何套接字。失败不重试。
func (p *PushConnector) RequestPush(ctx context.Context, remote types.Endpoint, transferIndex uint32) bool {
	if !p.listening() {
		logger.Debug("忽略推送请求", "remote", remote, "error", ErrNotListening)
		p.reporter.PushResult(metrics.PushNotListening)
		return false
	}
	if !remote.IsValid() {
		logger.Debug("推送目标无效", "remote", remote)
		p.reporter.PushResult(metrics.PushFailed)
		return false
	}

	if p.upload != nil && !p.upload.TryReserveSlot(remote.Addr, p.admissionTimeout) {
		emit(p.sink, types.DiagPushBusy, remote, "")
		p.reporter.PushResult(metrics.PushBusy)
		return false
	}

	s := p.factory.NewOutbound(remote, transferIndex, p.wake)
	if err := s.Initiate(ctx); err != nil {
		_ = s.Close()
		emit(p.sink, types.DiagPushFailed, remote, err.Error())
		p.reporter.PushResult(metrics.PushFailed)
		return false
	}

	// 拨号期间可能已经断开，注册表关闭后 Add 失败
	if err := p.registry.Add(s); err != nil {
		_ = s.Close()
		logger.Debug("推送会话注册失败", "remote", remote, "error", err)
		p.reporter.PushResult(metrics.PushFailed)
		return false
	}

	p.reporter.PushResult(metrics.PushOK)
	logger.Debug("推送连接已建立", "remote", remote, "index", transferIndex, "session", s.ID().Short())
	p.wake()
	return true
}
