package handshake

import (
	"github.com/dep2p/go-handshakes/pkg/interfaces"
	"github.com/dep2p/go-handshakes/pkg/types"
)

// LogSink 把诊断事件写入日志
type LogSink struct{}

var _ interfaces.DiagnosticSink = LogSink{}

// Emit 实现 interfaces.DiagnosticSink
func (LogSink) Emit(d interfaces.Diagnostic) {
	args := []any{"kind", d.Kind}
	if d.Remote.IsValid() {
		args = append(args, "remote", d.Remote)
	}
	if d.Text != "" {
		args = append(args, "detail", d.Text)
	}

	switch d.Kind {
	case types.DiagBindFailed, types.DiagSecurityBlocked:
		logger.Error("握手诊断", args...)
	case types.DiagPushBusy, types.DiagBacklogFull:
		logger.Warn("握手诊断", args...)
	case types.DiagPushFailed:
		logger.Debug("握手诊断", args...)
	default:
		logger.Info("握手诊断", args...)
	}
}

// SinkFunc 函数适配器
type SinkFunc func(interfaces.Diagnostic)

// Emit 实现 interfaces.DiagnosticSink
func (f SinkFunc) Emit(d interfaces.Diagnostic) {
	f(d)
}

// multiSink 依次分发给多个接收方
type multiSink []interfaces.DiagnosticSink

func (m multiSink) Emit(d interfaces.Diagnostic) {
	for _, s := range m {
		s.Emit(d)
	}
}

func emit(sink interfaces.DiagnosticSink, kind types.DiagnosticKind, remote types.Endpoint, text string) {
	sink.Emit(interfaces.Diagnostic{Kind: kind, Remote: remote, Text: text})
}
