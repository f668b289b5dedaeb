package handshake

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-handshakes/pkg/types"
)

// ============================================================================
//                              Listen / Disconnect
// ============================================================================

func TestManager_ListenIdempotent(t *testing.T) {
	diags := &diagRecorder{}
	m := newTestManager(t, WithSessionFactory(&fakeFactory{}), WithDiagnosticSink(diags))

	require.NoError(t, m.Listen())
	first, ok := m.ListenAddr()
	require.True(t, ok)

	require.NoError(t, m.Listen())
	second, _ := m.ListenAddr()

	assert.Equal(t, first, second)
	assert.True(t, m.IsListening())
	assert.Equal(t, 1, diags.count(types.DiagListening))
}

func TestManager_BindFallbackToWildcard(t *testing.T) {
	diags := &diagRecorder{}
	cfg := testConfig()
	// TEST-NET-1，本机不会持有该地址
	cfg.ListenHost = "192.0.2.1"
	m, err := NewManager(cfg, WithSessionFactory(&fakeFactory{}), WithDiagnosticSink(diags))
	require.NoError(t, err)
	defer m.Disconnect()

	require.NoError(t, m.Listen())
	local, ok := m.ListenAddr()
	require.True(t, ok)

	assert.Equal(t, netip.IPv4Unspecified(), local.Addr)
	assert.Equal(t, 1, diags.count(types.DiagBindFailed))
}

func TestManager_BindFailed(t *testing.T) {
	occupied, err := net.Listen("tcp4", "0.0.0.0:0")
	require.NoError(t, err)
	defer occupied.Close()
	port := occupied.Addr().(*net.TCPAddr).Port

	diags := &diagRecorder{}
	cfg := testConfig()
	cfg.ListenHost = "0.0.0.0"
	cfg.ListenPort = port
	m, err := NewManager(cfg, WithSessionFactory(&fakeFactory{}), WithDiagnosticSink(diags))
	require.NoError(t, err)

	err = m.Listen()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBindFailed)

	var berr *BindError
	require.True(t, errors.As(err, &berr))
	assert.Equal(t, []string{net.JoinHostPort("0.0.0.0", strconv.Itoa(port))}, berr.Addrs)

	assert.False(t, m.IsListening())
	assert.Equal(t, 1, diags.count(types.DiagBindFailed))
	assert.Equal(t, 0, diags.count(types.DiagListening))
	require.NoError(t, m.Disconnect())
}

func TestManager_DisconnectWithoutListen(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Disconnect())
	require.NoError(t, m.Disconnect())
	assert.False(t, m.IsListening())
}

func TestManager_TeardownCompleteness(t *testing.T) {
	factory := &fakeFactory{}
	m := newTestManager(t, WithSessionFactory(factory))
	require.NoError(t, m.Listen())
	local, _ := m.ListenAddr()

	for i := 0; i < 3; i++ {
		dialManager(t, m)
	}
	require.Eventually(t, func() bool { return m.Registry().Len() == 3 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return !m.Stats().StableSince.IsZero() }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, m.Disconnect())

	st := m.Stats()
	assert.False(t, st.Listening)
	assert.Equal(t, 0, st.Sessions)
	assert.Equal(t, uint64(0), st.Accepted)
	assert.True(t, st.StableSince.IsZero())
	for _, s := range factory.inboundSessions() {
		assert.Equal(t, int32(1), s.closes.Load())
	}

	// 监听器已释放
	_, err := net.DialTimeout("tcp4", local.String(), 200*time.Millisecond)
	assert.Error(t, err)

	// 可以重新监听
	require.NoError(t, m.Listen())
	assert.True(t, m.IsListening())
}

// ============================================================================
//                              入站准入
// ============================================================================

func TestManager_SecurityGate(t *testing.T) {
	factory := &fakeFactory{}
	filter := &fakeFilter{blocked: map[netip.Addr]bool{loopback: true}}
	diags := &diagRecorder{}
	m := newTestManager(t, WithSessionFactory(factory), WithSecurityFilter(filter), WithDiagnosticSink(diags))
	require.NoError(t, m.Listen())

	c := dialManager(t, m)

	require.Eventually(t, func() bool { return diags.count(types.DiagSecurityBlocked) == 1 }, 2*time.Second, 5*time.Millisecond)

	// 远端看到连接被重置
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err := c.Read(make([]byte, 1))
	require.Error(t, err)
	assert.False(t, errors.Is(err, os.ErrDeadlineExceeded))

	assert.Empty(t, factory.inboundSessions())
	assert.Equal(t, 0, m.Registry().Len())
	assert.Equal(t, uint64(0), m.Stats().Accepted)
	assert.False(t, m.IsConnectedTo(loopback))
}

func TestManager_IsConnectedToAfterAccept(t *testing.T) {
	m := newTestManager(t, WithSessionFactory(&fakeFactory{}))
	require.NoError(t, m.Listen())
	assert.False(t, m.IsConnectedTo(loopback))

	dialManager(t, m)
	require.Eventually(t, func() bool { return m.IsConnectedTo(loopback) }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, uint64(1), m.Stats().Accepted)
}

func TestManager_EndToEndSessionDone(t *testing.T) {
	factory := &fakeFactory{
		onInbound: func(i int, s *fakeSession) {
			if i == 1 {
				s.advanceFn = func() types.AdvanceResult { return types.Done }
			}
		},
	}
	m := newTestManager(t, WithSessionFactory(factory))
	require.NoError(t, m.Listen())

	var clients []net.Conn
	for i := 0; i < 3; i++ {
		clients = append(clients, dialManager(t, m))
		want := uint64(i + 1)
		require.Eventually(t, func() bool { return m.Stats().Accepted == want }, 2*time.Second, 5*time.Millisecond)
	}

	require.Eventually(t, func() bool { return m.Registry().Len() == 2 }, 2*time.Second, 5*time.Millisecond)

	sessions := m.Registry().Sessions()
	require.Len(t, sessions, 2)
	assert.Equal(t, localPort(t, clients[0]), sessions[0].RemoteEndpoint().Port)
	assert.Equal(t, localPort(t, clients[2]), sessions[1].RemoteEndpoint().Port)
	assert.Equal(t, uint64(3), m.Stats().Accepted)

	// 结束的会话被释放，远端读到 EOF
	_ = clients[1].SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err := clients[1].Read(make([]byte, 1))
	assert.Error(t, err)
	assert.False(t, errors.Is(err, os.ErrDeadlineExceeded))
}

func localPort(t *testing.T, c net.Conn) uint16 {
	t.Helper()
	return uint16(c.LocalAddr().(*net.TCPAddr).Port)
}

// ============================================================================
//                              推送
// ============================================================================

func TestManager_RequestPushNotListening(t *testing.T) {
	factory := &fakeFactory{}
	upload := &fakeUpload{allow: true}
	m := newTestManager(t, WithSessionFactory(factory), WithUploadAdmission(upload))

	assert.False(t, m.RequestPush(context.Background(), endpoint(t, "10.0.0.1:6346"), 1))
	assert.Equal(t, int32(0), upload.calls.Load())
	assert.Equal(t, 0, factory.totalInitiates())
}

func TestManager_RequestPush(t *testing.T) {
	factory := &fakeFactory{}
	m := newTestManager(t, WithSessionFactory(factory), WithUploadAdmission(&fakeUpload{allow: true}))
	require.NoError(t, m.Listen())

	remote := endpoint(t, "10.0.0.9:6346")
	require.True(t, m.RequestPush(context.Background(), remote, 7))
	assert.True(t, m.IsConnectedTo(remote.Addr))
	assert.Equal(t, 1, factory.totalInitiates())

	require.NoError(t, m.Disconnect())
	assert.False(t, m.IsConnectedTo(remote.Addr))
}

func TestManager_RequestPushDuringDisconnect(t *testing.T) {
	started := make(chan struct{})
	gate := make(chan struct{})
	factory := &fakeFactory{initiateStarted: started, initiateGate: gate}
	m := newTestManager(t, WithSessionFactory(factory), WithUploadAdmission(&fakeUpload{allow: true}))
	require.NoError(t, m.Listen())

	remote := endpoint(t, "10.0.0.9:6346")
	result := make(chan bool, 1)
	go func() { result <- m.RequestPush(context.Background(), remote, 7) }()

	// 拨号进行中断开，拨号随后成功
	<-started
	require.NoError(t, m.Disconnect())
	close(gate)

	select {
	case ok := <-result:
		assert.False(t, ok)
	case <-time.After(3 * time.Second):
		t.Fatal("RequestPush did not return")
	}

	assert.False(t, m.IsListening())
	assert.Equal(t, 0, m.Registry().Len())
	assert.False(t, m.IsConnectedTo(remote.Addr))
	out := factory.outboundSessions()
	require.Len(t, out, 1)
	assert.Equal(t, int32(1), out[0].closes.Load())

	// 重新监听后推送恢复
	require.NoError(t, m.Listen())
	assert.True(t, m.RequestPush(context.Background(), remote, 8))
	assert.Equal(t, 1, m.Registry().Len())
}
