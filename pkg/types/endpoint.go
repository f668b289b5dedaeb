package types

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
)

// ErrInvalidEndpoint 无效端点
var ErrInvalidEndpoint = errors.New("invalid endpoint")

// Endpoint IPv4 地址 + 端口，创建后不可变
type Endpoint struct {
	Addr netip.Addr
	Port uint16
}

// NewEndpoint 创建端点，IPv4 映射的 IPv6 地址会被还原为 IPv4
func NewEndpoint(addr netip.Addr, port uint16) Endpoint {
	return Endpoint{Addr: addr.Unmap(), Port: port}
}

// EndpointFromNetAddr 从 net.Addr 构造端点
func EndpointFromNetAddr(a net.Addr) (Endpoint, error) {
	if a == nil {
		return Endpoint{}, ErrInvalidEndpoint
	}

	if tcp, ok := a.(*net.TCPAddr); ok {
		ap := tcp.AddrPort()
		return NewEndpoint(ap.Addr(), ap.Port()), nil
	}

	ap, err := netip.ParseAddrPort(a.String())
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	return NewEndpoint(ap.Addr(), ap.Port()), nil
}

// ParseEndpoint 解析 "ip:port" 形式的端点
func ParseEndpoint(s string) (Endpoint, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: port %q", ErrInvalidEndpoint, portStr)
	}
	ep := NewEndpoint(addr, uint16(port))
	if !ep.IsValid() {
		return Endpoint{}, fmt.Errorf("%w: %s is not ipv4", ErrInvalidEndpoint, s)
	}
	return ep, nil
}

// IsValid 是否为有效的 IPv4 端点
func (e Endpoint) IsValid() bool {
	return e.Addr.IsValid() && e.Addr.Is4()
}

// SameAddr 只比较地址，忽略端口
func (e Endpoint) SameAddr(addr netip.Addr) bool {
	return e.Addr == addr.Unmap()
}

// AddrPort 返回 netip.AddrPort
func (e Endpoint) AddrPort() netip.AddrPort {
	return netip.AddrPortFrom(e.Addr, e.Port)
}

// TCPAddr 返回 *net.TCPAddr
func (e Endpoint) TCPAddr() *net.TCPAddr {
	return net.TCPAddrFromAddrPort(e.AddrPort())
}

// String 返回 "ip:port"
func (e Endpoint) String() string {
	if !e.Addr.IsValid() {
		return "<invalid>"
	}
	return e.AddrPort().String()
}
