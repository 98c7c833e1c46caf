package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"time"
)

// checkProxyTimeout is the timeout for the proxy connection check.
const checkProxyTimeout = 3 * time.Second

// SOCKS5 greeting constants (RFC 1928).
const (
	socks5Version      = 0x05
	socks5AuthNone     = 0x00
	socks5AuthPassword = 0x02
	socks5AuthNoAccept = 0xFF
)

// Check verifies that the endpoint's proxy accepts connections.
// For socks5 proxies it also performs the method negotiation, so a plain
// HTTP proxy configured with a socks5 scheme is reported as wrong type.
// The direct endpoint is always OK.
func (e *Endpoint) Check(ctx context.Context) ProxyStatus {
	if e.Proxy == nil {
		return ProxyStatusOK
	}

	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", e.Proxy.Host)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusCannotConnect
	}
	defer conn.Close()

	if e.Proxy.Scheme != "socks5" && e.Proxy.Scheme != "socks5h" {
		return ProxyStatusOK
	}

	if err := conn.SetDeadline(time.Now().Add(checkProxyTimeout)); err != nil {
		return ProxyStatusCannotConnect
	}

	// Offer "no auth", plus username/password when credentials are configured.
	greeting := []byte{socks5Version, 0x01, socks5AuthNone}
	if e.Proxy.User != nil {
		greeting = []byte{socks5Version, 0x02, socks5AuthNone, socks5AuthPassword}
	}
	if _, err := conn.Write(greeting); err != nil {
		return ProxyStatusCannotConnect
	}

	resp := make([]byte, 2)
	if _, err := io.ReadFull(conn, resp); err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return ProxyStatusTimeout
		}
		return ProxyStatusWrongType
	}
	if resp[0] != socks5Version || resp[1] == socks5AuthNoAccept {
		return ProxyStatusWrongType
	}
	return ProxyStatusOK
}
