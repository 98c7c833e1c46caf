package transport

import "errors"

// Proxy errors.
//
// Design decision: We define specific errors rather than wrapping everything
// generically, so callers can drop a dead proxy from the pool but still fail
// fast on a malformed configuration entry.
var (
	// ErrInvalidProxyURL is returned when a proxy entry cannot be parsed or
	// has no host:port.
	ErrInvalidProxyURL = errors.New("invalid proxy URL: expected scheme://host:port")

	// ErrUnsupportedProxyScheme is returned for schemes other than http,
	// https, socks5 and socks5h.
	ErrUnsupportedProxyScheme = errors.New("unsupported proxy scheme")

	// ErrProxyCannotConnect is returned when no TCP connection to the proxy
	// can be established.
	ErrProxyCannotConnect = errors.New("cannot connect to proxy")

	// ErrProxyTimeout is returned when the proxy check times out.
	ErrProxyTimeout = errors.New("timeout connecting to proxy")

	// ErrProxyWrongType is returned when a socks5 endpoint does not answer
	// the SOCKS5 greeting.
	ErrProxyWrongType = errors.New("proxy did not answer as SOCKS5")
)

// ProxyStatus is the result of checking one proxy endpoint.
type ProxyStatus int

const (
	// ProxyStatusOK indicates the proxy accepted a connection (and, for
	// socks5, completed the greeting).
	ProxyStatusOK ProxyStatus = iota

	// ProxyStatusWrongType indicates a socks5 endpoint that speaks another protocol.
	ProxyStatusWrongType

	// ProxyStatusCannotConnect indicates the TCP connection failed.
	ProxyStatusCannotConnect

	// ProxyStatusTimeout indicates the check timed out.
	ProxyStatusTimeout
)

// String returns a human-readable description of the proxy status.
func (s ProxyStatus) String() string {
	switch s {
	case ProxyStatusOK:
		return "OK"
	case ProxyStatusWrongType:
		return "wrong type (not SOCKS5)"
	case ProxyStatusCannotConnect:
		return "cannot connect"
	case ProxyStatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error returns the error for this status, or nil if OK.
func (s ProxyStatus) Error() error {
	switch s {
	case ProxyStatusOK:
		return nil
	case ProxyStatusWrongType:
		return ErrProxyWrongType
	case ProxyStatusCannotConnect:
		return ErrProxyCannotConnect
	case ProxyStatusTimeout:
		return ErrProxyTimeout
	default:
		return errors.New("unknown proxy status")
	}
}
