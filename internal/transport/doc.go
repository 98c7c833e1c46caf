// Package transport builds the HTTP clients used by the fetcher, the robots
// gate and the discovery probes.
//
// A Pool holds one client per configured proxy endpoint (http, https or
// socks5) plus a direct client. All clients share one cookie jar scoped by
// the public suffix list, so cookies set by a domain are replayed on later
// requests to that domain regardless of which proxy carried them.
package transport
