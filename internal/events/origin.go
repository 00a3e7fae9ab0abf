package events

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

// LocalRequest reports whether r may use the local API. The Host header must
// name a loopback address, which rejects DNS rebinding. A browser Origin, when
// present, must also be loopback; clients that send none are allowed.
func LocalRequest(r *http.Request) bool {
	if !loopbackHost(hostOnly(r.Host)) {
		return false
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return loopbackHost(u.Hostname())
}

func hostOnly(hostport string) string {
	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return host
	}
	return strings.Trim(hostport, "[]")
}

func loopbackHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
