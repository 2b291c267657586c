// Package httpclient builds the client that downloads the emissions CSV and
// the boundary GeoJSON when they are configured as URLs.
package httpclient

import (
	"net"
	"net/http"
	"time"
)

// DefaultTimeout applies when NewOutbound is given a non-positive timeout.
const DefaultTimeout = 30 * time.Second

// UserAgent is sent on every source download.
const UserAgent = "br-emissions/1"

// NewOutbound returns a client for at most two source hosts. timeout bounds a
// whole download, body included.
func NewOutbound(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	dial := min(timeout, 5*time.Second)
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: dial, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          4,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   dial,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{
		Transport: userAgent{next: transport},
		Timeout:   timeout,
	}
}

type userAgent struct {
	next http.RoundTripper
}

func (u userAgent) RoundTrip(r *http.Request) (*http.Response, error) {
	if r.Header.Get("User-Agent") != "" {
		return u.next.RoundTrip(r)
	}
	r = r.Clone(r.Context())
	r.Header.Set("User-Agent", UserAgent)
	return u.next.RoundTrip(r)
}

