// Package webclient builds the HTTP clients used for outbound calls.
package webclient

import (
	"net"
	"net/http"
	"time"
)

// NewDefault returns an HTTP client with the given overall timeout and a
// transport tuned for a small number of hosts called repeatedly, so
// back-to-back analyzer runs reuse connections instead of redialing.
func NewDefault(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        16,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}
