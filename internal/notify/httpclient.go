package notify

import (
	"net"
	"net/http"
	"time"
)

const defaultClientTimeout = 10 * time.Second

// newHTTPClient constructs the *http.Client shared by the outbound gateway
// clients. Both gateways are low-volume, so the pool is kept small; the
// timeout bounds fire-and-forget sends that nobody waits on.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:   true,
			MaxIdleConns:        8,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}
