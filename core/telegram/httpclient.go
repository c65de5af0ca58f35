package telegram

import (
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/schoolbot/core/telegram/netutil"
)

const (
	dialTimeout     = 5 * time.Second
	tlsTimeout      = 5 * time.Second
	idleConnTimeout = 90 * time.Second
	keepAlive       = 30 * time.Second
	requestMargin   = 10 * time.Second
	minClientWait   = 30 * time.Second
	retryAttempts   = 3
	retryBackoff    = time.Second
)

// BuildHTTPClient returns the client used for Bot API calls. Its timeout
// always outlasts a getUpdates long poll of the given duration.
func BuildHTTPClient(longPoll time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: keepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       idleConnTimeout,
		TLSHandshakeTimeout:   tlsTimeout,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{
		Timeout:   clientTimeout(longPoll),
		Transport: &retryTransport{base: transport, attempts: retryAttempts, backoff: retryBackoff},
	}
}

func clientTimeout(longPoll time.Duration) time.Duration {
	return max(longPoll+requestMargin, minClientWait)
}

// retryTransport repeats requests that failed before any response arrived.
type retryTransport struct {
	base     http.RoundTripper
	attempts int
	backoff  time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var lastErr error
	for attempt := 1; attempt <= t.attempts; attempt++ {
		try := req
		if attempt > 1 {
			if req.Body != nil && req.GetBody == nil {
				return nil, lastErr
			}
			try = req.Clone(req.Context())
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, err
				}
				try.Body = body
			}
		}

		resp, err := t.base.RoundTrip(try)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if attempt == t.attempts || !netutil.Transient(err) {
			break
		}

		timer := time.NewTimer(netutil.Backoff(err, attempt, t.backoff))
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}
	}
	return nil, lastErr
}
