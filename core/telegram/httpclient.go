package telegram

import (
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/woofinder/core/telegram/netutil"
)

// Transport limits for Bot API calls. getUpdates holds the response open for
// the poll timeout, which BuildHTTPClient adds on top.
const (
	dialTimeout     = 5 * time.Second
	tlsTimeout      = 5 * time.Second
	headerSlack     = 5 * time.Second
	minClientWait   = 30 * time.Second
	idleConnTimeout = 30 * time.Second
	keepAlive       = 30 * time.Second
	apiRetries      = 3
	apiRetryBackoff = 2 * time.Second
)

var errBodyNotReplayable = errors.New("telegram: request body cannot be replayed")

// BuildHTTPClient returns the client telebot uses for the Bot API. Transient
// network failures are retried with linear backoff.
func BuildHTTPClient(pollTimeout time.Duration) *http.Client {
	headerTimeout := pollTimeout + headerSlack
	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: keepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       idleConnTimeout,
		TLSHandshakeTimeout:   tlsTimeout,
		ResponseHeaderTimeout: headerTimeout,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{
		Timeout:   max(minClientWait, headerTimeout+headerSlack),
		Transport: &retryTransport{base: base, retries: apiRetries, backoff: apiRetryBackoff},
	}
}

type retryTransport struct {
	base    http.RoundTripper
	retries int
	backoff time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}

	resp, err := base.RoundTrip(req)
	for try := 1; err != nil && try <= t.retries && netutil.ShouldRetry(err); try++ {
		if werr := wait(req, t.backoff*time.Duration(try)); werr != nil {
			return nil, werr
		}
		next, rerr := rewind(req)
		if rerr != nil {
			return nil, errors.Join(err, rerr)
		}
		resp, err = base.RoundTrip(next)
	}
	return resp, err
}

// rewind clones req with a fresh body so it can be sent again.
func rewind(req *http.Request) (*http.Request, error) {
	next := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return next, nil
	}
	if req.GetBody == nil {
		return nil, errBodyNotReplayable
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	next.Body = body
	return next, nil
}

func wait(req *http.Request, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-req.Context().Done():
		return req.Context().Err()
	case <-timer.C:
		return nil
	}
}
