// Package common holds errors and transport helpers shared by model backends.
package common

import (
	"net/http"
	"net/url"
	"time"

	"github.com/maxbolgarin/errm"
)

var (
	ErrRateLimited  = errm.New("rate limit exceeded")
	ErrUnauthorized = errm.New("authentication failed")
	ErrBadRequest   = errm.New("bad request")
	ErrOverloaded   = errm.New("service overloaded")
	ErrServer       = errm.New("server error")
	ErrEmptyAnswer  = errm.New("empty response from model")
)

// IsRetryable reports whether a call may succeed when repeated later
func IsRetryable(err error) bool {
	return errm.Is(err, ErrRateLimited) || errm.Is(err, ErrOverloaded)
}

// FromStatus classifies a failed API call by its HTTP status code
func FromStatus(backend string, status int, err error) error {
	var kind error
	switch {
	case status == http.StatusTooManyRequests:
		kind = ErrRateLimited
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		kind = ErrUnauthorized
	case status == http.StatusServiceUnavailable, status == 529:
		kind = ErrOverloaded
	case status >= http.StatusInternalServerError:
		kind = ErrServer
	case status >= http.StatusBadRequest:
		kind = ErrBadRequest
	default:
		return errm.Wrap(err, backend+" API error")
	}
	return errm.Wrap(kind, backend+" API error: "+err.Error())
}

// HTTPClient builds a client with an optional proxy and timeout
func HTTPClient(proxyURL string, timeout time.Duration) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, errm.Wrap(err, "failed to parse proxy URL")
		}
		transport.Proxy = http.ProxyURL(u)
	}
	return &http.Client{Transport: transport, Timeout: timeout}, nil
}
