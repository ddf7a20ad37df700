// Package web provides the bounded outbound HTTP calls used to resolve a
// URL: a redirect-following HEAD probe and an HTML content fetcher
package web

import (
	"fmt"
	"net"
	"net/http"
	"time"
)

// UserAgent identifies the service as a crawler on every outbound call
const UserAgent = "Mozilla/5.0 (compatible; unfurlbot/1.0; +https://unfurl.dev/bot)"

// Options bounds every outbound call
type Options struct {
	Timeout      time.Duration
	MaxRedirects int

	// MaxBody caps the number of body bytes the fetcher will read
	MaxBody int64

	UserAgent string
}

func (o *Options) defaults() {
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}
	if o.MaxRedirects <= 0 {
		o.MaxRedirects = 10
	}
	if o.MaxBody <= 0 {
		o.MaxBody = 2 * 1024 * 1024
	}
	if o.UserAgent == "" {
		o.UserAgent = UserAgent
	}
}

// newClient builds an http.Client that follows redirects transparently up
// to the configured hop cap and times out as a whole after Timeout
func newClient(o Options, jar http.CookieJar) *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   o.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   o.Timeout,
		ResponseHeaderTimeout: o.Timeout,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   o.Timeout,
		Jar:       jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= o.MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", o.MaxRedirects)
			}
			return nil
		},
	}
}
