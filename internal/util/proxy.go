package util

import (
	"net/http"
	"net/url"
	"time"
)

// NewProxyFunc returns a proxy function for the given proxy URL.
// An empty URL falls back to HTTP_PROXY/HTTPS_PROXY/NO_PROXY.
func NewProxyFunc(proxyURL string) func(*http.Request) (*url.URL, error) {
	if proxyURL == "" {
		return http.ProxyFromEnvironment
	}

	return func(req *http.Request) (*url.URL, error) {
		return url.Parse(proxyURL)
	}
}

// NewHTTPClient creates a client with a hard timeout and the configured proxy
func NewHTTPClient(timeout time.Duration, proxyURL string) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = NewProxyFunc(proxyURL)
	transport.MaxIdleConnsPerHost = 4

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
