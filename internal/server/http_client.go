package server

import (
	"net"
	"net/http"
	"time"

	"github.com/todopic/todopic/internal/config"
)

// Shared HTTP transport tunings，复用长连接并集中配置超时。
var defaultTransport = &http.Transport{
	Proxy:                 http.ProxyFromEnvironment,
	MaxIdleConns:          10,
	MaxIdleConnsPerHost:   10,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   5 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
	ForceAttemptHTTP2:     true,
	DialContext: (&net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
}

// DefaultFetchTimeout 是单次回源的总超时。
const DefaultFetchTimeout = 5 * time.Second

// NewOriginClient 返回回源用的 http.Client，总超时取自 [Pic] FetchTimeout。
func NewOriginClient(cfg *config.Config) *http.Client {
	timeout := DefaultFetchTimeout
	if cfg != nil && cfg.Pic.FetchTimeout.DurationValue() > 0 {
		timeout = cfg.Pic.FetchTimeout.DurationValue()
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: defaultTransport.Clone(),
	}
}
