package pic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Fetcher 从源站取回一份新的图片。实现必须无状态、可并发调用。
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context) ([]byte, error)

// Fetch makes FetcherFunc satisfy Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context) ([]byte, error) {
	return f(ctx)
}

// DefaultMaxBodyBytes 是未配置上限时允许的最大正文。
const DefaultMaxBodyBytes int64 = 10 << 20

// HTTPFetcherOptions 控制源站请求：UserAgent、正文上限与可选的重试。
type HTTPFetcherOptions struct {
	UserAgent      string
	MaxBodyBytes   int64
	MaxRetries     int
	InitialBackoff time.Duration
}

// HTTPFetcher 对固定 URL 发起 GET，超时由注入的 http.Client 决定。
type HTTPFetcher struct {
	client *http.Client
	url    string
	opts   HTTPFetcherOptions
}

// NewHTTPFetcher 构造源站抓取器，client 为空时使用 http.DefaultClient。
func NewHTTPFetcher(client *http.Client, url string, opts HTTPFetcherOptions) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &HTTPFetcher{client: client, url: url, opts: opts}
}

// Fetch 请求源站；非 2xx、传输失败、超时或正文超限均返回 *FetchError。
// MaxRetries > 0 时对传输错误与 5xx 按指数退避重试，4xx 直接返回；ctx 取消会立即结束等待。
func (f *HTTPFetcher) Fetch(ctx context.Context) ([]byte, error) {
	backoff := f.opts.InitialBackoff
	var lastErr error
	for attempt := 0; attempt <= f.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, &FetchError{URL: f.url, Err: ctx.Err()}
			case <-timer.C:
			}
			backoff *= 2
		}

		body, err := f.fetchOnce(ctx)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if ctx.Err() != nil || !retryable(err) {
			break
		}
	}
	return nil, lastErr
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, &FetchError{URL: f.url, Err: err}
	}
	if f.opts.UserAgent != "" {
		req.Header.Set("User-Agent", f.opts.UserAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: f.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return nil, &FetchError{
			URL:    f.url,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBodyBytes+1))
	if err != nil {
		return nil, &FetchError{URL: f.url, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(body)) > f.opts.MaxBodyBytes {
		return nil, &FetchError{URL: f.url, Err: fmt.Errorf("%w: limit %d bytes", ErrBodyTooLarge, f.opts.MaxBodyBytes)}
	}
	if len(body) == 0 {
		return nil, &FetchError{URL: f.url, Err: errors.New("empty body")}
	}
	return body, nil
}

// ErrBodyTooLarge 表示源站正文超过 MaxBodyBytes。
var ErrBodyTooLarge = errors.New("origin body too large")

// retryable 只对传输错误与 5xx 重试，4xx 与正文超限重试也不会成功。
func retryable(err error) bool {
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		return false
	}
	if errors.Is(fetchErr.Err, ErrBodyTooLarge) {
		return false
	}
	return fetchErr.Status == 0 || fetchErr.Status >= http.StatusInternalServerError
}
