package pic

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/todopic/todopic/internal/logging"
	"github.com/todopic/todopic/internal/metrics"
)

// ContentType 是图片正文固定的 MIME 类型。
const ContentType = "image/jpeg"

// DefaultTTL 是默认的新鲜度窗口。
const DefaultTTL = time.Hour

// ErrorPolicy 决定回源或写缓存失败时是否降级。
type ErrorPolicy string

const (
	// PolicyFail 让请求直接失败。
	PolicyFail ErrorPolicy = "fail"
	// PolicyServeStale 回源失败时返回已缓存正文，写入失败时返回刚取回的正文。
	PolicyServeStale ErrorPolicy = "serve-stale"
)

// Source 标记一次响应正文的来源。
type Source string

const (
	SourceCache  Source = "hit"
	SourceOrigin Source = "miss"
	SourceStale  Source = "stale"
)

// Artifact 是 Get 的结果。
type Artifact struct {
	Body        []byte
	ContentType string
	Source      Source
	// RefreshedAt 是 Body 对应的回源时间；降级路径下为零值。
	RefreshedAt time.Time
}

// Options 注入 Cache 的全部依赖，Cache 本身不持有全局状态。
type Options struct {
	Freshness *FreshnessStore
	Content   *ContentStore
	Fetcher   Fetcher
	TTL       time.Duration
	Policy    ErrorPolicy
	Coalesce  bool
	Backend   string
	Logger    *logrus.Logger
	Metrics   metrics.PicMetrics
	Now       func() time.Time
}

// Cache 是单槽图片缓存的编排器。
type Cache struct {
	freshness *FreshnessStore
	content   *ContentStore
	fetcher   Fetcher
	ttl       time.Duration
	policy    ErrorPolicy
	coalesce  bool
	backend   string
	logger    *logrus.Logger
	metrics   metrics.PicMetrics
	now       func() time.Time

	group singleflight.Group
}

// New 校验依赖并填充默认值。
func New(opts Options) (*Cache, error) {
	if opts.Freshness == nil {
		return nil, errors.New("freshness store is required")
	}
	if opts.Content == nil {
		return nil, errors.New("content store is required")
	}
	if opts.Fetcher == nil {
		return nil, errors.New("origin fetcher is required")
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	switch opts.Policy {
	case "":
		opts.Policy = PolicyFail
	case PolicyFail, PolicyServeStale:
	default:
		return nil, errors.New("unsupported error policy: " + string(opts.Policy))
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
		opts.Logger.SetOutput(io.Discard)
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Noop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Cache{
		freshness: opts.Freshness,
		content:   opts.Content,
		fetcher:   opts.Fetcher,
		ttl:       opts.TTL,
		policy:    opts.Policy,
		coalesce:  opts.Coalesce,
		backend:   opts.Backend,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		now:       opts.Now,
	}, nil
}

// TTL 返回新鲜度窗口。
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// IsStale 以毫秒比较；恰好等于 TTL 仍视为新鲜。
func (c *Cache) IsStale(marker time.Time) bool {
	return c.now().UnixMilli()-marker.UnixMilli() > c.ttl.Milliseconds()
}

// Get 返回当前图片：新鲜则读缓存，过期、marker 缺失或正文缺失则回源并写回两个槽位。
func (c *Cache) Get(ctx context.Context) (*Artifact, error) {
	marker, err := c.freshness.Read(ctx)
	if marker.Seeded {
		c.metrics.IncLookup("marker_reset")
		c.log(SourceOrigin).WithError(marker.Reason).Info("pic_marker_reset")
	}
	if err != nil {
		if c.policy != PolicyServeStale {
			return nil, err
		}
		c.log(SourceOrigin).WithError(err).Warn("pic_marker_seed_failed")
	}

	if c.IsStale(marker.At) {
		if !marker.Seeded {
			c.metrics.IncLookup("stale")
		}
		return c.refresh(ctx)
	}

	body, err := c.content.Read(ctx)
	if err != nil {
		c.metrics.IncLookup("missing")
		c.log(SourceOrigin).WithError(err).Warn("pic_artifact_missing")
		return c.refresh(ctx)
	}

	c.metrics.IncLookup("hit")
	return &Artifact{
		Body:        body,
		ContentType: ContentType,
		Source:      SourceCache,
		RefreshedAt: marker.At,
	}, nil
}

// refresh 回源并写回；开启 Coalesce 时并发的过期请求共享同一次回源。
func (c *Cache) refresh(ctx context.Context) (*Artifact, error) {
	if !c.coalesce {
		return c.fetchAndStore(ctx)
	}

	// 共享的回源不能被发起者的取消中断，超时仍由 http.Client 约束。
	shared := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(c.content.Key(), func() (interface{}, error) {
		return c.fetchAndStore(shared)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Artifact), nil
}

func (c *Cache) fetchAndStore(ctx context.Context) (*Artifact, error) {
	started := c.now()
	body, err := c.fetcher.Fetch(ctx)
	c.metrics.ObserveFetch(c.now().Sub(started).Seconds())
	if err != nil {
		c.metrics.IncFetch("error")
		c.log(SourceOrigin).WithError(err).Error("pic_fetch_failed")
		if c.policy == PolicyServeStale {
			if stale, readErr := c.content.Read(ctx); readErr == nil {
				c.metrics.IncLookup("serve_stale")
				c.log(SourceStale).Warn("pic_serving_stale")
				return &Artifact{Body: stale, ContentType: ContentType, Source: SourceStale}, nil
			}
		}
		return nil, err
	}
	c.metrics.IncFetch("ok")

	fetchedAt := c.now()
	if err := c.content.Write(ctx, body); err != nil {
		return c.writeFailed(body, err)
	}
	if err := c.freshness.Write(ctx, fetchedAt); err != nil {
		return c.writeFailed(body, err)
	}

	c.log(SourceOrigin).WithField("bytes", len(body)).Info("pic_refreshed")
	return &Artifact{
		Body:        body,
		ContentType: ContentType,
		Source:      SourceOrigin,
		RefreshedAt: fetchedAt,
	}, nil
}

func (c *Cache) writeFailed(body []byte, err error) (*Artifact, error) {
	c.log(SourceOrigin).WithError(err).Error("pic_store_write_failed")
	if c.policy != PolicyServeStale {
		return nil, err
	}
	c.log(SourceStale).Warn("pic_serving_unpersisted")
	return &Artifact{Body: body, ContentType: ContentType, Source: SourceStale}, nil
}

func (c *Cache) log(source Source) *logrus.Entry {
	return c.logger.WithFields(logging.PicFields(c.backend, c.content.Key(), c.freshness.Key(), string(source)))
}
