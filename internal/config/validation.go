package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if g.StoragePath == "" {
		return newFieldError("Global.StoragePath", "不能为空")
	}
	if _, err := logrus.ParseLevel(g.LogLevel); err != nil {
		return newFieldError("Global.LogLevel", fmt.Sprintf("无法识别: %s", g.LogLevel))
	}
	if g.LogMaxSize < 0 || g.LogMaxBackups < 0 {
		return newFieldError("Global.LogMaxSize/LogMaxBackups", "不能为负数")
	}

	if err := c.Pic.validate(); err != nil {
		return err
	}
	return c.Database.validate()
}

func (p PicConfig) validate() error {
	if strings.TrimSpace(p.ImagePath) == "" {
		return newFieldError(picField("ImagePath"), "不能为空")
	}
	if strings.TrimSpace(p.TimestampPath) == "" {
		return newFieldError(picField("TimestampPath"), "不能为空")
	}
	if p.ImagePath == p.TimestampPath {
		return newFieldError(picField("ImagePath/TimestampPath"), "两个槽位不能指向同一位置")
	}
	if err := validateUpstream(p.OriginURL); err != nil {
		return fmt.Errorf("%s: %w", picField("OriginURL"), err)
	}
	if p.CacheTTL.DurationValue() <= 0 {
		return newFieldError(picField("CacheTTL"), "必须大于 0")
	}
	if p.FetchTimeout.DurationValue() <= 0 {
		return newFieldError(picField("FetchTimeout"), "必须大于 0")
	}
	if p.MaxRetries < 0 {
		return newFieldError(picField("MaxRetries"), "不能为负数")
	}
	if p.InitialBackoff.DurationValue() <= 0 {
		return newFieldError(picField("InitialBackoff"), "必须大于 0")
	}
	if p.MaxBodyBytes < 0 {
		return newFieldError(picField("MaxBodyBytes"), "不能为负数")
	}

	switch p.Backend {
	case BackendFile:
	case BackendRedis:
		if strings.TrimSpace(p.RedisURL) == "" {
			return newFieldError(picField("RedisURL"), "redis 后端必须提供 RedisURL")
		}
	case BackendLevelDB:
		if strings.TrimSpace(p.LevelDBPath) == "" {
			return newFieldError(picField("LevelDBPath"), "leveldb 后端必须提供 LevelDBPath")
		}
	default:
		return newFieldError(picField("Backend"), "仅支持 file|redis|leveldb")
	}

	switch p.OnError {
	case OnErrorFail, OnErrorServeStale:
	default:
		return newFieldError(picField("OnError"), "仅支持 fail|serve-stale")
	}
	return nil
}

func (d DatabaseConfig) validate() error {
	if !d.Enabled() {
		return nil
	}
	if strings.TrimSpace(d.URL) == "" && strings.TrimSpace(d.Name) == "" {
		return newFieldError("Database.Name", "配置 Host 时必须提供数据库名")
	}
	parsed, err := url.Parse(d.DSN())
	if err != nil {
		return fmt.Errorf("Database.URL: %w", err)
	}
	switch parsed.Scheme {
	case "postgres", "postgresql":
	default:
		return newFieldError("Database.Protocol", "仅支持 postgres/postgresql")
	}
	return nil
}

func validateUpstream(raw string) error {
	if raw == "" {
		return errors.New("缺少源站地址")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("仅支持 http/https，源站: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("源站缺少 Host: %s", raw)
	}
	return nil
}
