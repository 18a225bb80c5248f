package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 识别 "30s"、"5m"、纯数字秒值（含 0x 前缀与小数）等写法，decode hook 的字符串分支也走这里。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := parseInt(raw); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	if seconds, err := strconv.ParseFloat(raw, 64); err == nil {
		*d = Duration(time.Duration(seconds * float64(time.Second)))
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// parseInt 支持十进制或 0x 前缀的十六进制字符串解析。
func parseInt(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseInt(value, 0, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}

// 图片缓存槽位支持的存储后端。
const (
	BackendFile    = "file"
	BackendRedis   = "redis"
	BackendLevelDB = "leveldb"
)

// 回源或写缓存失败时的处理策略。
const (
	OnErrorFail       = "fail"
	OnErrorServeStale = "serve-stale"
)

// DefaultMaxBodyBytes 是源站正文的默认上限。
const DefaultMaxBodyBytes int64 = 10 << 20

// GlobalConfig 描述进程级行为：监听端口、日志与缓存根目录。
type GlobalConfig struct {
	ListenPort    int    `mapstructure:"ListenPort"`
	LogLevel      string `mapstructure:"LogLevel"`
	LogFilePath   string `mapstructure:"LogFilePath"`
	LogMaxSize    int    `mapstructure:"LogMaxSize"`
	LogMaxBackups int    `mapstructure:"LogMaxBackups"`
	LogCompress   bool   `mapstructure:"LogCompress"`
	StoragePath   string `mapstructure:"StoragePath"`
}

// PicConfig 控制 /api/pic 的单槽缓存：两个槽位名、源站、TTL 与失败策略。
type PicConfig struct {
	ImagePath      string   `mapstructure:"ImagePath"`
	TimestampPath  string   `mapstructure:"TimestampPath"`
	OriginURL      string   `mapstructure:"OriginURL"`
	CacheTTL       Duration `mapstructure:"CacheTTL"`
	FetchTimeout   Duration `mapstructure:"FetchTimeout"`
	Backend        string   `mapstructure:"Backend"`
	RedisURL       string   `mapstructure:"RedisURL"`
	LevelDBPath    string   `mapstructure:"LevelDBPath"`
	OnError        string   `mapstructure:"OnError"`
	Coalesce       bool     `mapstructure:"Coalesce"`
	MaxRetries     int      `mapstructure:"MaxRetries"`
	InitialBackoff Duration `mapstructure:"InitialBackoff"`
	MaxBodyBytes   int64    `mapstructure:"MaxBodyBytes"`
}

// DatabaseConfig 描述 todo 表所在的关系型数据库。URL 优先于拆分字段。
type DatabaseConfig struct {
	URL      string `mapstructure:"URL"`
	Protocol string `mapstructure:"Protocol"`
	User     string `mapstructure:"User"`
	Password string `mapstructure:"Password"`
	Host     string `mapstructure:"Host"`
	Name     string `mapstructure:"Name"`
	Schema   string `mapstructure:"Schema"`
}

// Config 是 TOML 文件 + 环境变量映射的整体结构。
type Config struct {
	Global   GlobalConfig   `mapstructure:",squash"`
	Pic      PicConfig      `mapstructure:"Pic"`
	Database DatabaseConfig `mapstructure:"Database"`
}

// Enabled 表示是否配置了外部数据库；未配置时 todo 使用内存仓库。
func (d DatabaseConfig) Enabled() bool {
	return strings.TrimSpace(d.URL) != "" || strings.TrimSpace(d.Host) != ""
}

// DSN 拼接 pgx 可识别的连接串。Schema 通过 search_path 运行时参数下发。
func (d DatabaseConfig) DSN() string {
	if raw := strings.TrimSpace(d.URL); raw != "" {
		return raw
	}

	protocol := d.Protocol
	if protocol == "" {
		protocol = "postgres"
	}
	u := url.URL{
		Scheme: protocol,
		Host:   d.Host,
		Path:   "/" + d.Name,
	}
	if d.User != "" {
		if d.Password != "" {
			u.User = url.UserPassword(d.User, d.Password)
		} else {
			u.User = url.User(d.User)
		}
	}
	if d.Schema != "" {
		q := url.Values{}
		q.Set("search_path", d.Schema)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// Redacted 返回隐藏密码后的连接串，仅用于日志输出。
func (d DatabaseConfig) Redacted() string {
	parsed, err := url.Parse(d.DSN())
	if err != nil {
		return "<invalid>"
	}
	return parsed.Redacted()
}

// StorageMode 输出 `postgres` 或 `memory`，供启动日志使用。
func (d DatabaseConfig) StorageMode() string {
	if d.Enabled() {
		return "postgres"
	}
	return "memory"
}
