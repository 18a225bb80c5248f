package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// envBindings 保留部署脚本中已经在用的环境变量名。
var envBindings = map[string]string{
	"ListenPort":        "SERVER_PORT",
	"LogLevel":          "LOG_LEVEL",
	"StoragePath":       "STORAGE_PATH",
	"Pic.ImagePath":     "IMAGE_PATH",
	"Pic.TimestampPath": "TIMESTAMP_PATH",
	"Pic.OriginURL":     "PIC_ORIGIN_URL",
	"Pic.Backend":       "PIC_BACKEND",
	"Pic.RedisURL":      "REDIS_URL",
	"Pic.OnError":       "PIC_ON_ERROR",
	"Database.URL":      "DATABASE_URL",
	"Database.Protocol": "DB_PROTOCOL",
	"Database.User":     "DB_USER",
	"Database.Password": "DB_PASSWORD",
	"Database.Host":     "DB_HOST",
	"Database.Name":     "DB_NAME",
	"Database.Schema":   "DB_SCHEMA",
}

// Load 读取可选的 TOML 配置文件，叠加环境变量与默认值后完成校验。
// path 为空时只使用环境变量与默认值。
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置失败: %w", err)
		}
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyGlobalDefaults(&cfg.Global)
	applyPicDefaults(&cfg.Pic)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	absStorage, err := filepath.Abs(cfg.Global.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("无法解析缓存目录: %w", err)
	}
	cfg.Global.StoragePath = absStorage

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenPort", 8080)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("StoragePath", ".")

	v.SetDefault("Pic.ImagePath", "pic.jpeg")
	v.SetDefault("Pic.TimestampPath", "timestamp.txt")
	v.SetDefault("Pic.OriginURL", "https://picsum.photos/200")
	v.SetDefault("Pic.CacheTTL", "1h")
	v.SetDefault("Pic.FetchTimeout", "5s")
	v.SetDefault("Pic.Backend", BackendFile)
	v.SetDefault("Pic.RedisURL", "")
	v.SetDefault("Pic.LevelDBPath", "pic.leveldb")
	v.SetDefault("Pic.OnError", OnErrorFail)
	v.SetDefault("Pic.Coalesce", true)
	v.SetDefault("Pic.MaxRetries", 0)
	v.SetDefault("Pic.InitialBackoff", "1s")
	v.SetDefault("Pic.MaxBodyBytes", DefaultMaxBodyBytes)

	v.SetDefault("Database.URL", "")
	v.SetDefault("Database.Protocol", "postgres")
	v.SetDefault("Database.User", "")
	v.SetDefault("Database.Password", "")
	v.SetDefault("Database.Host", "")
	v.SetDefault("Database.Name", "")
	v.SetDefault("Database.Schema", "")
}

func applyGlobalDefaults(g *GlobalConfig) {
	if g.ListenPort == 0 {
		g.ListenPort = 8080
	}
	if strings.TrimSpace(g.StoragePath) == "" {
		g.StoragePath = "."
	}
	g.LogLevel = strings.ToLower(strings.TrimSpace(g.LogLevel))
}

func applyPicDefaults(p *PicConfig) {
	if p.CacheTTL.DurationValue() == 0 {
		p.CacheTTL = Duration(time.Hour)
	}
	if p.FetchTimeout.DurationValue() == 0 {
		p.FetchTimeout = Duration(5 * time.Second)
	}
	if p.InitialBackoff.DurationValue() == 0 {
		p.InitialBackoff = Duration(time.Second)
	}
	if p.MaxBodyBytes == 0 {
		p.MaxBodyBytes = DefaultMaxBodyBytes
	}
	p.Backend = strings.ToLower(strings.TrimSpace(p.Backend))
	if p.Backend == "" {
		p.Backend = BackendFile
	}
	p.OnError = strings.ToLower(strings.TrimSpace(p.OnError))
	if p.OnError == "" {
		p.OnError = OnErrorFail
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			var d Duration
			if err := d.UnmarshalText([]byte(v)); err != nil {
				return nil, fmt.Errorf("无法解析 Duration 字段: %w", err)
			}
			return d, nil
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}
