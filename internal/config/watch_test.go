package config

import (
	"os"
	"testing"
	"time"
)

func TestWatchReportsUpdatedLogLevel(t *testing.T) {
	path := writeTempConfig(t, "LogLevel = \"info\"\n")

	levels := make(chan string, 16)
	Watch(path, func(cfg *Config, err error) {
		if err != nil || cfg == nil {
			return
		}
		select {
		case levels <- cfg.Global.LogLevel:
		default:
		}
	})

	if err := os.WriteFile(path, []byte("LogLevel = \"debug\"\n"), 0o600); err != nil {
		t.Fatalf("改写配置失败: %v", err)
	}

	// 一次写入可能触发多个事件，截断后的中间态会先回调默认级别。
	deadline := time.After(5 * time.Second)
	for {
		select {
		case level := <-levels:
			if level == "debug" {
				return
			}
		case <-deadline:
			t.Fatalf("未收到 LogLevel=debug 的回调")
		}
	}
}

func TestWatchWithoutPathIsNoop(t *testing.T) {
	called := false
	Watch("", func(*Config, error) { called = true })
	if called {
		t.Fatalf("空路径不应触发回调")
	}
}

func TestWatchReportsUnreadableFile(t *testing.T) {
	var gotErr error
	Watch(testConfigPath(t, "missing.toml"), func(_ *Config, err error) { gotErr = err })
	if gotErr == nil {
		t.Fatalf("不存在的配置文件应回调错误")
	}
}
