package config

import "github.com/fsnotify/fsnotify"

// Watch 监听配置文件变更，每次写入后重新解析并回调；解析失败时回调 err。
// path 为空时不做任何事情，因为纯环境变量模式没有可监听的文件。
func Watch(path string, onChange func(*Config, error)) {
	if path == "" || onChange == nil {
		return
	}

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		onChange(nil, err)
		return
	}

	v.OnConfigChange(func(event fsnotify.Event) {
		if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
			return
		}
		onChange(decode(v))
	})
	v.WatchConfig()
}
