package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// RequestFields 提供访问日志的公共字段。
func RequestFields(method, path, requestID string, status int, elapsedMs int64) logrus.Fields {
	fields := logrus.Fields{
		"action":     "request",
		"method":     method,
		"path":       path,
		"status":     status,
		"elapsed_ms": elapsedMs,
	}
	if requestID != "" {
		fields["request_id"] = requestID
	}
	return fields
}

// PicFields 提供图片缓存相关字段：后端类型、槽位与命中来源。
func PicFields(backend, imageKey, timestampKey, source string) logrus.Fields {
	return logrus.Fields{
		"action":        "pic",
		"backend":       backend,
		"image_key":     imageKey,
		"timestamp_key": timestampKey,
		"source":        source,
	}
}
