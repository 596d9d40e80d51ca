package model

import (
	"strings"
	"time"
)

// UTCLayout 对外统一的 UTC 时间格式（秒精度，Z 结尾）
const UTCLayout = "2006-01-02T15:04:05Z"

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04Z07:00",
}

// ParseUTCISO 解析 ISO-8601 时间；无时区的值按 UTC 处理
func ParseUTCISO(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ToUTCZ 转为秒精度的 Z 结尾字符串
func ToUTCZ(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(UTCLayout)
}

// DateISO 本地日期 YYYY-MM-DD
func DateISO(t time.Time) string {
	return t.Format("2006-01-02")
}
