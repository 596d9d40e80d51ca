package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"PickForge/internal/model"
)

// OutputFilename daily 按 UTC 日期，weekly 按 ISO 周
func OutputFilename(mode model.Mode, now time.Time) string {
	current := now.UTC()
	if mode == model.ModeDaily {
		return fmt.Sprintf("daily_picks_%s.json", current.Format("2006-01-02"))
	}
	year, week := current.ISOWeek()
	return fmt.Sprintf("weekly_picks_%d-%02d.json", year, week)
}

// Encode 两空格缩进，不转义 HTML 字符
func Encode(p model.ImportPayload) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return nil, fmt.Errorf("序列化导入包失败: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Write 写入 outDir，同名文件覆盖，返回文件路径
func Write(outDir string, mode model.Mode, now time.Time, p model.ImportPayload) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("创建输出目录失败: %w", err)
	}
	data, err := Encode(p)
	if err != nil {
		return "", err
	}
	path := filepath.Join(outDir, OutputFilename(mode, now))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("写入导入包失败: %w", err)
	}
	return path, nil
}
