package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"PickForge/internal/model"
)

const stampLayout = "20060102T150405Z"

// Writer 把每次实时拉取的原始响应归档到 {outdir}/raw/{mode}/
type Writer struct {
	outDir string
}

func NewWriter(outDir string) *Writer {
	return &Writer{outDir: outDir}
}

// RawDir 归档根目录
func (w *Writer) RawDir() string {
	return filepath.Join(w.outDir, "raw")
}

// Archive 文件名 {YYYYMMDDTHHMMSSZ}_{sport_key}.json，键排序、两空格缩进
func (w *Writer) Archive(mode string, sportKey string, fetchedAt time.Time, response model.RawList, requestContext map[string]interface{}) (string, error) {
	dir := filepath.Join(w.outDir, "raw", mode)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("创建归档目录失败: %w", err)
	}

	items := make([]interface{}, 0, len(response))
	for _, raw := range response {
		var v interface{}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&v); err != nil {
			return "", fmt.Errorf("解析原始响应失败: %w", err)
		}
		items = append(items, v)
	}
	if requestContext == nil {
		requestContext = map[string]interface{}{}
	}
	wrapped := map[string]interface{}{
		"fetched_at":      model.ToUTCZ(fetchedAt),
		"sport_key":       sportKey,
		"request_context": requestContext,
		"response":        items,
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(wrapped); err != nil {
		return "", fmt.Errorf("序列化归档失败: %w", err)
	}

	name := fmt.Sprintf("%s_%s.json", fetchedAt.UTC().Format(stampLayout), strings.ReplaceAll(sportKey, "/", "_"))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, bytes.TrimRight(buf.Bytes(), "\n"), 0o644); err != nil {
		return "", fmt.Errorf("写入归档失败: %w", err)
	}
	return path, nil
}
