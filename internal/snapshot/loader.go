package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"PickForge/internal/anchoring"
	"PickForge/internal/model"
)

// Snapshot 一份已归档的供应商响应
type Snapshot struct {
	Path      string
	FetchedAt time.Time
	SportKey  string
	Response  model.RawList
}

type archived struct {
	FetchedAt interface{}     `json:"fetched_at"`
	SportKey  interface{}     `json:"sport_key"`
	Response  json.RawMessage `json:"response"`
}

// LoadWeek 读取 rawDir 下所有 *.json，保留本地周一 00:00 至 now 之间抓取的快照，按抓取时间升序
func LoadWeek(rawDir string, now time.Time, loc *time.Location) ([]Snapshot, []string) {
	warnings := []string{}
	if _, err := os.Stat(rawDir); err != nil {
		warnings = append(warnings, fmt.Sprintf("Raw directory does not exist: %s", rawDir))
		return nil, warnings
	}

	var paths []string
	_ = filepath.WalkDir(rawDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".json") {
			paths = append(paths, path)
		}
		return nil
	})
	sort.Strings(paths)

	weekStart := anchoring.StartOfLocalWeek(now, loc)
	var out []Snapshot
	for _, path := range paths {
		snap, warning, keep := readSnapshot(path)
		if warning != "" {
			warnings = append(warnings, warning)
		}
		if !keep {
			continue
		}
		if snap.FetchedAt.Before(weekStart) || snap.FetchedAt.After(now) {
			continue
		}
		out = append(out, snap)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].FetchedAt.Before(out[j].FetchedAt) })
	return out, warnings
}

func readSnapshot(path string) (Snapshot, string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Sprintf("Skipping raw file %s: invalid JSON (%v)", path, err), false
	}
	var doc archived
	if err := json.Unmarshal(data, &doc); err != nil {
		var syntax *json.SyntaxError
		if errors.As(err, &syntax) || !json.Valid(data) {
			return Snapshot{}, fmt.Sprintf("Skipping raw file %s: invalid JSON (%v)", path, err), false
		}
		return Snapshot{}, fmt.Sprintf("Skipping raw file %s: invalid JSON (expected object)", path), false
	}

	fetchedRaw, ok := doc.FetchedAt.(string)
	if !ok {
		return Snapshot{}, fmt.Sprintf("Skipping raw file %s: missing fetched_at", path), false
	}
	sportKey, ok := doc.SportKey.(string)
	if !ok || sportKey == "" {
		return Snapshot{}, fmt.Sprintf("Skipping raw file %s: missing sport_key", path), false
	}
	var response model.RawList
	if len(doc.Response) == 0 || json.Unmarshal(doc.Response, &response) != nil || response == nil {
		return Snapshot{}, fmt.Sprintf("Skipping raw file %s: missing response list", path), false
	}
	fetchedAt, ok := model.ParseUTCISO(fetchedRaw)
	if !ok {
		return Snapshot{}, fmt.Sprintf("Skipping raw file %s: invalid fetched_at '%s'", path, fetchedRaw), false
	}
	return Snapshot{Path: path, FetchedAt: fetchedAt, SportKey: sportKey, Response: response}, "", true
}
