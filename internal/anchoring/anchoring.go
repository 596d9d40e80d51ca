package anchoring

import (
	"fmt"
	"time"
	_ "time/tzdata" // 容器镜像里可能没有系统时区库

	"PickForge/internal/model"
)

// DefaultTimezone 业务所在时区
const DefaultTimezone = "Europe/Madrid"

// LoadLocation 空名称使用默认时区
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("加载时区失败 %s: %w", name, err)
	}
	return loc, nil
}

// Date 本地日历日期（午夜，位于 loc）
func Date(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// mondayIndex 周一=0 ... 周日=6
func mondayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func DailyAnchorDate(localNow time.Time) time.Time {
	return time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, localNow.Location())
}

// WeeklyAnchorDate 周一到周三锚定当天，其余锚定本周四
func WeeklyAnchorDate(localNow time.Time) time.Time {
	day := DailyAnchorDate(localNow)
	weekday := mondayIndex(localNow)
	if weekday <= 2 {
		return day
	}
	return day.AddDate(0, 0, -(weekday - 3))
}

// AnchorDateForMode 返回 YYYY-MM-DD 格式的锚定日期
func AnchorDateForMode(mode model.Mode, now time.Time, loc *time.Location) string {
	local := now.In(loc)
	if mode == model.ModeDaily {
		return model.DateISO(DailyAnchorDate(local))
	}
	return model.DateISO(WeeklyAnchorDate(local))
}

// BuildSeed "DAILY|2026-02-10|round"
func BuildSeed(mode model.Mode, anchorDate, roundID string) string {
	prefix := "WEEKLY"
	if mode == model.ModeDaily {
		prefix = "DAILY"
	}
	return fmt.Sprintf("%s|%s|%s", prefix, anchorDate, roundID)
}

// FeaturedSeed "FEATURED|2026-02-10|round"
func FeaturedSeed(featuredDate, roundID string) string {
	return fmt.Sprintf("FEATURED|%s|%s", featuredDate, roundID)
}

// FeaturedAnchorDate 精选日期为本地当天
func FeaturedAnchorDate(now time.Time, loc *time.Location) string {
	return model.DateISO(now.In(loc))
}

// Window 生成窗口（UTC）
type Window struct {
	Mode  model.Mode
	Start time.Time
	End   time.Time
}

func (w Window) StartISO() string { return model.ToUTCZ(w.Start) }
func (w Window) EndISO() string   { return model.ToUTCZ(w.End) }

// Contains 闭区间
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// WindowForMode 日：now..now+24h；周：now..now+7d
func WindowForMode(mode model.Mode, now time.Time) Window {
	now = now.UTC()
	end := now.Add(24 * time.Hour)
	if mode == model.ModeWeekly {
		end = now.AddDate(0, 0, 7)
	}
	return Window{Mode: mode, Start: now, End: end}
}

// WeekWindow 本地今天 00:00 到本周日 23:59:59，以 UTC 表示
func WeekWindow(now time.Time, loc *time.Location) (time.Time, time.Time) {
	start := Date(now, loc)
	daysToSunday := 6 - mondayIndex(start)
	end := time.Date(start.Year(), start.Month(), start.Day()+daysToSunday, 23, 59, 59, 0, loc)
	return start.UTC(), end.UTC()
}

// StartOfLocalWeek 本地周一 00:00
func StartOfLocalWeek(now time.Time, loc *time.Location) time.Time {
	day := Date(now, loc)
	return day.AddDate(0, 0, -mondayIndex(day))
}

// LocalDatesForWindow 窗口覆盖的本地日期（含首尾）
func LocalDatesForWindow(start, end time.Time, loc *time.Location) []time.Time {
	first := Date(start, loc)
	last := Date(end, loc)
	var out []time.Time
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// SyncDates 赛程同步日期：指定天数优先；周一同步整周；其余只刷新今明两天
func SyncDates(now time.Time, overrideDays int, loc *time.Location) []time.Time {
	today := Date(now, loc)
	days := 2
	switch {
	case overrideDays > 0:
		days = overrideDays
	case mondayIndex(today) == 0:
		days = 7
	}
	out := make([]time.Time, 0, days)
	for i := 0; i < days; i++ {
		out = append(out, today.AddDate(0, 0, i))
	}
	return out
}

// ISOWeekLabel weekly 输出文件用的 "2026-07"
func ISOWeekLabel(day time.Time) string {
	year, week := day.ISOWeek()
	return fmt.Sprintf("%d-%02d", year, week)
}
