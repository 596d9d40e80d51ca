package model

import (
	"fmt"
	"strings"
)

// MinOdds 选项赔率必须严格大于该值
const MinOdds = 1.01

type PickOption struct {
	Label string  `json:"label"`
	Odds  float64 `json:"odds"`
}

type PickMetadata struct {
	League    string `json:"league"`
	Event     string `json:"event"`
	StartTime string `json:"start_time"`
}

// Pick 对外导出的单条推荐
type Pick struct {
	SportSlug   string       `json:"sport_slug"`
	Title       string       `json:"title"`
	Description *string      `json:"description"`
	OrderIndex  int          `json:"order_index"`
	Options     []PickOption `json:"options"`
	Metadata    PickMetadata `json:"metadata"`
}

// ImportPayload 导入包：一个 round 下有序的 picks
type ImportPayload struct {
	RoundID string `json:"round_id"`
	Picks   []Pick `json:"picks"`
}

// ValidationError 导入包校验失败
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("payload校验失败 %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Validate 校验导入包结构
func (p ImportPayload) Validate() error {
	if strings.TrimSpace(p.RoundID) == "" {
		return invalid("round_id", "不能为空")
	}
	if len(p.Picks) == 0 {
		return invalid("picks", "至少需要1条")
	}
	for i, pick := range p.Picks {
		prefix := fmt.Sprintf("picks[%d]", i)
		if pick.SportSlug == "" {
			return invalid(prefix+".sport_slug", "不能为空")
		}
		if pick.Title == "" {
			return invalid(prefix+".title", "不能为空")
		}
		if pick.OrderIndex < 0 {
			return invalid(prefix+".order_index", "不能为负: %d", pick.OrderIndex)
		}
		if len(pick.Options) < 2 {
			return invalid(prefix+".options", "至少需要2个选项，实际%d", len(pick.Options))
		}
		for j, opt := range pick.Options {
			if opt.Label == "" {
				return invalid(fmt.Sprintf("%s.options[%d].label", prefix, j), "不能为空")
			}
			if opt.Odds <= MinOdds {
				return invalid(fmt.Sprintf("%s.options[%d].odds", prefix, j), "必须大于%.2f: %v", MinOdds, opt.Odds)
			}
		}
		if pick.Metadata.League == "" {
			return invalid(prefix+".metadata.league", "不能为空")
		}
		if pick.Metadata.Event == "" {
			return invalid(prefix+".metadata.event", "不能为空")
		}
		st := pick.Metadata.StartTime
		if !strings.HasSuffix(st, "Z") {
			return invalid(prefix+".metadata.start_time", "必须是以Z结尾的UTC时间: %q", st)
		}
		if _, ok := ParseUTCISO(st); !ok {
			return invalid(prefix+".metadata.start_time", "不是合法的ISO-8601时间: %q", st)
		}
	}
	return nil
}
