package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// RawList 供应商返回的原始 JSON 数组，元素保持原样以便归档
type RawList []json.RawMessage

// RawEvent 主赔率供应商（The Odds API 形状）的原始事件
type RawEvent struct {
	ID           string         `json:"id"`
	SportKey     string         `json:"sport_key,omitempty"`
	SportTitle   *string        `json:"sport_title,omitempty"`
	CommenceTime *string        `json:"commence_time,omitempty"`
	HomeTeam     *string        `json:"home_team,omitempty"`
	AwayTeam     *string        `json:"away_team,omitempty"`
	Name         *string        `json:"name,omitempty"`
	Teams        []string       `json:"teams,omitempty"`
	Status       *string        `json:"status,omitempty"`
	Completed    *bool          `json:"completed,omitempty"`
	Bookmakers   []RawBookmaker `json:"bookmakers,omitempty"`
}

type RawBookmaker struct {
	Key     string      `json:"key"`
	Title   string      `json:"title,omitempty"`
	Markets []RawMarket `json:"markets,omitempty"`
}

type RawMarket struct {
	Key      string       `json:"key"`
	Outcomes []RawOutcome `json:"outcomes,omitempty"`
}

type RawOutcome struct {
	Name  string     `json:"name"`
	Price FlexNumber `json:"price"`
	Point FlexNumber `json:"point,omitempty"`
}

// FlexNumber 兼容数字和数字字符串；无法解析时 Valid=false
type FlexNumber struct {
	Value float64
	Valid bool
}

func Num(v float64) FlexNumber { return FlexNumber{Value: v, Valid: true} }

func (n *FlexNumber) UnmarshalJSON(data []byte) error {
	*n = FlexNumber{}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*n = FlexNumber{Value: f, Valid: true}
		}
		return nil
	}
	if f, err := strconv.ParseFloat(string(trimmed), 64); err == nil {
		*n = FlexNumber{Value: f, Valid: true}
	}
	return nil
}

func (n FlexNumber) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// DecodeRawEvents 逐条解析原始事件，跳过非对象元素
func DecodeRawEvents(items RawList) []RawEvent {
	events := make([]RawEvent, 0, len(items))
	for _, item := range items {
		trimmed := bytes.TrimSpace(item)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			continue
		}
		var ev RawEvent
		if err := json.Unmarshal(trimmed, &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	return events
}

// EncodeRawEvents 将结构化事件转回原始数组（SportsData 转换结果复用同一条流水线）
func EncodeRawEvents(events []RawEvent) RawList {
	out := make(RawList, 0, len(events))
	for _, ev := range events {
		b, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		out = append(out, b)
	}
	return out
}

// DecodeRows 解析 SportsData 的行对象数组，跳过非对象元素
func DecodeRows(items RawList) []map[string]interface{} {
	rows := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		var row map[string]interface{}
		dec := json.NewDecoder(bytes.NewReader(item))
		dec.UseNumber()
		if err := dec.Decode(&row); err != nil || row == nil {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

func StrPtr(s string) *string { return &s }
