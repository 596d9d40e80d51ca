package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Event 赛程表，(provider, provider_event_id) 唯一
type Event struct {
	ID              string         `gorm:"column:id;type:varchar(36);primaryKey;comment:主键UUID"`
	Provider        string         `gorm:"column:provider;type:varchar(32);not null;uniqueIndex:uk_events_provider_event,priority:1;comment:数据供应商"`
	ProviderEventID string         `gorm:"column:provider_event_id;type:varchar(128);not null;uniqueIndex:uk_events_provider_event,priority:2;comment:供应商原生ID"`
	SportSlug       string         `gorm:"column:sport_slug;type:varchar(32);not null;index;comment:应用侧运动分类"`
	League          string         `gorm:"column:league;type:varchar(128);comment:联赛"`
	StartTime       time.Time      `gorm:"column:start_time;type:timestamp;not null;index;comment:开赛时间(UTC)"`
	Home            *string        `gorm:"column:home;type:varchar(128);comment:主队"`
	Away            *string        `gorm:"column:away;type:varchar(128);comment:客队"`
	Status          string         `gorm:"column:status;type:varchar(16);default:'scheduled';comment:状态：scheduled/live/final"`
	Participants    datatypes.JSON `gorm:"column:participants;type:jsonb;comment:参赛方"`
	Metadata        datatypes.JSON `gorm:"column:metadata;type:jsonb;comment:扩展信息"`
	CreatedAt       time.Time      `gorm:"column:created_at;type:timestamp;comment:创建时间"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;type:timestamp;comment:更新时间"`
}

// FeaturedEvent 每日精选，按 featured_date 整体替换
type FeaturedEvent struct {
	ID           string    `gorm:"column:id;type:varchar(36);primaryKey;comment:主键UUID"`
	FeaturedDate string    `gorm:"column:featured_date;type:varchar(10);not null;index;comment:精选日期YYYY-MM-DD"`
	SportSlug    string    `gorm:"column:sport_slug;type:varchar(32);not null;comment:运动分类"`
	League       *string   `gorm:"column:league;type:varchar(128);comment:联赛分类"`
	EventID      string    `gorm:"column:event_id;type:varchar(36);not null;comment:关联events.id"`
	Bucket       string    `gorm:"column:bucket;type:varchar(16);not null;comment:today/tomorrow/week_rest"`
	Position     int       `gorm:"column:position;type:int;default:0;comment:写入顺序"`
	CreatedAt    time.Time `gorm:"column:created_at;type:timestamp;comment:创建时间"`
}

// PickPack 推荐包，(round_id, pack_type, anchor_date) 唯一，后写覆盖
type PickPack struct {
	ID         string         `gorm:"column:id;type:varchar(36);primaryKey;comment:主键UUID"`
	RoundID    string         `gorm:"column:round_id;type:varchar(64);not null;uniqueIndex:uk_pick_packs_round_type_anchor,priority:1;comment:轮次"`
	PackType   string         `gorm:"column:pack_type;type:varchar(16);not null;uniqueIndex:uk_pick_packs_round_type_anchor,priority:2;comment:daily/weekly"`
	AnchorDate string         `gorm:"column:anchor_date;type:varchar(10);not null;uniqueIndex:uk_pick_packs_round_type_anchor,priority:3;comment:锚定日期"`
	Seed       string         `gorm:"column:seed;type:varchar(128);not null;comment:确定性种子"`
	Payload    datatypes.JSON `gorm:"column:payload;type:jsonb;not null;comment:导入包"`
	Summary    datatypes.JSON `gorm:"column:summary;type:jsonb;comment:摘要"`
	CreatedAt  time.Time      `gorm:"column:created_at;type:timestamp;comment:创建时间"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;type:timestamp;comment:更新时间"`
}

func (Event) TableName() string         { return "events" }
func (FeaturedEvent) TableName() string { return "featured_events" }
func (PickPack) TableName() string      { return "pick_packs" }

func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

func (f *FeaturedEvent) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}

func (p *PickPack) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// EventRowFromModel 领域模型 -> 表行
func EventRowFromModel(m EventModel) (*Event, error) {
	start, ok := ParseUTCISO(m.StartTime)
	if !ok {
		return nil, fmt.Errorf("非法的start_time: %q", m.StartTime)
	}
	participants := m.Participants
	if participants == nil {
		participants = []string{}
	}
	pj, err := json.Marshal(participants)
	if err != nil {
		return nil, fmt.Errorf("序列化participants失败: %w", err)
	}
	meta := make(map[string]interface{}, len(m.Metadata))
	for k, v := range m.Metadata {
		if k == "db_event_id" {
			continue
		}
		meta[k] = v
	}
	mj, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("序列化metadata失败: %w", err)
	}
	status := m.Status
	if status == "" {
		status = StatusScheduled
	}
	row := &Event{
		Provider:        m.Provider,
		ProviderEventID: m.ProviderEventID,
		SportSlug:       m.SportSlug,
		League:          m.League,
		StartTime:       start,
		Status:          status,
		Participants:    datatypes.JSON(pj),
		Metadata:        datatypes.JSON(mj),
	}
	if m.Home != "" {
		row.Home = StrPtr(m.Home)
	}
	if m.Away != "" {
		row.Away = StrPtr(m.Away)
	}
	return row, nil
}

// ToModel 表行 -> 领域模型，metadata 中回填 db_event_id
func (e *Event) ToModel() EventModel {
	meta := map[string]interface{}{}
	if len(e.Metadata) > 0 {
		_ = json.Unmarshal(e.Metadata, &meta)
	}
	meta["db_event_id"] = e.ID

	var participants []string
	if len(e.Participants) > 0 {
		_ = json.Unmarshal(e.Participants, &participants)
	}
	if participants == nil {
		participants = []string{}
	}
	provider := e.Provider
	if provider == "" {
		provider = ProviderTheOdds
	}
	status := e.Status
	if status == "" {
		status = StatusScheduled
	}
	out := EventModel{
		Provider:        provider,
		ProviderEventID: e.ProviderEventID,
		SportSlug:       e.SportSlug,
		League:          e.League,
		StartTime:       ToUTCZ(e.StartTime),
		Status:          status,
		Participants:    participants,
		Metadata:        meta,
	}
	if e.Home != nil {
		out.Home = *e.Home
	}
	if e.Away != nil {
		out.Away = *e.Away
	}
	return out
}

// ToSelection 表行 -> 精选模型
func (f *FeaturedEvent) ToSelection() FeaturedSelection {
	bucket := f.Bucket
	if bucket == "" {
		bucket = BucketWeekRest
	}
	return FeaturedSelection{
		EventID:      f.EventID,
		FeaturedDate: f.FeaturedDate,
		SportSlug:    f.SportSlug,
		League:       f.League,
		Bucket:       bucket,
	}
}
