package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// 平台键
const (
	PlatformTheOdds    = "theodds"
	PlatformSportsData = "sportsdata"
	PlatformOpenAI     = "openai"
)

// DefaultSportsConfig 默认 sports map 文件列表
var DefaultSportsConfig = []string{"config/sports_map.base.yaml", "config/sports_map.auto.yaml"}

// SportsDataSportsConfig provider=sportsdata 且使用默认列表时改用的映射文件
const SportsDataSportsConfig = "config/sportsdata_map.base.yaml"

// Config 全局配置结构体（完全匹配config.yaml）
type Config struct {
	Server    ServerConfig              `mapstructure:"server"`    // 服务器配置
	Database  DatabaseConfig            `mapstructure:"database"`  // Postgres配置
	Redis     RedisConfig               `mapstructure:"redis"`     // 最新pack缓存
	Generator GeneratorConfig           `mapstructure:"generator"` // 选注生成参数
	Schedule  ScheduleConfig            `mapstructure:"schedule"`  // 定时任务
	Platforms map[string]PlatformConfig `mapstructure:"platforms"` // 外部服务独立配置
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port int    `mapstructure:"port"` // 服务端口
	Mode string `mapstructure:"mode"` // Gin运行模式：debug/release/test
}

// DatabaseConfig Postgres数据库配置
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`               // 连接DSN
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 最大打开连接数
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 连接最大存活时间
	LogLevel        string        `mapstructure:"log_level"`         // gorm日志级别：silent/error/warn/info
}

// RedisConfig 为空地址时不启用缓存
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// GeneratorConfig 生成流程参数
type GeneratorConfig struct {
	Provider           string   `mapstructure:"provider"`              // theodds/sportsdata
	Source             string   `mapstructure:"source"`                // live/raw-jornada
	RoundID            string   `mapstructure:"round_id"`              // 轮次ID
	Timezone           string   `mapstructure:"timezone"`              // 锚定时区
	Mode               string   `mapstructure:"mode"`                  // daily/weekly/both
	Markets            []string `mapstructure:"markets"`               // 盘口类型
	Regions            []string `mapstructure:"regions"`               // 赔率地区
	Bookmakers         []string `mapstructure:"bookmakers"`            // 限定的博彩公司
	DailyTarget        int      `mapstructure:"daily_target"`          // 0 表示使用 sports map 默认值
	WeeklyTarget       int      `mapstructure:"weekly_target"`         // 同上
	OutDir             string   `mapstructure:"outdir"`                // 输出目录
	RawDir             string   `mapstructure:"raw_dir"`               // 原始快照目录，空则 outdir/raw
	UseOpenAI          bool     `mapstructure:"use_openai"`            // 是否启用LLM排序
	PersistPacks       bool     `mapstructure:"persist_packs"`         // 是否写入 pick_packs
	MergeRawSoccer     bool     `mapstructure:"merge_raw_soccer"`      // sportsdata 时合并原始快照中的足球
	SportsConfig       []string `mapstructure:"sports_config"`         // sports map 文件列表
	SportsMapBase      string   `mapstructure:"sports_map_base"`       // 自动构建时的基础文件
	SportsMapOut       string   `mapstructure:"sports_map_out"`        // 自动构建输出文件
	FeaturedConfig     string   `mapstructure:"featured_config"`       // 精选配额文件
	KeywordsConfig     string   `mapstructure:"keywords_config"`       // 分类关键词文件
	MaxMarketsPerEvent int      `mapstructure:"max_markets_per_event"` // 精选每场最多盘口数
	SportsDataSyncDays int      `mapstructure:"sportsdata_sync_days"`  // 0 表示按星期自动决定
	MinLeadMinutes     int      `mapstructure:"min_lead_minutes"`      // 0 表示使用精选配置
	FeaturedDate       string   `mapstructure:"featured_date"`         // 空则取本地今天
}

// ScheduleConfig 定时任务Cron表达式
type ScheduleConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	DailyCron    string `mapstructure:"daily_cron"`
	WeeklyCron   string `mapstructure:"weekly_cron"`
	FeaturedCron string `mapstructure:"featured_cron"`
}

// PlatformConfig 单个外部服务的独立配置
type PlatformConfig struct {
	BaseURL       string  `mapstructure:"base_url"`        // API基础地址
	Timeout       int     `mapstructure:"timeout"`         // 请求超时（秒）
	RetryCount    int     `mapstructure:"retry_count"`     // 最大尝试次数
	BackoffMS     int     `mapstructure:"backoff_ms"`      // 首次退避毫秒数，按2的幂增长
	RatePerSecond float64 `mapstructure:"rate_per_second"` // 请求速率上限，0 表示不限
	AuthToken     string  `mapstructure:"auth_token"`      // API Key
	Proxy         string  `mapstructure:"proxy"`           // 代理地址
	Model         string  `mapstructure:"model"`           // 仅 openai 使用
}

// LoadConfig 加载配置文件（config/config.yaml），敏感项从 .env 覆盖（不提交 git）
func LoadConfig() (*Config, error) {
	// 1. 加载 .env（若存在），env 中的值会覆盖 config.yaml 中同名字段
	_ = godotenv.Load(".env.local") // 忽略错误（文件可不存在）
	_ = godotenv.Load()

	// 2. 读取 config.yaml
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	setDefaults()
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	viper.SetTypeByDefaultValue(true)
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	if cfg.Platforms == nil {
		cfg.Platforms = map[string]PlatformConfig{}
	}

	// 3. 敏感字段：用 env 覆盖（优先级 env > yaml）
	overrideFromEnv(&cfg)
	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("generator.provider", "theodds")
	viper.SetDefault("generator.source", "live")
	viper.SetDefault("generator.timezone", "Europe/Madrid")
	viper.SetDefault("generator.mode", "both")
	viper.SetDefault("generator.markets", []string{"h2h", "totals", "spreads"})
	viper.SetDefault("generator.regions", []string{"eu", "uk", "us"})
	viper.SetDefault("generator.outdir", "./generated")
	viper.SetDefault("generator.persist_packs", true)
	viper.SetDefault("generator.merge_raw_soccer", true)
	viper.SetDefault("generator.sports_config", DefaultSportsConfig)
	viper.SetDefault("generator.sports_map_base", "config/sports_map.base.yaml")
	viper.SetDefault("generator.sports_map_out", "config/sports_map.auto.yaml")
	viper.SetDefault("generator.featured_config", "config/featured_quotas.yaml")
	viper.SetDefault("generator.keywords_config", "config/keywords.yaml")
	viper.SetDefault("generator.max_markets_per_event", 2)
	viper.SetDefault("schedule.daily_cron", "0 7 * * *")
	viper.SetDefault("schedule.weekly_cron", "15 7 * * 1")
	viper.SetDefault("schedule.featured_cron", "30 6 * * *")
	viper.SetDefault("redis.ttl", 24*time.Hour)
}

// overrideFromEnv 用环境变量覆盖敏感配置
func overrideFromEnv(cfg *Config) {
	o := cfg.Platforms[PlatformTheOdds]
	if v := os.Getenv("ODDS_API_KEY"); v != "" {
		o.AuthToken = v
	}
	if v := os.Getenv("ODDS_API_BASE_URL"); v != "" {
		o.BaseURL = v
	}
	if o.BaseURL == "" {
		o.BaseURL = "https://api.the-odds-api.com"
	}
	cfg.Platforms[PlatformTheOdds] = o

	s := cfg.Platforms[PlatformSportsData]
	if v := os.Getenv("SPORTSDATA_API_KEY"); v != "" {
		s.AuthToken = v
	}
	if v := os.Getenv("SPORTSDATA_BASE_URL"); v != "" {
		s.BaseURL = v
	}
	if s.BaseURL == "" {
		s.BaseURL = "https://api.sportsdata.io/v3"
	}
	cfg.Platforms[PlatformSportsData] = s

	ai := cfg.Platforms[PlatformOpenAI]
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		ai.AuthToken = v
	}
	if ai.BaseURL == "" {
		ai.BaseURL = "https://api.openai.com/v1"
	}
	cfg.Platforms[PlatformOpenAI] = ai

	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("PICKS_ROUND_ID"); v != "" {
		cfg.Generator.RoundID = v
	}
}

// Platform 取平台配置，未配置时返回零值
func (c *Config) Platform(name string) PlatformConfig {
	return c.Platforms[name]
}

// GetGORMConfig 获取GORM配置
func (d *DatabaseConfig) GetGORMConfig() gorm.Config {
	level := logger.Warn
	switch strings.ToLower(d.LogLevel) {
	case "silent":
		level = logger.Silent
	case "error":
		level = logger.Error
	case "info":
		level = logger.Info
	}
	return gorm.Config{Logger: logger.Default.LogMode(level)}
}
