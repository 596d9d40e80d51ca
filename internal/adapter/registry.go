package adapter

import (
	"fmt"
	"sort"

	"PickForge/internal/config"
	"PickForge/internal/interfaces"

	"github.com/sirupsen/logrus"
)

// apiKeyEnv 缺少密钥时提示的环境变量
var apiKeyEnv = map[string]string{
	config.PlatformTheOdds:    "ODDS_API_KEY",
	config.PlatformSportsData: "SPORTSDATA_API_KEY",
}

// ProviderRegistry 按配置创建的供应商实例
type ProviderRegistry struct {
	cfg       *config.Config
	logger    *logrus.Logger
	providers map[string]interfaces.OddsProvider
}

func NewProviderRegistry(cfg *config.Config, archiver interfaces.SnapshotArchiver, logger *logrus.Logger) *ProviderRegistry {
	r := &ProviderRegistry{
		cfg:       cfg,
		logger:    logger,
		providers: make(map[string]interfaces.OddsProvider),
	}
	r.initFromFactories(archiver)
	return r
}

// initFromFactories 配置里有、且注册了工厂的供应商才会实例化
func (r *ProviderRegistry) initFromFactories(archiver interfaces.SnapshotArchiver) {
	r.logger.WithField("factory_providers", ListFactories()).Debug("已注册的供应商工厂")

	for name, platformCfg := range r.cfg.Platforms {
		factory, ok := GetFactory(name)
		if !ok {
			continue
		}
		pc := platformCfg
		ins := factory(&pc, archiver, r.logger)
		if ins == nil {
			r.logger.WithField("provider", name).Error("工厂函数返回nil供应商实例")
			continue
		}
		if ins.GetName() != name {
			r.logger.WithFields(logrus.Fields{
				"config_provider":  name,
				"adapter_provider": ins.GetName(),
			}).Error("供应商名称与配置不匹配")
			continue
		}
		r.providers[name] = ins
	}
	r.logger.WithField("providers", r.List()).Info("供应商实例初始化完成")
}

// List 已初始化的供应商，按名称排序
func (r *ProviderRegistry) List() []string {
	names := make([]string, 0, len(r.providers))
	for p := range r.providers {
		names = append(names, p)
	}
	sort.Strings(names)
	return names
}

// Get 获取供应商实例；未配置密钥视为不可用
func (r *ProviderRegistry) Get(name string) (interfaces.OddsProvider, error) {
	ins, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}
	if r.cfg.Platform(name).AuthToken == "" {
		return nil, fmt.Errorf("%s is required when provider=%s", apiKeyEnv[name], name)
	}
	return ins, nil
}
