package adapter

import (
	"fmt"
	"sort"

	"PickForge/internal/interfaces"

	"github.com/sirupsen/logrus"
)

// 全局工厂函数注册表，由各供应商包的 init 填充
var factoryRegistry = make(map[string]interfaces.Factory)

// Register 供适配器init函数调用，注册工厂函数
func Register(provider string, factory interfaces.Factory) {
	if factory == nil {
		panic(fmt.Sprintf("供应商%s的工厂函数不能为nil", provider))
	}
	if _, exists := factoryRegistry[provider]; exists {
		logrus.Warnf("供应商%s的适配器已注册，将覆盖原有实现", provider)
	}
	factoryRegistry[provider] = factory
}

// GetFactory 获取指定供应商的工厂函数
func GetFactory(provider string) (interfaces.Factory, bool) {
	factory, ok := factoryRegistry[provider]
	return factory, ok
}

// ListFactories 已注册的供应商，按名称排序
func ListFactories() []string {
	providers := make([]string, 0, len(factoryRegistry))
	for p := range factoryRegistry {
		providers = append(providers, p)
	}
	sort.Strings(providers)
	return providers
}
