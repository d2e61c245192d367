package core

// EngineDefaults 是推荐引擎的默认参数接口，用于在未显式配置时提供默认值。
type EngineDefaults interface {
	// DefaultThreshold 返回邻域选择的默认相似度阈值
	DefaultThreshold() float64

	// DefaultTopN 返回默认返回的推荐条数
	DefaultTopN() int

	// DefaultMetric 返回默认的相似度度量方式
	DefaultMetric() string
}

// DefaultEngineConfig 是默认的引擎配置实现。
type DefaultEngineConfig struct{}

func (c *DefaultEngineConfig) DefaultThreshold() float64 {
	return 0.1
}

func (c *DefaultEngineConfig) DefaultTopN() int {
	return 3
}

func (c *DefaultEngineConfig) DefaultMetric() string {
	return "pearson"
}

// Defaults 是包级默认配置。
var Defaults EngineDefaults = &DefaultEngineConfig{}
