// Package config 负责应用配置加载与配置驱动的 Pipeline 构建。
//
// 应用配置分三层加载，后者覆盖前者：
//  1. 结构体默认值（DefaultAppConfig）
//  2. YAML 配置文件（可选）
//  3. 环境变量（REVREC_ 前缀，见 envMappings）
package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/rushteam/revrec/core"
	"github.com/rushteam/revrec/pipeline"
	"github.com/rushteam/revrec/pkg/logging"
	"github.com/rushteam/revrec/recommender"
	"github.com/rushteam/revrec/store"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "REVREC_"

// AppConfig 是应用配置。
type AppConfig struct {
	Engine  EngineConfig   `koanf:"engine"`
	Cache   CacheConfig    `koanf:"cache"`
	Logging logging.Config `koanf:"logging"`

	// PipelineFile 为空时使用默认 Pipeline（recall.user_cf -> rerank.topn）
	PipelineFile string `koanf:"pipeline_file"`
}

// EngineConfig 是推荐引擎参数。
type EngineConfig struct {
	Threshold    float64 `koanf:"threshold" validate:"gte=-1,lte=1"`
	TopN         int     `koanf:"top_n" validate:"gte=1"`
	Metric       string  `koanf:"metric" validate:"oneof=pearson cosine"`
	MaxNeighbors int     `koanf:"max_neighbors" validate:"gte=0"`
	Workers      int     `koanf:"workers" validate:"gte=0"`
	Memoize      bool    `koanf:"memoize"`
}

// CacheConfig 是推荐结果缓存配置。
type CacheConfig struct {
	// Backend: none / memory / redis
	Backend   string      `koanf:"backend" validate:"oneof=none memory redis"`
	TTL       int         `koanf:"ttl" validate:"gte=0"`
	KeyPrefix string      `koanf:"key_prefix"`
	Redis     RedisConfig `koanf:"redis"`
}

// RedisConfig 是 Redis 连接配置。
type RedisConfig struct {
	Addr string `koanf:"addr"`
	DB   int    `koanf:"db" validate:"gte=0"`
}

// DefaultAppConfig 返回默认配置。
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Engine: EngineConfig{
			Threshold: core.Defaults.DefaultThreshold(),
			TopN:      core.Defaults.DefaultTopN(),
			Metric:    core.Defaults.DefaultMetric(),
		},
		Cache: CacheConfig{
			Backend:   "none",
			TTL:       300,
			KeyPrefix: "revrec",
			Redis:     RedisConfig{Addr: "127.0.0.1:6379"},
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "json",
		},
	}
}

// envMappings 把去掉前缀、转小写后的环境变量名映射到配置路径。
var envMappings = map[string]string{
	"engine_threshold":     "engine.threshold",
	"engine_top_n":         "engine.top_n",
	"engine_metric":        "engine.metric",
	"engine_max_neighbors": "engine.max_neighbors",
	"engine_workers":       "engine.workers",
	"engine_memoize":       "engine.memoize",
	"cache_backend":        "cache.backend",
	"cache_ttl":            "cache.ttl",
	"cache_key_prefix":     "cache.key_prefix",
	"redis_addr":           "cache.redis.addr",
	"redis_db":             "cache.redis.db",
	"log_level":            "logging.level",
	"log_format":           "logging.format",
	"pipeline_file":        "pipeline_file",
}

func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	// 未映射的变量直接忽略
	return ""
}

// Load 加载配置：默认值 -> path 指定的 YAML 文件（为空时跳过）-> REVREC_* 环境变量，然后校验。
func Load(path string) (*AppConfig, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultAppConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &AppConfig{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

var validate = validator.New()

// Validate 校验字段取值。
func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Cache.Backend == "redis" && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("cache.redis.addr is required when cache.backend is redis")
	}
	return nil
}

// OpenCache 按配置创建缓存后端，backend 为 none 时返回 nil。
func (c *AppConfig) OpenCache(ctx context.Context) (core.Store, error) {
	switch c.Cache.Backend {
	case "memory":
		return store.NewMemoryStore(), nil
	case "redis":
		rs, err := store.NewRedisStore(ctx, c.Cache.Redis.Addr, c.Cache.Redis.DB)
		if err != nil {
			return nil, fmt.Errorf("connect redis %s: %w", c.Cache.Redis.Addr, err)
		}
		return rs, nil
	default:
		return nil, nil
	}
}

// RecommenderOptions 把配置转成 recommender.Option：引擎参数、缓存后端与 Pipeline 文件。
// 需要 import _ "github.com/rushteam/revrec/config/builders" 才能构建 filter / rerank.topn 节点。
func (c *AppConfig) RecommenderOptions(ctx context.Context) ([]recommender.Option, error) {
	opts := []recommender.Option{
		recommender.WithThreshold(c.Engine.Threshold),
		recommender.WithTopN(c.Engine.TopN),
		recommender.WithMetric(c.Engine.Metric),
		recommender.WithMaxNeighbors(c.Engine.MaxNeighbors),
		recommender.WithWorkers(c.Engine.Workers),
		recommender.WithMemoize(c.Engine.Memoize),
	}

	cache, err := c.OpenCache(ctx)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		opts = append(opts, recommender.WithCache(cache, c.Cache.TTL, c.Cache.KeyPrefix))
	}

	if c.PipelineFile != "" {
		pcfg, err := pipeline.LoadFromYAML(c.PipelineFile)
		if err != nil {
			return nil, fmt.Errorf("load pipeline %s: %w", c.PipelineFile, err)
		}
		opts = append(opts, recommender.WithPipeline(PipelineFromConfig(pcfg)))
	}
	return opts, nil
}
