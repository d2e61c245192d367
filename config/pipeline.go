package config

import (
	"fmt"

	"github.com/rushteam/revrec/pipeline"
	"github.com/rushteam/revrec/recommender"
)

// NewFactory 返回 DefaultFactory 加上绑定到 c 的 recall.user_cf。
func NewFactory(c recommender.Components) *pipeline.NodeFactory {
	f := DefaultFactory()
	f.Register("recall.user_cf", func(map[string]any) (pipeline.Node, error) {
		if c.UserCF == nil {
			return nil, fmt.Errorf("recall.user_cf: engine not built")
		}
		return c.UserCF, nil
	})
	return f
}

// PipelineFromConfig 把 pipeline 配置转成 recommender.PipelineBuilder。
//
//	pcfg, _ := pipeline.LoadFromYAML("pipeline.yaml")
//	rec, _ := recommender.New(ds, recommender.WithPipeline(config.PipelineFromConfig(pcfg)))
func PipelineFromConfig(pcfg *pipeline.Config) recommender.PipelineBuilder {
	return func(c recommender.Components) (*pipeline.Pipeline, error) {
		f := NewFactory(c)
		if err := ValidatePipelineConfig(pcfg, f); err != nil {
			return nil, err
		}
		p, err := pcfg.BuildPipeline(f)
		if err != nil {
			return nil, err
		}
		if p.Name == "" {
			p.Name = "config"
		}
		return p, nil
	}
}
