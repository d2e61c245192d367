// Package dsl 提供基于 CEL (Common Expression Language) 的物品级表达式求值，
// 供 filter.ExprFilter 等节点按配置决定保留哪些推荐结果。
package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/revrec/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once

	// programs 缓存已编译的表达式：expr -> *Program
	programs sync.Map
)

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("item", cel.DynType),
			cel.Variable("label", cel.DynType),
			cel.Variable("rctx", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

// Program 是编译后的布尔表达式，可并发求值。
//
// 表达式语法（CEL 标准语法）：
//   - 数值：item.score >= 3.5 / item.index < 100
//   - 标签：label.recall_source == "user_cf"
//   - 上下文：rctx.scene == "email" && item.score > 4.0
//   - 存在性：访问不存在的 label 会报错，先用 "key" in item.labels 判断
type Program struct {
	expr string
	prg  cel.Program
}

// Compile 编译表达式，同一表达式只编译一次。
func Compile(expr string) (*Program, error) {
	if cached, ok := programs.Load(expr); ok {
		return cached.(*Program), nil
	}

	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile %q: %w", expr, issues.Err())
	}
	if ast.OutputType() != cel.BoolType && ast.OutputType() != cel.DynType {
		return nil, fmt.Errorf("compile %q: expression must return bool, got %v", expr, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", expr, err)
	}

	p := &Program{expr: expr, prg: prg}
	actual, _ := programs.LoadOrStore(expr, p)
	return actual.(*Program), nil
}

// String 返回原始表达式。
func (p *Program) String() string { return p.expr }

// Match 对单个物品求值，返回布尔结果。
func (p *Program) Match(item *core.Item, rctx *core.RecommendContext) (bool, error) {
	out, _, err := p.prg.Eval(buildInput(item, rctx))
	if err != nil {
		return false, fmt.Errorf("eval %q: %w", p.expr, err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("eval %q: expression must return bool, got %T", p.expr, out.Value())
	}
	return result, nil
}

// Evaluate 是 Compile + Match 的便捷写法，空表达式视为 true。
func Evaluate(expr string, item *core.Item, rctx *core.RecommendContext) (bool, error) {
	if expr == "" {
		return true, nil
	}
	p, err := Compile(expr)
	if err != nil {
		return false, err
	}
	return p.Match(item, rctx)
}

// buildInput 构建 CEL 表达式的输入数据
func buildInput(item *core.Item, rctx *core.RecommendContext) map[string]any {
	labels := make(map[string]any, len(item.Labels))
	labelAccessor := make(map[string]any, len(item.Labels))
	for k, v := range item.Labels {
		labels[k] = map[string]any{
			"value":  v.Value,
			"source": v.Source,
		}
		// label.recall_source 直接返回 value
		labelAccessor[k] = v.Value
	}

	meta := item.Meta
	if meta == nil {
		meta = map[string]any{}
	}

	in := map[string]any{
		"item": map[string]any{
			"id":     item.ID,
			"index":  int64(item.Index),
			"score":  item.Score,
			"meta":   meta,
			"labels": labels,
		},
		"label": labelAccessor,
	}

	r := map[string]any{}
	if rctx != nil {
		params := rctx.Params
		if params == nil {
			params = map[string]any{}
		}
		r = map[string]any{
			"user_id": rctx.UserID,
			"top_n":   int64(rctx.TopN),
			"scene":   rctx.Scene,
			"params":  params,
		}
	}
	in["rctx"] = r
	return in
}
