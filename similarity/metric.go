package similarity

import "math"

// Metric 是相似度度量方式。
type Metric string

const (
	// MetricPearson 皮尔逊相关系数（默认）
	MetricPearson Metric = "pearson"
	// MetricCosine 共同评分物品上的余弦相似度
	MetricCosine Metric = "cosine"
)

// Func 计算两组等长分数序列的相似度；ok=false 表示相似度无定义。
type Func func(x, y []float64) (sim float64, ok bool)

// Pearson 计算皮尔逊相关系数：
//
//	Σ(xi-x̄)(yi-ȳ) / sqrt(Σ(xi-x̄)² · Σ(yi-ȳ)²)
//
// 序列为空、长度不等或任一序列各值全部相同（方差为 0）时无定义。
// 方差是否为 0 按输入判断，0.1 这类不能精确表示的分数求均值会留下舍入误差。
func Pearson(x, y []float64) (float64, bool) {
	n := len(x)
	if n == 0 || n != len(y) {
		return 0, false
	}
	if constant(x) || constant(y) {
		return 0, false
	}

	var sumX, sumY float64
	for i := 0; i < n; i++ {
		sumX += x[i]
		sumY += y[i]
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	var cov, varX, varY float64
	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		dy := y[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0, false
	}

	sim := cov / math.Sqrt(varX*varY)
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return 0, false
	}
	return sim, true
}

// Cosine 计算余弦相似度，序列为空或任一序列全为 0 时无定义。
func Cosine(x, y []float64) (float64, bool) {
	n := len(x)
	if n == 0 || n != len(y) {
		return 0, false
	}
	if allZero(x) || allZero(y) {
		return 0, false
	}

	var dot, normX, normY float64
	for i := 0; i < n; i++ {
		dot += x[i] * y[i]
		normX += x[i] * x[i]
		normY += y[i] * y[i]
	}
	if normX == 0 || normY == 0 {
		return 0, false
	}

	sim := dot / math.Sqrt(normX*normY)
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return 0, false
	}
	return sim, true
}

func constant(v []float64) bool {
	for _, f := range v[1:] {
		if f != v[0] {
			return false
		}
	}
	return true
}

func allZero(v []float64) bool {
	for _, f := range v {
		if f != 0 {
			return false
		}
	}
	return true
}

// FuncFor 返回度量方式对应的计算函数。
func FuncFor(m Metric) (Func, bool) {
	switch m {
	case MetricPearson, "":
		return Pearson, true
	case MetricCosine:
		return Cosine, true
	default:
		return nil, false
	}
}
