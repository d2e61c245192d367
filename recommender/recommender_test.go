package recommender

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/rushteam/revrec/core"
	"github.com/rushteam/revrec/filter"
	"github.com/rushteam/revrec/ingest"
	"github.com/rushteam/revrec/pipeline"
	"github.com/rushteam/revrec/rating"
	"github.com/rushteam/revrec/rerank"
	"github.com/rushteam/revrec/store"
)

func scenario() []core.Review {
	return []core.Review{
		{UserID: "u1", ItemID: "i1", Score: 5},
		{UserID: "u1", ItemID: "i2", Score: 3},
		{UserID: "u2", ItemID: "i1", Score: 4},
		{UserID: "u2", ItemID: "i2", Score: 2},
		{UserID: "u2", ItemID: "i3", Score: 5},
		{UserID: "u3", ItemID: "i1", Score: 5},
		{UserID: "u3", ItemID: "i3", Score: 4},
	}
}

func build(t *testing.T, reviews []core.Review, opts ...Option) *Recommender {
	t.Helper()
	rec, err := Build(context.Background(), ingest.NewSliceSource(reviews...), opts...)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	t.Cleanup(func() { _ = rec.Close() })
	return rec
}

func TestRecommender_Scenario(t *testing.T) {
	rec := build(t, scenario())

	if rec.TotalReviews() != 7 || rec.TotalUsers() != 3 || rec.TotalItems() != 3 {
		t.Errorf("totals = %d/%d/%d, want 7/3/3", rec.TotalReviews(), rec.TotalUsers(), rec.TotalItems())
	}

	sim, ok, err := rec.Similarity(context.Background(), "u1", "u2")
	if err != nil || !ok {
		t.Fatalf("Similarity(u1,u2) = %v, %v, %v", sim, ok, err)
	}
	if math.Abs(sim-1.0) > 1e-9 {
		t.Errorf("Similarity(u1,u2) = %v, want 1.0", sim)
	}

	// u1 与 u3 只共同评过 i1，方差为 0，相似度无定义
	if _, ok, _ := rec.Similarity(context.Background(), "u1", "u3"); ok {
		t.Errorf("Similarity(u1,u3) should be undefined")
	}

	got, err := rec.Recommend(context.Background(), "u1", 3)
	if err != nil {
		t.Fatalf("Recommend(u1) error = %v", err)
	}
	if !reflect.DeepEqual(got, []string{"i3"}) {
		t.Errorf("Recommend(u1) = %v, want [i3]", got)
	}
}

func TestRecommender_UnknownUser(t *testing.T) {
	rec := build(t, scenario())

	_, err := rec.Recommend(context.Background(), "nobody", 3)
	if !core.IsNotFound(err) {
		t.Errorf("Recommend(unknown) error = %v, want NOT_FOUND", err)
	}
	if _, _, err := rec.Similarity(context.Background(), "u1", "nobody"); !core.IsNotFound(err) {
		t.Errorf("Similarity(unknown) error = %v, want NOT_FOUND", err)
	}
}

func TestRecommender_EmptyResults(t *testing.T) {
	reviews := append(scenario(), core.Review{UserID: "u4", ItemID: "i9", Score: 3})
	rec := build(t, reviews)

	got, err := rec.Recommend(context.Background(), "u4", 3)
	if err != nil {
		t.Fatalf("Recommend(u4) error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Recommend(isolated user) = %v, want empty", got)
	}

	// u2 评过所有物品
	got, err = rec.Recommend(context.Background(), "u2", 3)
	if err != nil || len(got) != 0 {
		t.Errorf("Recommend(u2) = %v, %v, want empty", got, err)
	}
}

// largerCorpus 生成 n 个用户、m 个物品的确定性评分
func largerCorpus(n, m int) []core.Review {
	var out []core.Review
	for u := 0; u < n; u++ {
		for i := 0; i < m; i++ {
			if (u*7+i*3)%4 == 0 {
				continue
			}
			out = append(out, core.Review{
				UserID: fmt.Sprintf("u%02d", u),
				ItemID: fmt.Sprintf("i%02d", i),
				Score:  float64((u*i+u+2*i)%5 + 1),
			})
		}
	}
	return out
}

func TestRecommender_Properties(t *testing.T) {
	reviews := largerCorpus(30, 20)
	rec := build(t, reviews, WithWorkers(4))

	rated := make(map[string]map[string]bool)
	for _, r := range reviews {
		if rated[r.UserID] == nil {
			rated[r.UserID] = make(map[string]bool)
		}
		rated[r.UserID][r.ItemID] = true
	}

	for _, topN := range []int{1, 3, 5} {
		for user := range rated {
			got, err := rec.Recommend(context.Background(), user, topN)
			if err != nil {
				t.Fatalf("Recommend(%s) error = %v", user, err)
			}
			if len(got) > topN {
				t.Errorf("Recommend(%s, %d) returned %d items", user, topN, len(got))
			}
			for _, id := range got {
				if rated[user][id] {
					t.Errorf("Recommend(%s) contains already rated item %s", user, id)
				}
			}

			again, _ := rec.Recommend(context.Background(), user, topN)
			if !reflect.DeepEqual(got, again) {
				t.Errorf("Recommend(%s) not deterministic: %v vs %v", user, got, again)
			}
		}
	}

	// 独立构建的第二个实例结果一致
	other := build(t, reviews, WithWorkers(1), WithMemoize(true))
	for user := range rated {
		a, _ := rec.Recommend(context.Background(), user, 3)
		b, _ := other.Recommend(context.Background(), user, 3)
		if !reflect.DeepEqual(a, b) {
			t.Errorf("Recommend(%s) differs across instances: %v vs %v", user, a, b)
		}
	}
}

func TestRecommender_DefaultTopN(t *testing.T) {
	rec := build(t, largerCorpus(30, 20), WithTopN(2))
	got, err := rec.Recommend(context.Background(), "u00", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) > 2 {
		t.Errorf("Recommend(topN=0) returned %d items, want <= 2", len(got))
	}
}

func TestRecommender_UnsupportedMetric(t *testing.T) {
	_, err := Build(context.Background(), ingest.NewSliceSource(scenario()...), WithMetric("jaccard"))
	if !core.IsInvalidInput(err) {
		t.Errorf("Build(jaccard) error = %v, want INVALID_INPUT", err)
	}
}

func TestRecommender_CustomPipeline(t *testing.T) {
	reviews := append(scenario(),
		core.Review{UserID: "u2", ItemID: "i4", Score: 4},
	)
	rec := build(t, reviews, WithPipeline(func(c Components) (*pipeline.Pipeline, error) {
		return &pipeline.Pipeline{
			Name: "blacklist",
			Nodes: []pipeline.Node{
				c.UserCF,
				filter.NewFilterNode(filter.NewBlacklistFilter([]string{"i3"})),
				&rerank.TopNNode{},
			},
		}, nil
	}))

	got, err := rec.Recommend(context.Background(), "u1", 3)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"i4"}) {
		t.Errorf("Recommend(u1) = %v, want [i4]", got)
	}
}

func TestRecommender_Cache(t *testing.T) {
	ms := store.NewMemoryStore()
	rec := build(t, scenario(), WithCache(ms, 0, "test"))

	ctx := context.Background()
	if _, err := rec.Recommend(ctx, "u1", 3); err != nil {
		t.Fatal(err)
	}
	key := rec.cache.key("u1", 3)
	if !strings.HasPrefix(key, "test:") || !strings.HasSuffix(key, ":u1:3") {
		t.Errorf("cache key = %q", key)
	}
	raw, err := ms.Get(ctx, key)
	if err != nil {
		t.Fatalf("cache entry missing: %v", err)
	}
	if string(raw) != `["i3"]` {
		t.Errorf("cached value = %s", raw)
	}

	// 命中时直接返回缓存内容
	_ = ms.Set(ctx, key, []byte(`["cached"]`))
	got, _ := rec.Recommend(ctx, "u1", 3)
	if !reflect.DeepEqual(got, []string{"cached"}) {
		t.Errorf("Recommend() on cache hit = %v", got)
	}
}

func TestRecommender_CacheSharedAcrossCorpora(t *testing.T) {
	ms := store.NewMemoryStore()
	defer ms.Close()
	ctx := context.Background()

	a := build(t, scenario(), WithCache(ms, 300, ""))

	// 同一后端上的另一份语料：u2 评的是 i9 而不是 i3
	other := scenario()
	other[4] = core.Review{UserID: "u2", ItemID: "i9", Score: 5}
	b := build(t, other, WithCache(ms, 300, ""))

	if got, _ := a.Recommend(ctx, "u1", 3); !reflect.DeepEqual(got, []string{"i3"}) {
		t.Fatalf("a.Recommend(u1) = %v, want [i3]", got)
	}
	if got, _ := b.Recommend(ctx, "u1", 3); !reflect.DeepEqual(got, []string{"i9"}) {
		t.Errorf("b.Recommend(u1) = %v, want [i9]", got)
	}
	if a.cache.key("u1", 3) == b.cache.key("u1", 3) {
		t.Errorf("different corpora share cache key %q", a.cache.key("u1", 3))
	}

	// 相同语料、相同参数重建后仍命中同一个 key
	c := build(t, scenario(), WithCache(ms, 300, ""))
	if a.cache.key("u1", 3) != c.cache.key("u1", 3) {
		t.Errorf("rebuilt instance on the same corpus changed cache key")
	}

	// 参数不同也不共享
	d := build(t, scenario(), WithCache(ms, 300, ""), WithThreshold(0.5))
	if a.cache.key("u1", 3) == d.cache.key("u1", 3) {
		t.Errorf("different threshold shares cache key")
	}
}

func TestRecommender_ConstantScoresNeverNeighbors(t *testing.T) {
	reviews := []core.Review{
		{UserID: "flat", ItemID: "a", Score: 0.1},
		{UserID: "flat", ItemID: "b", Score: 0.1},
		{UserID: "flat", ItemID: "c", Score: 0.1},
		{UserID: "t", ItemID: "a", Score: 1},
		{UserID: "t", ItemID: "b", Score: 2},
		{UserID: "t", ItemID: "c", Score: 3},
		{UserID: "flat", ItemID: "z", Score: 0.1},
	}
	rec := build(t, reviews, WithThreshold(-1))

	if sim, ok, err := rec.Similarity(context.Background(), "t", "flat"); err != nil || ok {
		t.Errorf("Similarity(t, flat) = %v, %v, %v, want undefined", sim, ok, err)
	}
	got, err := rec.Recommend(context.Background(), "t", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("Recommend(t) = %v, want empty (only candidate comes from an undefined pair)", got)
	}
}

func TestNew_FreezesHandBuiltDataset(t *testing.T) {
	a := ingest.NewAdapter()
	for _, r := range scenario() {
		_ = a.Add(r)
	}
	ds := a.Dataset()
	ds.Ratings = rating.NewMatrix()
	ds.Ratings.Put(0, 0, 5)
	ds.Ratings.Put(0, 1, 3)
	ds.Ratings.Put(1, 0, 4)
	ds.Ratings.Put(1, 1, 2)
	ds.Ratings.Put(1, 2, 5)

	if _, err := New(ds); err != nil {
		t.Fatal(err)
	}
	if !ds.Ratings.Frozen() {
		t.Error("New() did not freeze the rating matrix")
	}
	if _, err := New(&ingest.Dataset{}); !core.IsInvalidInput(err) {
		t.Errorf("New(empty dataset) error = %v, want INVALID_INPUT", err)
	}
}

type brokenStore struct{}

func (brokenStore) Name() string { return "broken" }
func (brokenStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}
func (brokenStore) Set(context.Context, string, []byte, ...int) error {
	return errors.New("connection refused")
}
func (brokenStore) Delete(context.Context, string) error { return nil }
func (brokenStore) Close() error                          { return nil }

func TestRecommender_CacheFailureFallsBack(t *testing.T) {
	rec := build(t, scenario(), WithCache(brokenStore{}, 60, ""))

	for i := 0; i < 10; i++ {
		got, err := rec.Recommend(context.Background(), "u1", 3)
		if err != nil {
			t.Fatalf("Recommend() error = %v", err)
		}
		if !reflect.DeepEqual(got, []string{"i3"}) {
			t.Fatalf("Recommend() = %v, want [i3]", got)
		}
	}
}
