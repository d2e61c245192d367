package neighborhood

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/rs/zerolog"
)

// fakeSim 是固定相似度表，缺失即无定义
type fakeSim map[[2]int]float64

func (f fakeSim) Similarity(a, b int) (float64, bool) {
	if s, ok := f[[2]int{a, b}]; ok {
		return s, true
	}
	s, ok := f[[2]int{b, a}]
	return s, ok
}

type fakeUsers []int

func (f fakeUsers) Users() []int { return f }

func TestThreshold_Neighborhood(t *testing.T) {
	sims := fakeSim{
		{0, 1}: 0.9,
		{0, 2}: 0.1, // 恰好等于阈值，保留
		{0, 3}: 0.05,
		{0, 4}: -0.8,
		// {0,5} 无定义
	}
	users := fakeUsers{0, 1, 2, 3, 4, 5}

	tests := []struct {
		name      string
		threshold float64
		maxN      int
		want      []Neighbor
	}{
		{
			name:      "default threshold",
			threshold: 0.1,
			want:      []Neighbor{{1, 0.9}, {2, 0.1}},
		},
		{
			name:      "negative threshold keeps negative but not undefined",
			threshold: -1,
			want:      []Neighbor{{1, 0.9}, {2, 0.1}, {3, 0.05}, {4, -0.8}},
		},
		{
			name:      "max neighbors keeps strongest",
			threshold: -1,
			maxN:      2,
			want:      []Neighbor{{1, 0.9}, {2, 0.1}},
		},
		{
			name:      "nobody clears threshold",
			threshold: 0.95,
			want:      nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := NewThreshold(sims, users)
			sel.Threshold = tt.threshold
			sel.MaxNeighbors = tt.maxN
			sel.Logger = zerolog.Nop()

			got, err := sel.Neighborhood(context.Background(), 0)
			if err != nil {
				t.Fatalf("Neighborhood() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Neighborhood() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestThreshold_ParallelMatchesSequential(t *testing.T) {
	const n = 2000
	sims := fakeSim{}
	users := make(fakeUsers, n)
	for u := 0; u < n; u++ {
		users[u] = u
		if u%3 != 0 {
			sims[[2]int{7, u}] = float64(u%10) / 10
		}
	}

	run := func(workers int) []Neighbor {
		sel := NewThreshold(sims, users)
		sel.Workers = workers
		sel.Logger = zerolog.Nop()
		got, err := sel.Neighborhood(context.Background(), 7)
		if err != nil {
			t.Fatalf("Neighborhood(workers=%d) error = %v", workers, err)
		}
		return got
	}

	seq := run(1)
	for _, w := range []int{2, 4, 16} {
		if par := run(w); !reflect.DeepEqual(seq, par) {
			t.Errorf("workers=%d result differs from sequential (%d vs %d neighbors)", w, len(par), len(seq))
		}
	}
	for i := 1; i < len(seq); i++ {
		if seq[i-1].User >= seq[i].User {
			t.Fatalf("neighbors not sorted by user: %v", seq[i-1:i+1])
		}
	}
}

func TestThreshold_Cancelled(t *testing.T) {
	users := make(fakeUsers, 1000)
	for i := range users {
		users[i] = i
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sel := NewThreshold(fakeSim{}, users)
	sel.Logger = zerolog.Nop()
	_, err := sel.Neighborhood(ctx, 0)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Neighborhood() error = %v, want context.Canceled", err)
	}
}

func TestThreshold_EmptyUniverse(t *testing.T) {
	sel := NewThreshold(fakeSim{}, fakeUsers{})
	got, err := sel.Neighborhood(context.Background(), 0)
	if err != nil || len(got) != 0 {
		t.Errorf("Neighborhood() = %v, %v; want empty", got, err)
	}
}
