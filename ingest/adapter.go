// Package ingest 把评分三元组写入 ID 映射与评分矩阵，构建只读的 Dataset。
//
// 生命周期分两段：摄入阶段可并发 Add；调用 Dataset() 后矩阵冻结，
// 之后的 Add 返回 INVALID_INPUT 错误，查询阶段只读。
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rushteam/revrec/core"
	"github.com/rushteam/revrec/identity"
	"github.com/rushteam/revrec/pkg/logging"
	"github.com/rushteam/revrec/pkg/metrics"
	"github.com/rushteam/revrec/rating"
)

// Source 是评分三元组的流式来源，读完时返回 io.EOF。
type Source interface {
	Next() (core.Review, error)
}

// Stats 是摄入统计。
type Stats struct {
	// TotalReviews 摄入事件数，覆盖写也计数
	TotalReviews int
	// TotalUsers 不同用户数
	TotalUsers int
	// TotalItems 不同物品数
	TotalItems int
}

// Dataset 是冻结后的数据集，供相似度与召回使用。
type Dataset struct {
	Users   *identity.Mapper
	Items   *identity.Mapper
	Ratings *rating.Matrix
	Stats   Stats
}

// Adapter 是摄入适配器。
//
// 用户/物品下标分配与矩阵写入在同一把锁内完成，保证映射与矩阵一致。
// 同一 (user, item) 重复出现时后写覆盖先写，TotalReviews 仍按事件计数。
type Adapter struct {
	mu      sync.Mutex
	users   *identity.Mapper
	items   *identity.Mapper
	ratings *rating.Matrix
	total   int
	frozen  bool

	logger zerolog.Logger
}

// NewAdapter 创建空的摄入适配器。
func NewAdapter() *Adapter {
	return &Adapter{
		users:   identity.NewMapper("user"),
		items:   identity.NewMapper("item"),
		ratings: rating.NewMatrix(),
		logger:  logging.Component("ingest"),
	}
}

// WithLogger 替换日志。
func (a *Adapter) WithLogger(l zerolog.Logger) *Adapter {
	a.logger = l
	return a
}

// Add 摄入一条评分。ID 为空时返回 INVALID_INPUT。
func (a *Adapter) Add(r core.Review) error {
	if strings.TrimSpace(r.UserID) == "" || strings.TrimSpace(r.ItemID) == "" {
		return core.NewDomainError(core.ModuleIngest, core.ErrorCodeInvalidInput,
			fmt.Sprintf("ingest: empty id in review (user=%q item=%q)", r.UserID, r.ItemID))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.frozen {
		return core.NewDomainError(core.ModuleIngest, core.ErrorCodeInvalidInput,
			"ingest: dataset already built, no further reviews accepted")
	}

	u := a.users.Resolve(r.UserID)
	i := a.items.Resolve(r.ItemID)
	a.ratings.Put(u, i, r.Score)
	a.total++
	metrics.ReviewsIngested.Inc()
	return nil
}

// Consume 读完 src 并逐条 Add，返回本次摄入的条数。
// ctx 取消时停止并返回 ctx.Err()。
func (a *Adapter) Consume(ctx context.Context, src Source) (int, error) {
	n := 0
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		r, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return n, fmt.Errorf("ingest: read review %d: %w", n+1, err)
		}
		if err := a.Add(r); err != nil {
			return n, err
		}
		n++
	}

	a.logger.Debug().Int("reviews", n).Msg("source consumed")
	return n, nil
}

// Stats 返回当前统计，摄入过程中也可调用。
func (a *Adapter) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.statsLocked()
}

func (a *Adapter) statsLocked() Stats {
	return Stats{
		TotalReviews: a.total,
		TotalUsers:   a.users.Len(),
		TotalItems:   a.items.Len(),
	}
}

// Dataset 冻结并返回数据集，可重复调用，返回同一份数据。
func (a *Adapter) Dataset() *Dataset {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.frozen {
		a.ratings.Freeze()
		a.frozen = true
		st := a.statsLocked()
		a.logger.Info().
			Int("reviews", st.TotalReviews).
			Int("users", st.TotalUsers).
			Int("items", st.TotalItems).
			Int("ratings", a.ratings.NumRatings()).
			Msg("dataset built")
	}

	return &Dataset{
		Users:   a.users,
		Items:   a.items,
		Ratings: a.ratings,
		Stats:   a.statsLocked(),
	}
}

// SliceSource 是基于切片的 Source，主要用于测试与小数据集。
type SliceSource struct {
	reviews []core.Review
	pos     int
}

// NewSliceSource 创建切片来源。
func NewSliceSource(reviews ...core.Review) *SliceSource {
	return &SliceSource{reviews: reviews}
}

func (s *SliceSource) Next() (core.Review, error) {
	if s.pos >= len(s.reviews) {
		return core.Review{}, io.EOF
	}
	r := s.reviews[s.pos]
	s.pos++
	return r, nil
}
