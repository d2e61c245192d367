package ingest

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"

	"github.com/rushteam/revrec/core"
	"github.com/rushteam/revrec/pkg/logging"
	"github.com/rushteam/revrec/pkg/metrics"
)

// 评论语料的行前缀，一条记录依次包含物品、用户、评分三行，其余行忽略。
const (
	prefixProduct = "product/productId: "
	prefixUser    = "review/userId: "
	prefixScore   = "review/score: "
)

// 跳过原因，同时用作 RecordsSkipped 指标的 reason 标签
const (
	SkipMissingField = "missing_field"
	SkipBadScore     = "bad_score"
)

var gzipMagic = []byte{0x1f, 0x8b}

// ReviewReader 解析评论语料文本，实现 Source。
//
// 输入是 gzip 时自动解压（按魔数识别）。物品行开始一条新记录，
// 评分行结束一条记录；缺字段或评分无法解析的记录跳过并计数，不中断读取。
type ReviewReader struct {
	r      *bufio.Reader
	closer io.Closer
	line   int

	product string
	user    string

	skipped map[string]int
	logger  zerolog.Logger
}

// NewReviewReader 包装 r，gzip 头无效时返回错误。
func NewReviewReader(r io.Reader) (*ReviewReader, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	rr := &ReviewReader{
		skipped: make(map[string]int),
		logger:  logging.Component("ingest.reader"),
	}

	head, err := br.Peek(len(gzipMagic))
	if err == nil && bytes.Equal(head, gzipMagic) {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, core.NewDomainError(core.ModuleIngest, core.ErrorCodeInvalidInput,
				fmt.Sprintf("ingest: invalid gzip stream: %v", err))
		}
		rr.closer = zr
		rr.r = bufio.NewReaderSize(zr, 64*1024)
		return rr, nil
	}

	rr.r = br
	return rr, nil
}

// WithLogger 替换日志。
func (rr *ReviewReader) WithLogger(l zerolog.Logger) *ReviewReader {
	rr.logger = l
	return rr
}

// Next 返回下一条完整记录，输入结束时返回 io.EOF。
func (rr *ReviewReader) Next() (core.Review, error) {
	for {
		raw, err := rr.r.ReadString('\n')
		if raw != "" {
			rr.line++
			if rev, ok := rr.consume(strings.TrimRight(raw, "\r\n")); ok {
				return rev, nil
			}
		}
		if errors.Is(err, io.EOF) {
			if rr.product != "" || rr.user != "" {
				rr.skip(SkipMissingField, "record truncated at end of input")
			}
			return core.Review{}, io.EOF
		}
		if err != nil {
			return core.Review{}, err
		}
	}
}

func (rr *ReviewReader) consume(line string) (core.Review, bool) {
	switch {
	case strings.HasPrefix(line, prefixProduct):
		if rr.product != "" || rr.user != "" {
			rr.skip(SkipMissingField, "record without score")
		}
		rr.product = strings.TrimSpace(line[len(prefixProduct):])
		rr.user = ""

	case strings.HasPrefix(line, prefixUser):
		rr.user = strings.TrimSpace(line[len(prefixUser):])

	case strings.HasPrefix(line, prefixScore):
		product, user := rr.product, rr.user
		rr.product, rr.user = "", ""

		if product == "" || user == "" {
			rr.skip(SkipMissingField, "score without product or user")
			return core.Review{}, false
		}
		score, err := strconv.ParseFloat(strings.TrimSpace(line[len(prefixScore):]), 64)
		if err != nil {
			rr.skip(SkipBadScore, err.Error())
			return core.Review{}, false
		}
		return core.Review{UserID: user, ItemID: product, Score: score}, true
	}
	return core.Review{}, false
}

func (rr *ReviewReader) skip(reason, detail string) {
	rr.product, rr.user = "", ""
	rr.skipped[reason]++
	metrics.RecordsSkipped.WithLabelValues(reason).Inc()
	rr.logger.Warn().
		Int("line", rr.line).
		Str("reason", reason).
		Msg(detail)
}

// Skipped 返回跳过的记录总数。
func (rr *ReviewReader) Skipped() int {
	n := 0
	for _, c := range rr.skipped {
		n += c
	}
	return n
}

// SkippedBy 按原因返回跳过数。
func (rr *ReviewReader) SkippedBy(reason string) int {
	return rr.skipped[reason]
}

// Close 释放 gzip 解压器，不关闭底层 reader。
func (rr *ReviewReader) Close() error {
	if rr.closer != nil {
		return rr.closer.Close()
	}
	return nil
}
