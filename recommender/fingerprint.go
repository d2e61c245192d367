package recommender

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/rushteam/revrec/ingest"
	"github.com/rushteam/revrec/pipeline"
)

// fingerprint 对评分内容与影响结果的引擎参数求 64 位摘要，作为缓存 key 的一部分。
// 评分或参数不同的实例不会共享缓存条目；相同语料、相同参数重建后仍能命中。
func fingerprint(ds *ingest.Dataset, o options, p *pipeline.Pipeline) string {
	d := xxhash.New()
	var buf [8]byte

	writeStr := func(s string) {
		_, _ = d.WriteString(s)
		_, _ = d.Write([]byte{0})
	}
	writeFloat := func(f float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
		_, _ = d.Write(buf[:])
	}

	writeStr(o.metric)
	writeFloat(o.threshold)
	writeStr(strconv.Itoa(o.maxNeighbors))
	writeStr(p.Name)
	for _, n := range p.Nodes {
		writeStr(n.Name())
	}

	for _, u := range ds.Ratings.Users() {
		uid, _ := ds.Users.Reverse(u)
		writeStr(uid)
		for _, e := range ds.Ratings.Row(u) {
			iid, _ := ds.Items.Reverse(e.Index)
			writeStr(iid)
			writeFloat(e.Score)
		}
		_, _ = d.Write([]byte{1})
	}
	return strconv.FormatUint(d.Sum64(), 16)
}
