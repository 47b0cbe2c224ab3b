package pipeline

import (
	"sync/atomic"
	"time"
)

// Stats 预测统计
type Stats struct {
	TotalProcessed int64     `json:"total_processed"`
	Succeeded      int64     `json:"succeeded"`
	Rejected       int64     `json:"rejected"`
	Unavailable    int64     `json:"unavailable"`
	Failed         int64     `json:"failed"`
	Pass           int64     `json:"pass"`
	Fail           int64     `json:"fail"`
	CacheHits      int64     `json:"cache_hits"`
	CacheEntries   int       `json:"cache_entries"`
	Timestamp      time.Time `json:"timestamp"`
}

type counters struct {
	total       atomic.Int64
	succeeded   atomic.Int64
	rejected    atomic.Int64
	unavailable atomic.Int64
	failed      atomic.Int64
	pass        atomic.Int64
	fail        atomic.Int64
	cacheHits   atomic.Int64
}

// Stats 获取统计快照
func (p *Pipeline) Stats() Stats {
	stats := Stats{
		TotalProcessed: p.stats.total.Load(),
		Succeeded:      p.stats.succeeded.Load(),
		Rejected:       p.stats.rejected.Load(),
		Unavailable:    p.stats.unavailable.Load(),
		Failed:         p.stats.failed.Load(),
		Pass:           p.stats.pass.Load(),
		Fail:           p.stats.fail.Load(),
		CacheHits:      p.stats.cacheHits.Load(),
		Timestamp:      time.Now(),
	}
	if p.cache != nil {
		stats.CacheEntries = p.cache.Len()
	}
	return stats
}
