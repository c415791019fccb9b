package processor

import (
	"sync/atomic"
	"time"
)

// JobMetrics tracks job outcomes across all consumers of a ProcessorService.
type JobMetrics struct {
	processed  int64
	failed     int64
	durationNs int64
	startedNs  int64
}

type JobStats struct {
	Processed     int64
	Failed        int64
	RatePerSecond float64
	AvgDuration   time.Duration
	Uptime        time.Duration
}

func NewJobMetrics() *JobMetrics {
	return &JobMetrics{
		startedNs: time.Now().UnixNano(),
	}
}

func (m *JobMetrics) RecordSuccess(duration time.Duration) {
	atomic.AddInt64(&m.processed, 1)
	atomic.AddInt64(&m.durationNs, int64(duration))
}

func (m *JobMetrics) RecordFailure() {
	atomic.AddInt64(&m.failed, 1)
}

func (m *JobMetrics) Snapshot() JobStats {
	processed := atomic.LoadInt64(&m.processed)
	failed := atomic.LoadInt64(&m.failed)
	durationNs := atomic.LoadInt64(&m.durationNs)
	startedNs := atomic.LoadInt64(&m.startedNs)

	uptime := time.Since(time.Unix(0, startedNs))

	rate := 0.0
	if uptime > 0 {
		rate = float64(processed) / uptime.Seconds()
	}

	avg := time.Duration(0)
	if processed > 0 {
		avg = time.Duration(durationNs / processed)
	}

	return JobStats{
		Processed:     processed,
		Failed:        failed,
		RatePerSecond: rate,
		AvgDuration:   avg,
		Uptime:        uptime,
	}
}

func (m *JobMetrics) Reset() {
	atomic.StoreInt64(&m.processed, 0)
	atomic.StoreInt64(&m.failed, 0)
	atomic.StoreInt64(&m.durationNs, 0)
	atomic.StoreInt64(&m.startedNs, time.Now().UnixNano())
}
