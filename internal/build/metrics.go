package build

import (
	"sort"
	"sync"
	"time"
)

// BuildMetrics tracks task runs.
type BuildMetrics struct {
	TotalBuilds      int64
	SuccessfulBuilds int64
	FailedBuilds     int64
	AverageDuration  time.Duration
	TotalDuration    time.Duration
	mutex            sync.RWMutex
	tasks            map[string]*TaskStats
}

// TaskStats is the run history of one task.
type TaskStats struct {
	Name         string        `json:"name"`
	Runs         int64         `json:"runs"`
	Failures     int64         `json:"failures"`
	LastDuration time.Duration `json:"last_duration"`
	LastRun      time.Time     `json:"last_run"`
	LastError    string        `json:"last_error,omitempty"`
}

// MetricsSnapshot is a copy of the metrics safe to hand out.
type MetricsSnapshot struct {
	TotalBuilds      int64         `json:"total_builds"`
	SuccessfulBuilds int64         `json:"successful_builds"`
	FailedBuilds     int64         `json:"failed_builds"`
	AverageDuration  time.Duration `json:"average_duration"`
	TotalDuration    time.Duration `json:"total_duration"`
	Tasks            []TaskStats   `json:"tasks"`
}

// NewBuildMetrics creates a new build metrics tracker
func NewBuildMetrics() *BuildMetrics {
	return &BuildMetrics{tasks: make(map[string]*TaskStats)}
}

// RecordRun records the outcome of one task run.
func (bm *BuildMetrics) RecordRun(task string, d time.Duration, err error) {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	bm.TotalBuilds++
	bm.TotalDuration += d
	if err != nil {
		bm.FailedBuilds++
	} else {
		bm.SuccessfulBuilds++
	}
	bm.AverageDuration = bm.TotalDuration / time.Duration(bm.TotalBuilds)

	if bm.tasks == nil {
		bm.tasks = make(map[string]*TaskStats)
	}
	stats, ok := bm.tasks[task]
	if !ok {
		stats = &TaskStats{Name: task}
		bm.tasks[task] = stats
	}
	stats.Runs++
	stats.LastDuration = d
	stats.LastRun = time.Now()
	stats.LastError = ""
	if err != nil {
		stats.Failures++
		stats.LastError = err.Error()
	}
}

// GetSnapshot returns a snapshot of current metrics
func (bm *BuildMetrics) GetSnapshot() MetricsSnapshot {
	bm.mutex.RLock()
	defer bm.mutex.RUnlock()

	snap := MetricsSnapshot{
		TotalBuilds:      bm.TotalBuilds,
		SuccessfulBuilds: bm.SuccessfulBuilds,
		FailedBuilds:     bm.FailedBuilds,
		AverageDuration:  bm.AverageDuration,
		TotalDuration:    bm.TotalDuration,
		Tasks:            make([]TaskStats, 0, len(bm.tasks)),
	}
	for _, s := range bm.tasks {
		snap.Tasks = append(snap.Tasks, *s)
	}
	sort.Slice(snap.Tasks, func(i, j int) bool { return snap.Tasks[i].Name < snap.Tasks[j].Name })
	return snap
}

// Reset resets all metrics
func (bm *BuildMetrics) Reset() {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	bm.TotalBuilds = 0
	bm.SuccessfulBuilds = 0
	bm.FailedBuilds = 0
	bm.AverageDuration = 0
	bm.TotalDuration = 0
	bm.tasks = make(map[string]*TaskStats)
}

// GetSuccessRate returns the success rate as a percentage
func (bm *BuildMetrics) GetSuccessRate() float64 {
	bm.mutex.RLock()
	defer bm.mutex.RUnlock()

	if bm.TotalBuilds == 0 {
		return 0.0
	}

	return float64(bm.SuccessfulBuilds) / float64(bm.TotalBuilds) * 100.0
}
