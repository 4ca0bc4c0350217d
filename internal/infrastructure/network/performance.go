package network

import (
	"NSSaDS/fileshare/internal/domain"
	"sync"
	"time"
)

type PerformanceMonitor struct {
	mu         sync.RWMutex
	startTime  time.Time
	filename   string
	totalBytes int64
	percentage float64
}

func NewPerformanceMonitor(filename string, totalBytes int64) *PerformanceMonitor {
	return &PerformanceMonitor{
		startTime:  time.Now(),
		filename:   filename,
		totalBytes: totalBytes,
	}
}

// Track records every progress report and forwards it to next.
func (pm *PerformanceMonitor) Track(next domain.ProgressFunc) domain.ProgressFunc {
	return func(percent float64) {
		pm.mu.Lock()
		if percent > pm.percentage {
			pm.percentage = percent
		}
		pm.mu.Unlock()

		if next != nil {
			next(percent)
		}
	}
}

func (pm *PerformanceMonitor) GetProgress() *domain.TransferProgress {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	transferred := int64(pm.percentage / 100 * float64(pm.totalBytes))
	if pm.percentage >= 100 {
		transferred = pm.totalBytes
	}

	var bitrate float64
	if elapsed := time.Since(pm.startTime).Seconds(); elapsed > 0 {
		bitrate = float64(transferred) / elapsed / 1024 / 1024
	}

	return &domain.TransferProgress{
		FileName:    pm.filename,
		TotalBytes:  pm.totalBytes,
		Transferred: transferred,
		StartTime:   pm.startTime,
		Bitrate:     bitrate,
		Percentage:  pm.percentage,
	}
}

// Throttle forwards a report only when it crosses into a new whole percent,
// plus the final 100. A chunk-per-event stream would flood observers on big
// files.
func Throttle(next domain.ProgressFunc) domain.ProgressFunc {
	last := -1
	return func(percent float64) {
		step := int(percent)
		if step <= last {
			return
		}
		last = step
		next(percent)
	}
}
