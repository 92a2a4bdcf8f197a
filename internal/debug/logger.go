// Package debug streams request logs, snapshot swaps and scrape results to
// the live dashboard over a websocket.
package debug

import (
	"log"
	"runtime"
	"sync/atomic"
	"time"
)

var enabled atomic.Bool

// Enable switches dashboard streaming on or off.
func Enable(on bool) {
	if on && !enabled.Load() {
		log.Println("🐛 [DEBUG] Dashboard enabled")
	}
	enabled.Store(on)
}

func IsEnabled() bool {
	return enabled.Load()
}

func LogInfo(message string, metadata map[string]interface{}) {
	if !IsEnabled() {
		return
	}
	SendLog("backend", "info", message, metadata)
}

func LogWarn(message string, metadata map[string]interface{}) {
	if !IsEnabled() {
		return
	}
	SendLog("backend", "warn", message, metadata)
}

func LogError(message string, metadata map[string]interface{}) {
	if !IsEnabled() {
		return
	}
	SendLog("backend", "error", message, metadata)
}

// UpdateSnapshot publishes the snapshot that was just swapped in.
func UpdateSnapshot(status SnapshotStatus) {
	if !IsEnabled() {
		return
	}
	SendSnapshotStatus(status)
}

// UpdateScrape publishes the outcome of a scrape.
func UpdateScrape(status ScrapeStatus) {
	if !IsEnabled() {
		return
	}
	SendScrapeStatus(status)
}

// PeriodicMetrics sends runtime figures every interval until stop closes.
func PeriodicMetrics(interval time.Duration, requests func() int64, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if !IsEnabled() {
				continue
			}
			var mem runtime.MemStats
			runtime.ReadMemStats(&mem)
			metrics := []Metric{
				{Name: "Goroutines", Value: runtime.NumGoroutine()},
				{Name: "Heap", Value: mem.HeapAlloc / (1 << 20), Unit: "MB"},
			}
			if requests != nil {
				metrics = append(metrics, Metric{Name: "Requests", Value: requests()})
			}
			SendMetrics(metrics)
		case <-stop:
			return
		}
	}
}
