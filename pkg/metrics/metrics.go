package metrics

import (
	"errors"
	"path"
	"sync"
	"time"

	"github.com/nakabonne/tstorage"
	"go.uber.org/zap"
)

// Metric names shared by the web layer and background jobs
const (
	ApiRequests      = "api_requests"
	ApiErrors        = "api_errors"
	ProductViews     = "product_views"
	ListingGenerated = "listing_generated"
	ListingFallback  = "listing_fallback"
	ChatMessages     = "chat_messages"
	SystemCpuUse     = "system_cpuuse"
	SystemMemUse     = "system_memuse"
	ProcessCpuUse    = "artisanhub_cpuuse"
	ProcessMemUse    = "artisanhub_memuse"
)

var (
	mu      sync.RWMutex
	storage tstorage.Storage
	gauges  sync.Map
)

// InitMetrics opens the time series storage under workdir/data/metrics.
// An empty workdir keeps everything in memory.
func InitMetrics(workdir string) error {
	mu.Lock()
	defer mu.Unlock()
	if storage != nil {
		_ = storage.Close()
	}
	opts := []tstorage.Option{
		tstorage.WithTimestampPrecision(tstorage.Seconds),
		tstorage.WithPartitionDuration(time.Hour),
		tstorage.WithRetention(14 * 24 * time.Hour),
	}
	if workdir != "" {
		opts = append(opts, tstorage.WithDataPath(path.Join(workdir, "data", "metrics")))
	}
	s, err := tstorage.NewStorage(opts...)
	if err != nil {
		return err
	}
	storage = s
	return nil
}

func insert(name string, value float64, labels []tstorage.Label) {
	mu.RLock()
	defer mu.RUnlock()
	if storage == nil {
		return
	}
	err := storage.InsertRows([]tstorage.Row{{
		Metric:    name,
		Labels:    labels,
		DataPoint: tstorage.DataPoint{Timestamp: time.Now().Unix(), Value: value},
	}})
	if err != nil {
		zap.L().Warn("metrics insert failed", zap.String("metric", name), zap.Error(err))
	}
}

// SetGauge records the current value of a gauge
func SetGauge(name string, value int64) {
	gauges.Store(name, value)
	insert(name, float64(value), nil)
}

// GetGauge returns the last value set for a gauge
func GetGauge(name string) int64 {
	if v, ok := gauges.Load(name); ok {
		return v.(int64)
	}
	return 0
}

// Incr adds one to a counter series
func Incr(name string) {
	insert(name, 1, nil)
}

// IncrLabel adds one to a counter series tagged with a single label
func IncrLabel(name, label, value string) {
	insert(name, 1, []tstorage.Label{{Name: label, Value: value}})
}

// Sum totals a counter series over the last window
func Sum(name string, window time.Duration) float64 {
	return SumLabel(name, "", "", window)
}

// SumLabel totals a labelled counter series over the last window
func SumLabel(name, label, value string, window time.Duration) float64 {
	mu.RLock()
	defer mu.RUnlock()
	if storage == nil {
		return 0
	}
	var labels []tstorage.Label
	if label != "" {
		labels = []tstorage.Label{{Name: label, Value: value}}
	}
	end := time.Now().Unix() + 1
	points, err := storage.Select(name, labels, end-int64(window.Seconds()), end)
	if err != nil {
		if !errors.Is(err, tstorage.ErrNoDataPoints) {
			zap.L().Warn("metrics select failed", zap.String("metric", name), zap.Error(err))
		}
		return 0
	}
	var total float64
	for _, p := range points {
		total += p.Value
	}
	return total
}

func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if storage == nil {
		return nil
	}
	err := storage.Close()
	storage = nil
	return err
}
