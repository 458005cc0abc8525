package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	require.NoError(t, InitMetrics(""))
	defer Close()

	Incr(ApiRequests)
	Incr(ApiRequests)
	Incr(ApiRequests)
	IncrLabel(ProductViews, "product", "42")
	IncrLabel(ProductViews, "product", "7")

	assert.Equal(t, float64(3), Sum(ApiRequests, time.Hour))
	assert.Equal(t, float64(1), SumLabel(ProductViews, "product", "42", time.Hour))
	assert.Equal(t, float64(0), Sum(ChatMessages, time.Hour))
}

func TestGauge(t *testing.T) {
	require.NoError(t, InitMetrics(""))
	defer Close()

	SetGauge(SystemMemUse, 512)
	SetGauge(SystemMemUse, 640)
	assert.Equal(t, int64(640), GetGauge(SystemMemUse))
	assert.Equal(t, int64(0), GetGauge("unknown"))
}

func TestClosedStorageIsNoop(t *testing.T) {
	require.NoError(t, Close())
	Incr(ApiRequests)
	assert.Equal(t, float64(0), Sum(ApiRequests, time.Hour))
}
