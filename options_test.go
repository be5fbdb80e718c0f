package xmsg

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptions_Valid(t *testing.T) {
	o := DefaultOptions()
	require.NoError(t, o.Validate())
	assert.Equal(t, 10000, o.MaxQueueSize)
	assert.Equal(t, 0.8, o.BackpressureThreshold)
	assert.Equal(t, 1<<20, o.MaxDataSize)
	assert.Equal(t, 30*time.Second, o.MaxTimeout)
}

func TestOptions_Validate(t *testing.T) {
	cases := map[string]func(o *Options){
		"queue size":     func(o *Options) { o.MaxQueueSize = 0 },
		"threshold":      func(o *Options) { o.BackpressureThreshold = 1.5 },
		"drop policy":    func(o *Options) { o.DropPolicy = "oldest" },
		"batch size":     func(o *Options) { o.BatchSize = 0 },
		"min batch":      func(o *Options) { o.MinBatchSize = o.BatchSize + 1 },
		"tick budget":    func(o *Options) { o.MaxProcessingTime = 0 },
		"delay":          func(o *Options) { o.QueueProcessingDelay = -time.Millisecond },
		"max data":       func(o *Options) { o.MaxDataSize = 0 },
		"max pending":    func(o *Options) { o.MaxPendingRequests = 0 },
		"timeouts":       func(o *Options) { o.MaxTimeout = 0 },
		"pattern cache":  func(o *Options) { o.PatternCacheSize = 0 },
		"stats cache":    func(o *Options) { o.StatsCacheTTL = -time.Second },
		"warn data size": func(o *Options) { o.WarnDataSize = -1 },
	}
	for name, edit := range cases {
		t.Run(name, func(t *testing.T) {
			o := DefaultOptions()
			edit(&o)
			assert.ErrorIs(t, o.Validate(), ErrInvalidOptions)
		})
	}
}

func TestOptionsFromMap(t *testing.T) {
	o, err := OptionsFromMap(map[string]any{
		"maxQueueSize":         500,
		"enablePriorityQueue":  false,
		"dropPolicy":           "none",
		"queueProcessingDelay": "20ms",
		"defaultTimeout":       250,
		"maxTimeout":           float64(1500),
		"unknownKey":           "ignored",
	})
	require.NoError(t, err)

	assert.Equal(t, 500, o.MaxQueueSize)
	assert.False(t, o.EnablePriorityQueue)
	assert.Equal(t, DropNone, o.DropPolicy)
	assert.Equal(t, 20*time.Millisecond, o.QueueProcessingDelay)
	assert.Equal(t, 250*time.Millisecond, o.DefaultTimeout)
	assert.Equal(t, 1500*time.Millisecond, o.MaxTimeout)
	assert.Equal(t, DefaultOptions().BatchSize, o.BatchSize)
}

func TestOptionsFromMap_Errors(t *testing.T) {
	_, err := OptionsFromMap(map[string]any{"maxTimeout": "soon"})
	assert.ErrorIs(t, err, ErrInvalidOptions)

	_, err = OptionsFromMap(map[string]any{"batchSize": 0})
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

func TestLoadOptions(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "bus.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
maxQueueSize: 200
enableBackpressure: false
backpressureThreshold: 0.5
maxProcessingTime: 8ms
productionMode: true
`), 0o600))

	o, err := LoadOptions(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, 200, o.MaxQueueSize)
	assert.False(t, o.EnableBackpressure)
	assert.Equal(t, 0.5, o.BackpressureThreshold)
	assert.Equal(t, 8*time.Millisecond, o.MaxProcessingTime)
	assert.True(t, o.ProductionMode)

	jsonPath := filepath.Join(dir, "bus.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"maxPendingRequests": 3, "maxTimeout": 2000}`), 0o600))

	o, err = LoadOptions(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, 3, o.MaxPendingRequests)
	assert.Equal(t, 2*time.Second, o.MaxTimeout)

	_, err = LoadOptions(filepath.Join(dir, "bus.toml"))
	assert.Error(t, err)

	txt := filepath.Join(dir, "bus.txt")
	require.NoError(t, os.WriteFile(txt, []byte("x"), 0o600))
	_, err = LoadOptions(txt)
	assert.ErrorContains(t, err, "unsupported")
}

func TestParsePriority(t *testing.T) {
	for _, p := range []Priority{PriorityHigh, PriorityNormal, PriorityLow} {
		got, err := ParsePriority(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	_, err := ParsePriority("urgent")
	assert.Error(t, err)
}
