package xmsg

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MaxNameLength bounds event names and listener patterns.
const MaxNameLength = 256

// Options configures a Bus. Start from DefaultOptions and override fields.
type Options struct {
	// Queue and backpressure.
	MaxQueueSize          int        `yaml:"maxQueueSize" json:"maxQueueSize"`
	EnableBackpressure    bool       `yaml:"enableBackpressure" json:"enableBackpressure"`
	BackpressureThreshold float64    `yaml:"backpressureThreshold" json:"backpressureThreshold"`
	DropPolicy            DropPolicy `yaml:"dropPolicy" json:"dropPolicy"`

	// Scheduler.
	EnablePriorityQueue  bool          `yaml:"enablePriorityQueue" json:"enablePriorityQueue"`
	BatchSize            int           `yaml:"batchSize" json:"batchSize"`
	MinBatchSize         int           `yaml:"minBatchSize" json:"minBatchSize"`
	MaxProcessingTime    time.Duration `yaml:"maxProcessingTime" json:"maxProcessingTime"`
	QueueProcessingDelay time.Duration `yaml:"queueProcessingDelay" json:"queueProcessingDelay"`

	// Payload guard.
	MaxDataSize  int `yaml:"maxDataSize" json:"maxDataSize"`
	WarnDataSize int `yaml:"warnDataSize" json:"warnDataSize"`

	// Requests.
	MaxPendingRequests int           `yaml:"maxPendingRequests" json:"maxPendingRequests"`
	DefaultTimeout     time.Duration `yaml:"defaultTimeout" json:"defaultTimeout"`
	MaxTimeout         time.Duration `yaml:"maxTimeout" json:"maxTimeout"`

	// Registry.
	EnableDuplicateHandlerCheck bool `yaml:"enableDuplicateHandlerCheck" json:"enableDuplicateHandlerCheck"`
	PatternCacheSize            int  `yaml:"patternCacheSize" json:"patternCacheSize"`

	// Monitoring.
	EnableLogging   bool          `yaml:"enableLogging" json:"enableLogging"`
	ProductionMode  bool          `yaml:"productionMode" json:"productionMode"`
	StatsCacheTTL   time.Duration `yaml:"statsCacheTTL" json:"statsCacheTTL"`
	ObserverWorkers int           `yaml:"observerWorkers" json:"observerWorkers"`
	ObserverBuffer  int           `yaml:"observerBuffer" json:"observerBuffer"`
}

// DefaultOptions returns production-safe defaults.
func DefaultOptions() Options {
	return Options{
		MaxQueueSize:                10000,
		EnableBackpressure:          true,
		BackpressureThreshold:       0.8,
		DropPolicy:                  DropLowPriority,
		EnablePriorityQueue:         true,
		BatchSize:                   100,
		MinBatchSize:                1,
		MaxProcessingTime:           16 * time.Millisecond,
		QueueProcessingDelay:        time.Millisecond,
		MaxDataSize:                 1 << 20,
		WarnDataSize:                100 << 10,
		MaxPendingRequests:          1000,
		DefaultTimeout:              5 * time.Second,
		MaxTimeout:                  30 * time.Second,
		EnableDuplicateHandlerCheck: true,
		PatternCacheSize:            1000,
		EnableLogging:               true,
		ProductionMode:              false,
		StatsCacheTTL:               time.Second,
		ObserverWorkers:             2,
		ObserverBuffer:              1024,
	}
}

// Validate checks Options for consistency.
func (o Options) Validate() error {
	switch {
	case o.MaxQueueSize < 1:
		return fmt.Errorf("%w: maxQueueSize must be >= 1, got %d", ErrInvalidOptions, o.MaxQueueSize)
	case o.BackpressureThreshold <= 0 || o.BackpressureThreshold > 1:
		return fmt.Errorf("%w: backpressureThreshold must be in (0,1], got %v", ErrInvalidOptions, o.BackpressureThreshold)
	case o.DropPolicy != DropLowPriority && o.DropPolicy != DropNone:
		return fmt.Errorf("%w: unknown dropPolicy %q", ErrInvalidOptions, o.DropPolicy)
	case o.BatchSize < 1:
		return fmt.Errorf("%w: batchSize must be >= 1, got %d", ErrInvalidOptions, o.BatchSize)
	case o.MinBatchSize < 1 || o.MinBatchSize > o.BatchSize:
		return fmt.Errorf("%w: minBatchSize must be in [1,batchSize], got %d", ErrInvalidOptions, o.MinBatchSize)
	case o.MaxProcessingTime <= 0:
		return fmt.Errorf("%w: maxProcessingTime must be > 0, got %v", ErrInvalidOptions, o.MaxProcessingTime)
	case o.QueueProcessingDelay < 0:
		return fmt.Errorf("%w: queueProcessingDelay must be >= 0, got %v", ErrInvalidOptions, o.QueueProcessingDelay)
	case o.MaxDataSize < 1:
		return fmt.Errorf("%w: maxDataSize must be >= 1, got %d", ErrInvalidOptions, o.MaxDataSize)
	case o.WarnDataSize < 0:
		return fmt.Errorf("%w: warnDataSize must be >= 0, got %d", ErrInvalidOptions, o.WarnDataSize)
	case o.MaxPendingRequests < 1:
		return fmt.Errorf("%w: maxPendingRequests must be >= 1, got %d", ErrInvalidOptions, o.MaxPendingRequests)
	case o.DefaultTimeout <= 0 || o.MaxTimeout <= 0:
		return fmt.Errorf("%w: request timeouts must be > 0", ErrInvalidOptions)
	case o.PatternCacheSize < 1:
		return fmt.Errorf("%w: patternCacheSize must be >= 1, got %d", ErrInvalidOptions, o.PatternCacheSize)
	case o.StatsCacheTTL < 0:
		return fmt.Errorf("%w: statsCacheTTL must be >= 0, got %v", ErrInvalidOptions, o.StatsCacheTTL)
	}
	return nil
}

// OptionsFromMap overlays recognized keys of m onto DefaultOptions.
// Durations accept time.Duration, strings such as "10ms", or numbers meaning milliseconds.
func OptionsFromMap(m map[string]any) (Options, error) {
	o := DefaultOptions()

	getInt := func(k string, d int) int {
		switch v := m[k].(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		default:
			return d
		}
	}
	getBool := func(k string, d bool) bool {
		if v, ok := m[k].(bool); ok {
			return v
		}
		return d
	}
	getFloat := func(k string, d float64) float64 {
		switch v := m[k].(type) {
		case float64:
			return v
		case int:
			return float64(v)
		case int64:
			return float64(v)
		default:
			return d
		}
	}
	var durErr error
	getDur := func(k string, d time.Duration) time.Duration {
		switch v := m[k].(type) {
		case time.Duration:
			return v
		case string:
			p, err := time.ParseDuration(v)
			if err != nil {
				durErr = fmt.Errorf("%w: %s: %v", ErrInvalidOptions, k, err)
				return d
			}
			return p
		case int:
			return time.Duration(v) * time.Millisecond
		case int64:
			return time.Duration(v) * time.Millisecond
		case float64:
			return time.Duration(v * float64(time.Millisecond))
		}
		return d
	}

	o.MaxQueueSize = getInt("maxQueueSize", o.MaxQueueSize)
	o.EnableBackpressure = getBool("enableBackpressure", o.EnableBackpressure)
	o.BackpressureThreshold = getFloat("backpressureThreshold", o.BackpressureThreshold)
	if v, ok := m["dropPolicy"].(string); ok && v != "" {
		o.DropPolicy = DropPolicy(v)
	}
	o.EnablePriorityQueue = getBool("enablePriorityQueue", o.EnablePriorityQueue)
	o.BatchSize = getInt("batchSize", o.BatchSize)
	o.MinBatchSize = getInt("minBatchSize", o.MinBatchSize)
	o.MaxProcessingTime = getDur("maxProcessingTime", o.MaxProcessingTime)
	o.QueueProcessingDelay = getDur("queueProcessingDelay", o.QueueProcessingDelay)
	o.MaxDataSize = getInt("maxDataSize", o.MaxDataSize)
	o.WarnDataSize = getInt("warnDataSize", o.WarnDataSize)
	o.MaxPendingRequests = getInt("maxPendingRequests", o.MaxPendingRequests)
	o.DefaultTimeout = getDur("defaultTimeout", o.DefaultTimeout)
	o.MaxTimeout = getDur("maxTimeout", o.MaxTimeout)
	o.EnableDuplicateHandlerCheck = getBool("enableDuplicateHandlerCheck", o.EnableDuplicateHandlerCheck)
	o.PatternCacheSize = getInt("patternCacheSize", o.PatternCacheSize)
	o.EnableLogging = getBool("enableLogging", o.EnableLogging)
	o.ProductionMode = getBool("productionMode", o.ProductionMode)
	o.StatsCacheTTL = getDur("statsCacheTTL", o.StatsCacheTTL)
	o.ObserverWorkers = getInt("observerWorkers", o.ObserverWorkers)
	o.ObserverBuffer = getInt("observerBuffer", o.ObserverBuffer)

	if durErr != nil {
		return o, durErr
	}
	return o, o.Validate()
}

// LoadOptions reads Options from a .yaml, .yml or .json file.
func LoadOptions(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("read options file: %w", err)
	}

	var m map[string]any
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &m); err != nil {
			return Options{}, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &m); err != nil {
			return Options{}, fmt.Errorf("parse json: %w", err)
		}
	default:
		return Options{}, fmt.Errorf("unsupported options file extension: %s", ext)
	}
	return OptionsFromMap(m)
}
