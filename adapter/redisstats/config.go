package redisstats

import (
	"fmt"
	"os"
	"time"
)

// Config for the Redis health snapshot reporter.
type Config struct {
	// Connection
	Addr     string
	Username string
	Password string
	DB       int

	// Snapshot key and lifetime. The hash expires after TTL so a dead process
	// disappears from dashboards on its own.
	Key      string
	Interval time.Duration
	TTL      time.Duration
}

// Defaults returns a Config reporting every 10s under xmsg:stats:<host>-<pid>.
func Defaults() Config {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "xmsg"
	}
	return Config{
		Addr:     "127.0.0.1:6379",
		Key:      fmt.Sprintf("xmsg:stats:%s-%d", hostname, os.Getpid()),
		Interval: 10 * time.Second,
		TTL:      30 * time.Second,
	}
}

// Validate checks Config for consistency.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("config: addr required")
	}
	if c.Key == "" {
		return fmt.Errorf("config: key required")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("config: interval must be > 0, got %v", c.Interval)
	}
	if c.TTL < c.Interval {
		return fmt.Errorf("config: ttl must be >= interval, got %v < %v", c.TTL, c.Interval)
	}
	return nil
}

// ConfigFromMap overlays recognized keys onto Defaults.
func ConfigFromMap(m map[string]any) Config {
	c := Defaults()
	if v, ok := m["addr"].(string); ok && v != "" {
		c.Addr = v
	}
	if v, ok := m["username"].(string); ok {
		c.Username = v
	}
	if v, ok := m["password"].(string); ok {
		c.Password = v
	}
	if v, ok := m["db"].(int); ok {
		c.DB = v
	}
	if v, ok := m["key"].(string); ok && v != "" {
		c.Key = v
	}
	if v, ok := m["interval"].(time.Duration); ok && v > 0 {
		c.Interval = v
	}
	if v, ok := m["ttl"].(time.Duration); ok && v > 0 {
		c.TTL = v
	}
	return c
}
