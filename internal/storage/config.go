package storage

import (
	"fmt"
	"time"
)

// Config holds the SQLite tuning knobs.
type Config struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	BusyTimeout     time.Duration
	CacheSizeKB     int
}

func DefaultConfig() *Config {
	return &Config{
		MaxOpenConns:    5,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		BusyTimeout:     5 * time.Second,
		CacheSizeKB:     64000,
	}
}

// pragmas returns the PRAGMA statements applied at open. WAL lets the read
// pool run concurrently with the single writer; foreign keys make message
// deletes cascade.
func (c *Config) pragmas() []string {
	return []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = memory",
		fmt.Sprintf("PRAGMA busy_timeout = %d", c.BusyTimeout.Milliseconds()),
		"PRAGMA foreign_keys = ON",
		fmt.Sprintf("PRAGMA cache_size = -%d", c.CacheSizeKB),
	}
}
