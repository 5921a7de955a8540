// Package config loads the diagnostic-logging core's own configuration:
// whether persistence is enabled, the storage address range, severity
// threshold, and RAM ring capacity. JSON-backed singleton, loaded once,
// falling back to documented defaults when no config file is present.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/c2h5oh/datasize"
)

// Config holds every tunable of the errlog core.
type Config struct {
	Ring struct {
		// Capacity is the RAM ring's fixed record count when
		// persistence is disabled (spec default: 64 records).
		Capacity uint64 `json:"capacity"`
	} `json:"ring"`

	Persistence struct {
		Enabled bool `json:"enabled"`
		// BlockSize is the fixed on-storage block size (spec: 512B).
		BlockSize datasize.ByteSize `json:"block_size"`
		// AddrStart/AddrEnd bound the block-address ring on storage.
		AddrStart uint16 `json:"addr_start"`
		AddrEnd   uint16 `json:"addr_end"`
	} `json:"persistence"`

	Reporter struct {
		// LogLevel is the default severity threshold.
		LogLevel uint8 `json:"log_level"`
		// ConsoleEcho enables echoing each accepted report as a line.
		ConsoleEcho bool `json:"console_echo"`
	} `json:"reporter"`

	Decoder struct {
		// TableCapacity is the fixed number of decoder slots.
		TableCapacity int `json:"table_capacity"`
	} `json:"decoder"`
}

var (
	instance *Config
	once     sync.Once
	path     = "errlog.json"
)

// Get returns the process-wide singleton configuration, loading it (or
// writing defaults) on first call.
func Get() *Config {
	once.Do(func() {
		instance = load()
	})
	return instance
}

// Reset clears the singleton; test-only, mirrors the teacher's own
// resetBlockManager-style singleton reset helper.
func Reset() {
	instance = nil
	once = sync.Once{}
}

func load() *Config {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		saveToFile(cfg, path)
		return cfg
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("errlog: failed to read config, using defaults: %v\n", err)
		return Default()
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		fmt.Printf("errlog: failed to parse config, using defaults: %v\n", err)
		return Default()
	}
	return &cfg
}

// Default returns the spec-mandated defaults: 64-record RAM ring,
// persistence disabled, log level Warning, address range [0,64), a
// 512-byte block, 4 decoder slots.
func Default() *Config {
	cfg := &Config{}
	cfg.Ring.Capacity = 64
	cfg.Persistence.Enabled = false
	cfg.Persistence.BlockSize = 512 * datasize.B
	cfg.Persistence.AddrStart = 0
	cfg.Persistence.AddrEnd = 64
	cfg.Reporter.LogLevel = 60 // Warning
	cfg.Reporter.ConsoleEcho = true
	cfg.Decoder.TableCapacity = 4
	return cfg
}

func saveToFile(cfg *Config, p string) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(p, data, 0644)
}
