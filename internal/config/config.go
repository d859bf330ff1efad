package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the daemon configuration, sourced from environment variables.
type Config struct {
	DBPath     string
	LedgerPath string

	// Wear dump sources. eMMC is tried first; UFS is the fallback.
	EMMCLifetimePath string
	EMMCEOLPath      string
	UFSHealthPath    string

	// Per-uid I/O counter table.
	UIDIoStatsPath string

	PollInterval time.Duration
	WindowLength time.Duration

	// Acceptable wear degradation in percent per hour of uptime.
	MaxWearRate float64

	// Total bytes written in one window above which an overuse event fires.
	OveruseWriteBytes int64

	// Notification target; empty disables dispatch.
	ShoutrrrURL string
}

// Load returns the daemon configuration from environment variables.
func Load() Config {
	return Config{
		DBPath:            getEnv("DB_PATH", "storagemon.db"),
		LedgerPath:        getEnv("WEAR_LEDGER_PATH", "wear_history.json"),
		EMMCLifetimePath:  getEnv("EMMC_LIFETIME_PATH", "/sys/bus/mmc/devices/mmc0:0001/life_time"),
		EMMCEOLPath:       getEnv("EMMC_EOL_PATH", "/sys/bus/mmc/devices/mmc0:0001/pre_eol_info"),
		UFSHealthPath:     getEnv("UFS_HEALTH_PATH", "/sys/devices/platform/ufs/health"),
		UIDIoStatsPath:    getEnv("UID_IO_STATS_PATH", "/proc/uid_io/stats"),
		PollInterval:      getEnvDuration("POLL_INTERVAL", time.Minute),
		WindowLength:      getEnvDuration("WINDOW_LENGTH", time.Hour),
		MaxWearRate:       getEnvFloat("MAX_WEAR_RATE", 1.0),
		OveruseWriteBytes: getEnvInt64("OVERUSE_WRITE_BYTES", 10*1024*1024*1024),
		ShoutrrrURL:       getEnv("SHOUTRRR_URL", ""),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
