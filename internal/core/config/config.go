// Package config reads service settings from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mohammed-shakir/digipin-courier/internal/digipin"
)

type HitEventsCfg struct {
	Enabled   bool
	Brokers   []string
	Topic     string
	QueueSize int
	// Consume feeds hot cell scores from the topic instead of local lookups.
	Consume      bool
	GroupID      string
	OffsetOldest bool
}

type Config struct {
	Addr           string
	LogLevel       string
	LogConsole     bool
	LogSampleN     int
	RedisAddr      string
	CacheOpTimeout time.Duration
	QuoteTTL       time.Duration
	QuoteLRUSize   int
	HotLevel       int
	HotHalfLife    time.Duration
	HotThreshold   float64
	HotLogSample   float64
	H3Res          int
	TariffFile     string
	MetricsEnabled bool
	HitEvents      HitEventsCfg
}

func FromEnv() Config {
	hotLevel := getint("HOT_LEVEL", 6)
	if hotLevel < 1 || hotLevel > digipin.Levels {
		hotLevel = 6
	}
	h3Res := getint("H3_RES", 9)
	if h3Res < 0 || h3Res > 15 {
		h3Res = 9
	}

	return Config{
		Addr:           getenv("ADDR", ":8080"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogConsole:     getbool("LOG_CONSOLE", false),
		LogSampleN:     getint("LOG_SAMPLE_N", 0),
		RedisAddr:      strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		CacheOpTimeout: getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),
		QuoteTTL:       getduration("QUOTE_TTL", 15*time.Minute),
		QuoteLRUSize:   getint("QUOTE_LRU_SIZE", 1024),
		HotLevel:       hotLevel,
		HotHalfLife:    getduration("HOT_HALF_LIFE", 10*time.Minute),
		HotThreshold:   getfloat("HOT_THRESHOLD", 0),
		HotLogSample:   getfloat("LOG_HOTNESS_SAMPLE", 0.01),
		H3Res:          h3Res,
		TariffFile:     strings.TrimSpace(os.Getenv("TARIFF_FILE")),
		MetricsEnabled: getbool("METRICS_ENABLED", true),
		HitEvents: HitEventsCfg{
			Enabled:      getbool("HIT_EVENTS_ENABLED", false),
			Brokers:      splitCSV(getenv("KAFKA_BROKERS", "localhost:9092")),
			Topic:        getenv("HIT_EVENTS_TOPIC", "digipin-lookups"),
			QueueSize:    getint("HIT_EVENTS_QUEUE", 1024),
			Consume:      getbool("HIT_EVENTS_CONSUME", false),
			GroupID:      getenv("KAFKA_GROUP_ID", defaultGroupID()),
			OffsetOldest: getbool("KAFKA_OFFSET_OLDEST", false),
		},
	}
}

// each replica needs its own group to see every lookup event
func defaultGroupID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "digipin-hotness"
	}
	return "digipin-hotness-" + host
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if x := strings.TrimSpace(p); x != "" {
			out = append(out, x)
		}
	}
	return out
}
