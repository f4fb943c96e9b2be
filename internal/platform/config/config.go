package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// Policy holds the membership thresholds.
type Policy struct {
	Threshold float64
	MaxAge    time.Duration
}

// Epoch controls rotation cadence and key derivation.
type Epoch struct {
	Interval  time.Duration
	KDF       string
	PSKLength int
}

// Status configures the snapshot sinks.
type Status struct {
	File             string
	Timeout          time.Duration
	FailureThreshold int
	Cooldown         time.Duration
}

// RedisConfig configures the optional Redis status sink. An empty URL disables it.
type RedisConfig struct {
	URL          string
	KeyPrefix    string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Config is the full controller configuration.
type Config struct {
	Server   Server
	Policy   Policy
	Epoch    Epoch
	Status   Status
	Redis    RedisConfig
	NodeIDs  []string
	LogLevel string
}

const (
	defaultAddr          = ":8000"
	defaultThreshold     = 0.70
	defaultMaxAgeSeconds = 120
	defaultEpochSeconds  = 60
	defaultNodeIDs       = "node-a,node-b,node-c"
	defaultStatusFile    = "/artifacts/status.json"
	defaultKDF           = "hmac"
	defaultPSKLength     = 32
	minPSKLength         = 16
	maxPSKLength         = 64
)

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) (Config, error) {
	env := envReader{lookup: lookup}

	cfg := Config{
		Server: Server{
			Addr:            env.string("MESHGATE_ADDR", defaultAddr),
			ShutdownTimeout: env.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Policy: Policy{
			Threshold: env.float("THRESHOLD", defaultThreshold),
			MaxAge:    env.seconds("MAX_BENCHMARK_AGE", defaultMaxAgeSeconds),
		},
		Epoch: Epoch{
			Interval:  env.seconds("EPOCH_SECONDS", defaultEpochSeconds),
			KDF:       strings.ToLower(env.string("PSK_KDF", defaultKDF)),
			PSKLength: env.int("PSK_LENGTH", defaultPSKLength),
		},
		Status: Status{
			File:             env.string("STATUS_FILE", defaultStatusFile),
			Timeout:          env.duration("STATUS_TIMEOUT", 5*time.Second),
			FailureThreshold: env.int("SINK_FAILURE_THRESHOLD", 5),
			Cooldown:         env.duration("SINK_COOLDOWN", time.Minute),
		},
		Redis: RedisConfig{
			URL:          env.string("REDIS_URL", ""),
			KeyPrefix:    env.string("REDIS_KEY_PREFIX", "meshgate:"),
			PoolSize:     env.int("REDIS_POOL_SIZE", 10),
			MinIdleConns: env.int("REDIS_MIN_IDLE_CONNS", 1),
			DialTimeout:  env.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  env.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: env.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		NodeIDs:  splitList(env.string("NODE_IDS", defaultNodeIDs)),
		LogLevel: env.string("LOG_LEVEL", "INFO"),
	}
	if env.err != nil {
		return Config{}, env.err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field invariants.
func (c Config) Validate() error {
	if math.IsNaN(c.Policy.Threshold) || math.IsInf(c.Policy.Threshold, 0) {
		return fmt.Errorf("THRESHOLD must be a finite number")
	}
	if c.Policy.MaxAge <= 0 {
		return fmt.Errorf("MAX_BENCHMARK_AGE must be positive")
	}
	if c.Epoch.Interval <= 0 {
		return fmt.Errorf("EPOCH_SECONDS must be positive")
	}
	if c.Epoch.KDF != "hmac" && c.Epoch.KDF != "hkdf" {
		return fmt.Errorf("PSK_KDF must be hmac or hkdf, got %q", c.Epoch.KDF)
	}
	if c.Epoch.PSKLength < minPSKLength || c.Epoch.PSKLength > maxPSKLength {
		return fmt.Errorf("PSK_LENGTH must be between %d and %d", minPSKLength, maxPSKLength)
	}
	if c.Status.Timeout <= 0 {
		return fmt.Errorf("STATUS_TIMEOUT must be positive")
	}
	if len(c.NodeIDs) == 0 {
		return fmt.Errorf("NODE_IDS must name at least one node")
	}
	seen := make(map[string]struct{}, len(c.NodeIDs))
	for _, id := range c.NodeIDs {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("NODE_IDS contains duplicate %q", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for part := range strings.SplitSeq(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// envReader keeps the first parse error so FromEnv can report it once.
type envReader struct {
	lookup func(string) (string, bool)
	err    error
}

func (e *envReader) raw(key string) (string, bool) {
	v, ok := e.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (e *envReader) fail(key, value string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("invalid %s=%q: %w", key, value, err)
	}
}

func (e *envReader) string(key, def string) string {
	if v, ok := e.lookup(key); ok {
		return strings.TrimSpace(v)
	}
	return def
}

func (e *envReader) float(key string, def float64) float64 {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return f
}

func (e *envReader) int(key string, def int) int {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return n
}

// seconds reads an integer number of seconds, matching the controller's historical env vars.
func (e *envReader) seconds(key string, def int) time.Duration {
	return time.Duration(e.int(key, def)) * time.Second
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return d
}
