package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the environment-driven configuration surface of the router.
// The tenant policy table itself lives in a separate YAML file (TenantsPath)
// owned by the tenant registry.
type Config struct {
	RouterName    string
	RouterVersion string
	Port          string

	// RequestTimeout bounds the whole client-facing request; UpstreamTimeout
	// bounds a single upstream call. The two are independent budgets.
	RequestTimeout  time.Duration
	UpstreamTimeout time.Duration

	// TenancyEnable requires an X-Tenant-Id header on every request. When
	// false, the "default" tenant policy is used unconditionally.
	TenancyEnable bool
	TenantsPath   string

	CORSEnable       bool
	CORSAllowOrigins []string

	MetricsEnable bool

	CacheEnable bool
	CacheTTL    time.Duration
	CacheURL    string
	// CacheTLSVerify controls certificate verification for rediss:// cache
	// URLs. Disabling it is for non-production use only.
	CacheTLSVerify bool

	MaxBodyBytes int64
}

// Load reads configuration from the environment, loading a .env file first
// if one is present.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		RouterName:       getEnv("ROUTER_NAME", "CogNeo Edge Router"),
		RouterVersion:    getEnv("ROUTER_VERSION", "0.1.0"),
		Port:             getEnv("PORT", "8080"),
		RequestTimeout:   getDuration("REQUEST_TIMEOUT", 30*time.Second),
		UpstreamTimeout:  getDuration("UPSTREAM_TIMEOUT", 30*time.Second),
		TenancyEnable:    getBool("TENANCY_ENABLE", false),
		TenantsPath:      getEnv("TENANTS_CONFIG", "tenants.yaml"),
		CORSEnable:       getBool("CORS_ENABLE", true),
		CORSAllowOrigins: splitOrigins(getEnv("CORS_ALLOW_ORIGINS", "*")),
		MetricsEnable:    getBool("METRICS_ENABLE", true),
		CacheEnable:      getBool("CACHE_ENABLE", true),
		CacheTTL:         getDuration("CACHE_TTL", 60*time.Second),
		CacheURL:         getEnv("CACHE_URL", "redis://localhost:6379/0"),
		CacheTLSVerify:   getBool("CACHE_TLS_VERIFY", true),
		MaxBodyBytes:     getInt64("MAX_BODY_BYTES", 512*1024),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// getDuration accepts Go duration strings ("30s", "1m") and, for parity with
// the historical configuration format, bare numbers interpreted as seconds.
func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
		return time.Duration(secs * float64(time.Second))
	}
	return def
}

func getInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return origins
}
