// Package config は環境変数からのアプリケーション設定読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL      string
	DatabaseMaxConns int

	// Auth
	GoogleClientID    string
	AuthFakePrincipal bool // ローカル開発用: 固定Principalで認証をバイパスする

	// Upstream
	ZWSID             string
	UpstreamBaseURL   string // プロバイダーエンドポイントの差し替え（空でデフォルト）
	UpstreamTimeout   time.Duration
	UpstreamRate      float64 // 外部プロバイダーへの秒間リクエスト上限
	UpstreamRateBurst int

	// Cache staleness
	PricingTTL     time.Duration
	PricingJitter  time.Duration // 0〜PricingJitterの乱数を毎回加算する
	PropertyTTL    time.Duration
	PropertyJitter time.Duration

	// Rate Limit
	RateLimitGeneral int

	// Refresh worker
	RefreshInterval      time.Duration
	RefreshMaxConcurrent int
	RefreshBatchSize     int

	// GeoIP
	GeoIPDBPath string

	// Server
	ServerPort string

	// CORS
	CORSProductionOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.ZWSID = os.Getenv("ZWSID")
	if cfg.ZWSID == "" {
		missing = append(missing, "ZWSID")
	}

	cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	if cfg.GoogleClientID == "" {
		missing = append(missing, "GOOGLE_CLIENT_ID")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.DatabaseMaxConns = getEnvInt("DATABASE_MAX_CONNS", 10)
	cfg.AuthFakePrincipal = getEnvBool("AUTH_FAKE_PRINCIPAL", false)
	cfg.UpstreamBaseURL = getEnvString("UPSTREAM_BASE_URL", "")
	cfg.UpstreamTimeout = getEnvDuration("UPSTREAM_TIMEOUT", 15*time.Second)
	cfg.UpstreamRate = getEnvFloat("UPSTREAM_RATE", 1.0)
	cfg.UpstreamRateBurst = getEnvInt("UPSTREAM_RATE_BURST", 2)
	cfg.PricingTTL = getEnvDuration("PRICING_TTL", 48*time.Hour)
	cfg.PricingJitter = getEnvDuration("PRICING_JITTER", 120*time.Minute)
	cfg.PropertyTTL = getEnvDuration("PROPERTY_TTL", 24*time.Hour)
	cfg.PropertyJitter = getEnvDuration("PROPERTY_JITTER", 120*time.Minute)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RefreshInterval = getEnvDuration("REFRESH_INTERVAL", 10*time.Minute)
	cfg.RefreshMaxConcurrent = getEnvInt("REFRESH_MAX_CONCURRENT", 4)
	cfg.RefreshBatchSize = getEnvInt("REFRESH_BATCH_SIZE", 20)
	cfg.GeoIPDBPath = getEnvString("GEOIP_DB_PATH", "")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSProductionOrigin = getEnvString("CORS_PRODUCTION_ORIGIN", "https://house-rank.carlyzach.com")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
