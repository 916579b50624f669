// Package config 는 애플리케이션 설정 로딩을 제공한다.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config 는 애플리케이션 전체 설정을 보관한다.
// 기동 시 환경 변수에서 1회 읽어들이고 이후 불변으로 취급한다.
type Config struct {
	// Database
	DatabaseURL string

	// Fetch (프록시 체인)
	FetchTimeout    time.Duration // 프록시 1회 시도당 제한 시간
	FetchRetryDelay time.Duration // 같은 프록시 재시도 전 대기 시간
	FetchMaxSize    int64         // 응답 본문 최대 크기
	ProxyAttempts   int           // 프록시당 시도 횟수 (1회 + 재시도)

	// Tracker
	TrackerLimit         int           // 사용자당 추적 항목 한도 (플랜 협력자의 기본값)
	BulkUpdatePause      time.Duration // 일괄 업데이트 시 항목 간 대기 시간
	HistoryRetentionDays int           // 순위 히스토리 보존 일수
	UpdateInterval       time.Duration // 워커의 전체 갱신 주기

	// Rate Limit
	RateLimitGeneral int // API 전반 (req/min/user)
	RateLimitCheck   int // 순위 확인 전용 (req/min/user)

	// Server
	ServerPort        string
	CORSAllowedOrigin string
}

// Load 는 환경 변수에서 Config를 읽어들인다.
// 필수 환경 변수가 없으면 에러를 반환한다.
func Load() (*Config, error) {
	cfg := &Config{}

	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 15*time.Second)
	cfg.FetchRetryDelay = getEnvDuration("FETCH_RETRY_DELAY", 1*time.Second)
	cfg.FetchMaxSize = getEnvInt64("FETCH_MAX_SIZE", 5242880)
	cfg.ProxyAttempts = getEnvInt("PROXY_ATTEMPTS", 2)
	cfg.TrackerLimit = getEnvInt("TRACKER_LIMIT", 10)
	cfg.BulkUpdatePause = getEnvDuration("BULK_UPDATE_PAUSE", 1*time.Second)
	cfg.HistoryRetentionDays = getEnvInt("HISTORY_RETENTION_DAYS", 30)
	cfg.UpdateInterval = getEnvDuration("UPDATE_INTERVAL", 24*time.Hour)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitCheck = getEnvInt("RATE_LIMIT_CHECK", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:5173")

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

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
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
