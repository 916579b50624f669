// Package app 은 애플리케이션의 초기화와 기동 모드별 실행을 담당한다.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/seungwoo/rankwatch/internal/config"
	"github.com/seungwoo/rankwatch/internal/database"
	"github.com/seungwoo/rankwatch/internal/export"
	"github.com/seungwoo/rankwatch/internal/extract"
	"github.com/seungwoo/rankwatch/internal/handler"
	"github.com/seungwoo/rankwatch/internal/keyword"
	"github.com/seungwoo/rankwatch/internal/logger"
	"github.com/seungwoo/rankwatch/internal/metrics"
	"github.com/seungwoo/rankwatch/internal/middleware"
	"github.com/seungwoo/rankwatch/internal/proxychain"
	"github.com/seungwoo/rankwatch/internal/rank"
	"github.com/seungwoo/rankwatch/internal/repository"
	"github.com/seungwoo/rankwatch/internal/security"
	"github.com/seungwoo/rankwatch/internal/tracker"
	updatepkg "github.com/seungwoo/rankwatch/internal/worker/update"
)

// Init 은 애플리케이션의 초기화를 수행한다.
// 환경 변수에서 Config를 읽고 JSON 구조화 로그를 셋업한다.
// writer가 지정되면 로그 출력처로 그 writer를 사용한다.
func Init(w io.Writer) (*config.Config, error) {
	// 1. 로그 초기화 (설정 읽기 전에 로그를 쓸 수 있도록)
	logger.SetupDefault(w)

	// 2. 환경 변수에서 설정을 읽는다
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run 은 애플리케이션의 메인 엔트리포인트.
// 커맨드라인 인수에서 서브커맨드를 해석해 대응하는 모드로 기동한다.
// args에는 os.Args[1:]를 넘긴다.
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck 는 경량 서브커맨드이므로 풀 초기화를 생략한다
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// buildServices 는 fetch부터 추적 서비스까지의 의존성을 조립한다.
// serve 모드와 worker 모드가 같은 스택을 공유한다.
func buildServices(cfg *config.Config, repo repository.TrackerRepository, collector *metrics.Collector) (*tracker.Service, *keyword.Service) {
	guard := security.NewSSRFGuard()

	fetcher := proxychain.NewClient(nil, proxychain.DefaultStrategies(), guard, proxychain.Config{
		AttemptsPerStrategy: cfg.ProxyAttempts,
		RetryDelay:          cfg.FetchRetryDelay,
		AttemptTimeout:      cfg.FetchTimeout,
		MaxBodySize:         cfg.FetchMaxSize,
	}, collector, slog.Default())

	extractor := extract.NewExtractor(slog.Default())
	checker := rank.NewChecker(fetcher, extractor, collector, slog.Default())

	trackerService := tracker.NewService(
		repo,
		checker,
		tracker.StaticQuota{Limit: cfg.TrackerLimit},
		collector,
		slog.Default(),
		time.Duration(cfg.HistoryRetentionDays)*24*time.Hour,
		cfg.BulkUpdatePause,
	)

	keywordService := keyword.NewService(
		keyword.NewNaverProvider(fetcher),
		keyword.NewGoogleProvider(fetcher),
		fetcher,
		extractor,
		slog.Default(),
	)

	return trackerService, keywordService
}

// runServe 는 API 서버 모드로 기동한다.
// DB 접속을 열고 전체 의존성을 조립한 뒤 HTTP 서버를 기동한다.
// SIGINT 또는 SIGTERM을 받으면 그레이스풀 셧다운을 수행한다.
func runServe(cfg *config.Config) error {
	// 1. DB 접속
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. 리포지토리와 메트릭
	trackerRepo := repository.NewPostgresTrackerRepo(db)
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 3. 도메인 서비스
	trackerService, keywordService := buildServices(cfg, trackerRepo, collector)

	// 4. 라우터
	rateLimiterCfg := middleware.RateLimiterConfig{
		GeneralRate:     rate.Limit(float64(cfg.RateLimitGeneral) / 60.0),
		GeneralBurst:    cfg.RateLimitGeneral,
		CheckRate:       rate.Limit(float64(cfg.RateLimitCheck) / 60.0),
		CheckBurst:      cfg.RateLimitCheck,
		CleanupInterval: 5 * time.Minute,
	}
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Logger:            slog.Default(),

		TrackerService: trackerService,
		RankingService: trackerService,
		KeywordService: keywordService,

		HistoryExport: export.WriteHistoryXLSX,

		MetricsHandler: metrics.Handler(registry),
	})

	// 5. HTTP 서버 기동
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // 순위 확인은 외부 fetch 2회를 동반한다
		IdleTimeout:  60 * time.Second,
	}

	// 그레이스풀 셧다운을 위한 시그널 핸들링
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker 는 워커 모드로 기동한다.
// DB 접속을 열고 순위 갱신 스케줄러를 기동한다.
// SIGINT 또는 SIGTERM을 받으면 셧다운한다.
func runWorker(cfg *config.Config) error {
	// 1. DB 접속
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. 서비스 조립 (워커는 메트릭 엔드포인트를 노출하지 않으므로 로컬 레지스트리 사용)
	trackerRepo := repository.NewPostgresTrackerRepo(db)
	collector := metrics.NewCollector(prometheus.NewRegistry())

	trackerService, _ := buildServices(cfg, trackerRepo, collector)

	// 3. 스케줄러 기동
	scheduler := updatepkg.NewScheduler(trackerRepo, trackerService, slog.Default())

	// 그레이스풀 셧다운을 위한 시그널 핸들링
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("update_interval", cfg.UpdateInterval),
	)

	// 갱신 스케줄러를 메인 고루틴에서 실행 (블로킹)
	scheduler.Start(ctx, cfg.UpdateInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate 는 데이터베이스 마이그레이션을 실행한다.
// 미적용 마이그레이션을 순서대로 전부 적용한다.
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck 는 헬스체크를 실행한다.
// distroless 환경에서의 Docker 헬스체크용 서브커맨드.
// /health 엔드포인트에 HTTP 요청을 보내 결과를 돌려준다.
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL 은 데이터베이스 URL의 인증 정보를 마스킹한다.
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
