package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/seungwoo/rankwatch/internal/middleware"
)

// RouterDeps 는 NewRouter에 필요한 의존성을 모은 구조체.
type RouterDeps struct {
	// 미들웨어 의존
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// 서비스
	TrackerService TrackerServiceInterface
	RankingService RankingServiceInterface
	KeywordService KeywordServiceInterface

	// 히스토리 내보내기
	HistoryExport HistoryExportFunc

	// Prometheus 메트릭 엔드포인트. nil이면 /metrics를 노출하지 않는다.
	MetricsHandler http.Handler
}

// NewRouter 는 전체 API 엔드포인트의 라우팅과 미들웨어 체인을 구성한 chi.Router를 반환한다.
//
// 미들웨어 스택의 실행 순서:
//
//	CORSMiddleware → IdentityMiddleware → RateLimitMiddleware(GeneralMiddleware)
//
// 외부 검색 페이지 fetch를 동반하는 엔드포인트(추적 시작, 갱신, 1회성 확인)에는
// CheckMiddleware를 추가로 적용한다.
// /health 와 /metrics 는 미들웨어 체인 밖에 배치한다.
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// CORS 미들웨어를 최상위에 적용 (전체 라우트에 적용된다)
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))

	trackerHandler := NewTrackerHandler(deps.TrackerService, deps.HistoryExport)
	rankingHandler := NewRankingHandler(deps.RankingService)
	keywordHandler := NewKeywordHandler(deps.KeywordService)

	// --- 인증 불요 라우트 ---

	r.Get("/health", healthCheck)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- 사용자 식별이 필요한 라우트 ---
	// 미들웨어 스택: Identity → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewIdentityMiddleware())
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 추적 항목 관리
		r.Route("/api/trackers", func(r chi.Router) {
			// POST /api/trackers - 추적 시작 (외부 fetch 동반, 전용 레이트 제한 추가)
			r.With(deps.RateLimiter.CheckMiddleware()).Post("/", trackerHandler.Start)
			r.Get("/", trackerHandler.List)
			r.With(deps.RateLimiter.CheckMiddleware()).Post("/refresh-all", trackerHandler.RefreshAll)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", trackerHandler.Get)
				r.With(deps.RateLimiter.CheckMiddleware()).Post("/refresh", trackerHandler.Refresh)
				r.Delete("/", trackerHandler.Delete)
				r.Get("/export", trackerHandler.Export)
			})
		})

		// 1회성 순위 확인
		r.Route("/api/rankings", func(r chi.Router) {
			r.With(deps.RateLimiter.CheckMiddleware()).Post("/check", rankingHandler.Check)
		})

		// 키워드 조회
		r.Route("/api/keywords", func(r chi.Router) {
			r.Get("/suggest", keywordHandler.Suggest)
			r.Get("/blog-posts", keywordHandler.BlogPosts)
		})
	})

	return r
}

// healthCheck 는 생존 확인용 엔드포인트.
// GET /health
func healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
