package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/seungwoo/rankwatch/internal/middleware"
	"github.com/seungwoo/rankwatch/internal/model"
)

func newTestRouter(t *testing.T, deps *RouterDeps) http.Handler {
	t.Helper()

	if deps.RateLimiter == nil {
		rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			GeneralRate:     rate.Limit(100),
			GeneralBurst:    100,
			CheckRate:       rate.Limit(1),
			CheckBurst:      1,
			CleanupInterval: time.Hour,
		})
		t.Cleanup(rl.Stop)
		deps.RateLimiter = rl
	}
	if deps.CORSAllowedOrigin == "" {
		deps.CORSAllowedOrigin = "http://localhost:5173"
	}
	if deps.TrackerService == nil {
		deps.TrackerService = &mockTrackerService{}
	}
	if deps.RankingService == nil {
		deps.RankingService = &mockRankingService{}
	}
	if deps.KeywordService == nil {
		deps.KeywordService = &mockKeywordService{}
	}

	return NewRouter(deps)
}

func TestRouter_HealthWithoutUserID(t *testing.T) {
	router := newTestRouter(t, &RouterDeps{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body map[string]string
	json.NewDecoder(w.Body).Decode(&body)
	if body["status"] != "ok" {
		t.Errorf("status 필드 = %q, want ok", body["status"])
	}
}

func TestRouter_APIRequiresUserID(t *testing.T) {
	router := newTestRouter(t, &RouterDeps{})

	req := httptest.NewRequest(http.MethodGet, "/api/trackers", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestRouter_ListTrackers(t *testing.T) {
	svc := &mockTrackerService{
		listFn: func(ctx context.Context, userID string) ([]*model.Tracker, error) {
			if userID != "user-123" {
				t.Errorf("userID = %q", userID)
			}
			return []*model.Tracker{sampleTracker()}, nil
		},
	}
	router := newTestRouter(t, &RouterDeps{TrackerService: svc})

	req := httptest.NewRequest(http.MethodGet, "/api/trackers", nil)
	req.Header.Set("X-User-ID", "user-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestRouter_TrackerRoutesWired(t *testing.T) {
	// 라우트가 각 핸들러로 연결되는지만 확인한다.
	deleteCalled := false

	t.Run("Get", func(t *testing.T) {
		router := newTestRouter(t, &RouterDeps{TrackerService: &mockTrackerService{
			getFn: func(ctx context.Context, userID, trackerID string) (*model.Tracker, error) {
				return sampleTracker(), nil
			},
		}})

		req := httptest.NewRequest(http.MethodGet, "/api/trackers/tracker-1", nil)
		req.Header.Set("X-User-ID", "user-123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", w.Code)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		router := newTestRouter(t, &RouterDeps{TrackerService: &mockTrackerService{
			deleteFn: func(ctx context.Context, userID, trackerID string) error {
				deleteCalled = true
				return nil
			},
		}})

		req := httptest.NewRequest(http.MethodDelete, "/api/trackers/tracker-1", nil)
		req.Header.Set("X-User-ID", "user-123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusNoContent {
			t.Errorf("status = %d, want 204", w.Code)
		}
		if !deleteCalled {
			t.Error("삭제 핸들러가 호출되어야 함")
		}
	})
}

func TestRouter_CheckRateLimitOnRankingCheck(t *testing.T) {
	svc := &mockRankingService{
		checkFn: func(ctx context.Context, keyword, targetURL string) (*model.AllRankings, error) {
			return &model.AllRankings{}, nil
		},
	}
	router := newTestRouter(t, &RouterDeps{RankingService: svc})

	doCheck := func() int {
		body, _ := json.Marshal(checkRankingRequest{Keyword: "맛집", URL: "https://blog.naver.com/b/1"})
		req := httptest.NewRequest(http.MethodPost, "/api/rankings/check", bytes.NewReader(body))
		req.Header.Set("X-User-ID", "user-123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	// CheckBurst 1 → 1번째는 통과, 2번째는 429.
	if code := doCheck(); code != http.StatusOK {
		t.Fatalf("1번째 status = %d, want 200", code)
	}
	if code := doCheck(); code != http.StatusTooManyRequests {
		t.Fatalf("2번째 status = %d, want 429", code)
	}

	// 일반 API는 순위 확인 제한과 독립이다.
	req := httptest.NewRequest(http.MethodGet, "/api/trackers", nil)
	req.Header.Set("X-User-ID", "user-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("일반 API status = %d, want 200", w.Code)
	}
}

func TestRouter_MetricsExposedWhenConfigured(t *testing.T) {
	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("# metrics"))
	})
	router := newTestRouter(t, &RouterDeps{MetricsHandler: metricsHandler})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestRouter_MetricsHiddenWhenNotConfigured(t *testing.T) {
	router := newTestRouter(t, &RouterDeps{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestRouter_CORSHeaders(t *testing.T) {
	router := newTestRouter(t, &RouterDeps{})

	req := httptest.NewRequest(http.MethodOptions, "/api/trackers", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("프리플라이트 status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Allow-Origin = %q", got)
	}
}
