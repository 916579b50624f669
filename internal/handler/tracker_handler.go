// Package handler 는 HTTP API 핸들러와 라우팅을 정의한다.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/seungwoo/rankwatch/internal/middleware"
	"github.com/seungwoo/rankwatch/internal/model"
	"github.com/seungwoo/rankwatch/internal/rank"
	"github.com/seungwoo/rankwatch/internal/tracker"
)

// TrackerServiceInterface 는 추적 핸들러가 필요로 하는 서비스 인터페이스.
type TrackerServiceInterface interface {
	// Start 는 새 추적 항목을 만들고 첫 순위 확인을 수행한다.
	Start(ctx context.Context, userID, blogURL, blogTitle, keyword string) (*model.Tracker, string, error)
	// Get 은 추적 항목 1건을 조회한다.
	Get(ctx context.Context, userID, trackerID string) (*model.Tracker, error)
	// List 는 사용자의 전체 추적 항목을 조회한다.
	List(ctx context.Context, userID string) ([]*model.Tracker, error)
	// Refresh 는 추적 항목 1건의 순위를 갱신한다.
	Refresh(ctx context.Context, userID, trackerID string) (*tracker.RefreshResult, error)
	// RefreshAll 은 사용자의 모든 활성 추적 항목을 순차 갱신한다.
	RefreshAll(ctx context.Context, userID string) (*tracker.BulkResult, error)
	// Delete 는 추적 항목을 삭제한다.
	Delete(ctx context.Context, userID, trackerID string) error
}

// HistoryExportFunc 는 추적 항목의 히스토리를 xlsx 워크북으로 내보낸다.
type HistoryExportFunc func(w io.Writer, t *model.Tracker) error

// TrackerHandler 는 추적 항목 관리의 HTTP 핸들러.
type TrackerHandler struct {
	service TrackerServiceInterface
	export  HistoryExportFunc
}

// NewTrackerHandler 는 TrackerHandler를 생성한다.
func NewTrackerHandler(service TrackerServiceInterface, export HistoryExportFunc) *TrackerHandler {
	return &TrackerHandler{
		service: service,
		export:  export,
	}
}

// startTrackerRequest 는 추적 시작 요청의 바디.
type startTrackerRequest struct {
	BlogURL       string `json:"blog_url"`
	BlogTitle     string `json:"blog_title"`
	TargetKeyword string `json:"target_keyword"`
}

// historyEntryResponse 는 순위 히스토리 1건의 API 응답.
type historyEntryResponse struct {
	Date           string `json:"date"`
	SmartblockRank *int   `json:"smartblock_rank"`
	MainBlogRank   *int   `json:"main_blog_rank"`
	BlogTabRank    *int   `json:"blog_tab_rank"`
	CheckedAt      string `json:"checked_at"`
}

// trackerResponse 는 추적 항목의 API 응답.
type trackerResponse struct {
	ID            string `json:"id"`
	BlogURL       string `json:"blog_url"`
	BlogTitle     string `json:"blog_title"`
	TargetKeyword string `json:"target_keyword"`

	CurrentSmartblockRank *int `json:"current_smartblock_rank"`
	CurrentMainBlogRank   *int `json:"current_main_blog_rank"`
	CurrentBlogTabRank    *int `json:"current_blog_tab_rank"`

	PreviousSmartblockRank *int `json:"previous_smartblock_rank"`
	PreviousMainBlogRank   *int `json:"previous_main_blog_rank"`
	PreviousBlogTabRank    *int `json:"previous_blog_tab_rank"`

	RankHistory []historyEntryResponse `json:"rank_history"`

	CreatedAt   string `json:"created_at"`
	LastChecked string `json:"last_checked"`
	IsActive    bool   `json:"is_active"`
}

// startTrackerResponse 는 추적 시작 응답. 요약 메시지는 UI에 그대로 표시한다.
type startTrackerResponse struct {
	Tracker trackerResponse `json:"tracker"`
	Message string          `json:"message"`
}

// changeResponse 는 한 영역의 순위 변화 분석.
type changeResponse struct {
	Direction string `json:"direction"`
	Amount    int    `json:"amount"`
	Message   string `json:"message"`
}

// refreshResponse 는 1회 갱신 응답.
type refreshResponse struct {
	Tracker          trackerResponse `json:"tracker"`
	SmartblockChange changeResponse  `json:"smartblock_change"`
	MainBlogChange   changeResponse  `json:"main_blog_change"`
	BlogTabChange    changeResponse  `json:"blog_tab_change"`
}

// refreshAllResponse 는 일괄 갱신의 집계 응답.
type refreshAllResponse struct {
	Total   int `json:"total"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// Start 는 추적 시작을 처리한다.
// POST /api/trackers
func (h *TrackerHandler) Start(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req startTrackerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST_BODY",
			Message:  "요청 본문을 해석할 수 없습니다.",
			Category: "user",
			Action:   "JSON 형식을 확인해 주세요.",
		})
		return
	}

	t, message, err := h.service.Start(r.Context(), userID, req.BlogURL, req.BlogTitle, req.TargetKeyword)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, startTrackerResponse{
		Tracker: toTrackerResponse(t),
		Message: message,
	})
}

// List 는 추적 항목 목록 조회를 처리한다.
// GET /api/trackers
func (h *TrackerHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	trackers, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]trackerResponse, 0, len(trackers))
	for _, t := range trackers {
		resp = append(resp, toTrackerResponse(t))
	}

	writeJSON(w, http.StatusOK, map[string]any{"trackers": resp})
}

// Get 은 추적 항목 1건 조회를 처리한다.
// GET /api/trackers/{id}
func (h *TrackerHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	t, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTrackerResponse(t))
}

// Refresh 는 추적 항목 1건의 갱신을 처리한다.
// POST /api/trackers/{id}/refresh
func (h *TrackerHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	result, err := h.service.Refresh(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, refreshResponse{
		Tracker:          toTrackerResponse(result.Tracker),
		SmartblockChange: toChangeResponse(result.SmartblockChange),
		MainBlogChange:   toChangeResponse(result.MainBlogChange),
		BlogTabChange:    toChangeResponse(result.BlogTabChange),
	})
}

// RefreshAll 은 일괄 갱신을 처리한다.
// POST /api/trackers/refresh-all
func (h *TrackerHandler) RefreshAll(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	result, err := h.service.RefreshAll(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, refreshAllResponse{
		Total:   result.Total,
		Updated: result.Updated,
		Failed:  result.Failed,
	})
}

// Delete 는 추적 항목 삭제를 처리한다.
// DELETE /api/trackers/{id}
func (h *TrackerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Export 는 순위 히스토리의 xlsx 다운로드를 처리한다.
// GET /api/trackers/{id}/export
func (h *TrackerHandler) Export(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	t, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// 키워드에 한글이 들어가므로 파일명에는 ID만 사용한다.
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="ranking_history_%s.xlsx"`, t.ID))

	if err := h.export(w, t); err != nil {
		// 이미 헤더를 쓴 뒤이므로 상태 코드는 바꿀 수 없다. 로그만 남긴다.
		handleServiceError(w, err)
	}
}

func toTrackerResponse(t *model.Tracker) trackerResponse {
	history := make([]historyEntryResponse, 0, len(t.RankHistory))
	for _, e := range t.RankHistory {
		history = append(history, historyEntryResponse{
			Date:           e.Date,
			SmartblockRank: e.SmartblockRank,
			MainBlogRank:   e.MainBlogRank,
			BlogTabRank:    e.BlogTabRank,
			CheckedAt:      e.CheckedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	return trackerResponse{
		ID:                     t.ID,
		BlogURL:                t.BlogURL,
		BlogTitle:              t.BlogTitle,
		TargetKeyword:          t.TargetKeyword,
		CurrentSmartblockRank:  t.CurrentSmartblockRank,
		CurrentMainBlogRank:    t.CurrentMainBlogRank,
		CurrentBlogTabRank:     t.CurrentBlogTabRank,
		PreviousSmartblockRank: t.PreviousSmartblockRank,
		PreviousMainBlogRank:   t.PreviousMainBlogRank,
		PreviousBlogTabRank:    t.PreviousBlogTabRank,
		RankHistory:            history,
		CreatedAt:              t.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		LastChecked:            t.LastChecked.Format("2006-01-02T15:04:05Z07:00"),
		IsActive:               t.IsActive,
	}
}

func toChangeResponse(c rank.Change) changeResponse {
	return changeResponse{
		Direction: string(c.Direction),
		Amount:    c.Amount,
		Message:   c.Message,
	}
}

// writeJSON 은 JSON 응답을 쓴다.
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}
