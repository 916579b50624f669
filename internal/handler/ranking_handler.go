package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/seungwoo/rankwatch/internal/middleware"
	"github.com/seungwoo/rankwatch/internal/model"
)

// RankingServiceInterface 는 순위 확인 핸들러가 필요로 하는 서비스 인터페이스.
type RankingServiceInterface interface {
	// Check 는 저장 없이 키워드+URL의 현재 순위만 확인한다.
	Check(ctx context.Context, keyword, targetURL string) (*model.AllRankings, error)
}

// RankingHandler 는 1회성 순위 확인의 HTTP 핸들러.
type RankingHandler struct {
	service RankingServiceInterface
}

// NewRankingHandler 는 RankingHandler를 생성한다.
func NewRankingHandler(service RankingServiceInterface) *RankingHandler {
	return &RankingHandler{service: service}
}

// checkRankingRequest 는 순위 확인 요청의 바디.
type checkRankingRequest struct {
	Keyword string `json:"keyword"`
	URL     string `json:"url"`
}

// rankResultResponse 는 한 영역의 순위 확인 결과.
type rankResultResponse struct {
	Found     bool   `json:"found"`
	Rank      *int   `json:"rank"`
	Area      string `json:"area"`
	AreaName  string `json:"area_name"`
	Title     string `json:"title"`
	CheckedAt string `json:"checked_at"`
}

// checkRankingResponse 는 3개 영역의 순위 확인 결과를 묶은 응답.
type checkRankingResponse struct {
	Smartblock rankResultResponse `json:"smartblock"`
	MainBlog   rankResultResponse `json:"main_blog"`
	BlogTab    rankResultResponse `json:"blog_tab"`
}

// Check 는 1회성 순위 확인을 처리한다.
// POST /api/rankings/check
func (h *RankingHandler) Check(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.UserIDFromContext(r.Context()); err != nil {
		writeUnauthorized(w)
		return
	}

	var req checkRankingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST_BODY",
			Message:  "요청 본문을 해석할 수 없습니다.",
			Category: "user",
			Action:   "JSON 형식을 확인해 주세요.",
		})
		return
	}

	rankings, err := h.service.Check(r.Context(), req.Keyword, req.URL)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, checkRankingResponse{
		Smartblock: toRankResultResponse(rankings.Smartblock),
		MainBlog:   toRankResultResponse(rankings.MainBlog),
		BlogTab:    toRankResultResponse(rankings.BlogTab),
	})
}

func toRankResultResponse(r model.RankResult) rankResultResponse {
	return rankResultResponse{
		Found:     r.Found,
		Rank:      r.Rank,
		Area:      string(r.Area),
		AreaName:  r.AreaName,
		Title:     r.Title,
		CheckedAt: r.CheckedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
