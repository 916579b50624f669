package handler

import (
	"context"
	"net/http"

	"github.com/seungwoo/rankwatch/internal/middleware"
	"github.com/seungwoo/rankwatch/internal/model"
)

// KeywordServiceInterface 는 키워드 핸들러가 필요로 하는 서비스 인터페이스.
type KeywordServiceInterface interface {
	// Suggest 는 자동완성검색어를 조회한다. source는 "naver"(기본) 또는 "google".
	Suggest(ctx context.Context, query, source string) ([]string, error)
	// BlogPosts 는 검색어의 블로그탭 상위 포스트를 조회한다.
	BlogPosts(ctx context.Context, query string) ([]model.BlogPost, error)
}

// KeywordHandler 는 키워드 조회의 HTTP 핸들러.
type KeywordHandler struct {
	service KeywordServiceInterface
}

// NewKeywordHandler 는 KeywordHandler를 생성한다.
func NewKeywordHandler(service KeywordServiceInterface) *KeywordHandler {
	return &KeywordHandler{service: service}
}

// keywordResponse 는 자동완성검색어 1건의 API 응답.
type keywordResponse struct {
	ID      int    `json:"id"`
	Keyword string `json:"keyword"`
}

// suggestResponse 는 자동완성검색어 조회 응답.
type suggestResponse struct {
	Query    string            `json:"query"`
	Source   string            `json:"source"`
	Keywords []keywordResponse `json:"keywords"`
}

// blogPostResponse 는 블로그 포스트 1건의 API 응답.
type blogPostResponse struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// blogPostsResponse 는 경쟁 블로그 포스트 조회 응답.
type blogPostsResponse struct {
	Query string             `json:"query"`
	Posts []blogPostResponse `json:"posts"`
}

// Suggest 는 자동완성검색어 조회를 처리한다.
// GET /api/keywords/suggest?q=검색어&source=naver|google
func (h *KeywordHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.UserIDFromContext(r.Context()); err != nil {
		writeUnauthorized(w)
		return
	}

	query := r.URL.Query().Get("q")
	source := r.URL.Query().Get("source")
	if source == "" {
		source = "naver"
	}

	suggestions, err := h.service.Suggest(r.Context(), query, source)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	keywords := make([]keywordResponse, 0, len(suggestions))
	for i, s := range suggestions {
		keywords = append(keywords, keywordResponse{ID: i + 1, Keyword: s})
	}

	writeJSON(w, http.StatusOK, suggestResponse{
		Query:    query,
		Source:   source,
		Keywords: keywords,
	})
}

// BlogPosts 는 경쟁 블로그 포스트 조회를 처리한다.
// GET /api/keywords/blog-posts?q=검색어
func (h *KeywordHandler) BlogPosts(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.UserIDFromContext(r.Context()); err != nil {
		writeUnauthorized(w)
		return
	}

	query := r.URL.Query().Get("q")

	posts, err := h.service.BlogPosts(r.Context(), query)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]blogPostResponse, 0, len(posts))
	for _, p := range posts {
		resp = append(resp, blogPostResponse{ID: p.ID, Title: p.Title, URL: p.URL})
	}

	writeJSON(w, http.StatusOK, blogPostsResponse{
		Query: query,
		Posts: resp,
	})
}
