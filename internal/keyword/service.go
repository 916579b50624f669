package keyword

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/seungwoo/rankwatch/internal/model"
)

const (
	// maxSuggestions 는 연관 키워드 조회 결과의 최대 건수.
	maxSuggestions = 20
	// maxCompetitorPosts 는 경쟁 포스트 목록의 최대 건수.
	// 상위 노출 현황 파악 용도이므로 10건이면 충분하다.
	maxCompetitorPosts = 10
)

// naverPostfixes 는 네이버 연관 키워드 확장에 사용하는 접미 자음.
// 빈 문자열은 질의어 자체의 자동완성을 의미한다.
var naverPostfixes = []string{
	"", "ㄱ", "ㄴ", "ㄷ", "ㄹ", "ㅁ", "ㅂ", "ㅅ", "ㅇ", "ㅈ", "ㅊ", "ㅋ", "ㅌ", "ㅍ", "ㅎ",
}

// blogSearchURLFormat 은 경쟁 포스트 조회에 사용하는 통합검색 페이지.
const blogSearchURLFormat = "https://search.naver.com/search.naver?query=%s"

// LinkExtractor 는 검색 결과 HTML에서 블로그 포스트를 추출하는 인터페이스.
type LinkExtractor interface {
	ExtractBlogPosts(htmlText, keyword string) []model.BlogPost
}

// Service 는 연관 키워드 조회와 경쟁 블로그 포스트 조회를 담당한다.
type Service struct {
	naver     SuggestionProvider
	google    SuggestionProvider
	fetcher   Fetcher
	extractor LinkExtractor
	sanitizer *bluemonday.Policy
	logger    *slog.Logger
}

// NewService 는 keyword Service를 생성한다.
func NewService(naver, google SuggestionProvider, fetcher Fetcher, extractor LinkExtractor, logger *slog.Logger) *Service {
	return &Service{
		naver:     naver,
		google:    google,
		fetcher:   fetcher,
		extractor: extractor,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger,
	}
}

// Suggest 는 소스별 연관 키워드를 반환한다.
// source 가 "google"이면 구글 추천검색어 1회 조회,
// 그 외에는 네이버 자동완성을 접미 자음으로 확장 조회한다.
func (s *Service) Suggest(ctx context.Context, query, source string) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, model.NewInvalidKeywordError()
	}

	if source == "google" {
		suggestions, err := s.google.Suggest(ctx, query)
		if err != nil {
			return nil, err
		}
		return s.clean(suggestions), nil
	}
	return s.suggestNaverExpanded(ctx, query)
}

// suggestNaverExpanded 는 질의어 + 접미 자음 조합 전부를 병렬 조회한다.
// 일부 실패는 허용하고, 전부 실패한 경우에만 에러를 반환한다.
// 결과는 접미 순서를 유지한 채 병합된다.
func (s *Service) suggestNaverExpanded(ctx context.Context, query string) ([]string, error) {
	results := make([][]string, len(naverPostfixes))
	errs := make([]error, len(naverPostfixes))

	var wg sync.WaitGroup
	for i, postfix := range naverPostfixes {
		wg.Add(1)
		go func(i int, postfix string) {
			defer wg.Done()
			q := query
			if postfix != "" {
				q = query + " " + postfix
			}
			results[i], errs[i] = s.naver.Suggest(ctx, q)
		}(i, postfix)
	}
	wg.Wait()

	failed := 0
	var merged []string
	for i := range naverPostfixes {
		if errs[i] != nil {
			failed++
			continue
		}
		merged = append(merged, results[i]...)
	}

	if failed == len(naverPostfixes) {
		s.logger.Warn("자동완성 조회 전체 실패",
			slog.String("query", query),
			slog.Int("attempts", len(naverPostfixes)),
		)
		return nil, fmt.Errorf("'%s'에 대한 Naver 자동완성검색어 조회에 실패했습니다. 모든 요청이 거부되었습니다.", query)
	}

	cleaned := s.clean(merged)
	s.logger.Info("연관 키워드 조회 완료",
		slog.String("query", query),
		slog.Int("failed_requests", failed),
		slog.Int("count", len(cleaned)),
	)
	return cleaned, nil
}

// clean 은 태그 제거, 엔티티 복원, 공백 정리, 중복 제거를 거쳐 상한까지 자른다.
func (s *Service) clean(suggestions []string) []string {
	seen := make(map[string]bool, len(suggestions))
	result := make([]string, 0, len(suggestions))
	for _, raw := range suggestions {
		term := strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(raw)))
		if term == "" || seen[term] {
			continue
		}
		seen[term] = true
		result = append(result, term)
		if len(result) == maxSuggestions {
			break
		}
	}
	return result
}

// BlogPosts 는 키워드의 통합검색 결과에 노출 중인 블로그 포스트 목록을 반환한다.
// 상위 노출 경쟁 현황 파악 용도다.
func (s *Service) BlogPosts(ctx context.Context, query string) ([]model.BlogPost, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, model.NewInvalidKeywordError()
	}

	searchURL := fmt.Sprintf(blogSearchURLFormat, url.QueryEscape(query))
	htmlText, err := s.fetcher.FetchText(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	posts := s.extractor.ExtractBlogPosts(htmlText, query)
	if len(posts) > maxCompetitorPosts {
		posts = posts[:maxCompetitorPosts]
	}
	s.logger.Info("경쟁 블로그 포스트 조회 완료",
		slog.String("query", query),
		slog.Int("count", len(posts)),
	)
	return posts, nil
}
