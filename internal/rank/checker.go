package rank

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/seungwoo/rankwatch/internal/model"
)

const (
	// mainSearchURLFormat 은 네이버 통합검색 결과 페이지.
	mainSearchURLFormat = "https://search.naver.com/search.naver?query=%s"
	// blogTabURLFormat 은 네이버 블로그 탭 검색 결과 페이지.
	blogTabURLFormat = "https://search.naver.com/search.naver?ssc=tab.blog.all&sm=tab_jum&query=%s"
)

// PageFetcher 는 검색 결과 페이지의 원문 HTML을 가져오는 인터페이스.
// 프록시 체인 클라이언트가 구현한다.
type PageFetcher interface {
	FetchText(ctx context.Context, targetURL string) (string, error)
}

// LinkExtractor 는 검색 결과 HTML에서 블로그 포스트 링크를 추출하는 인터페이스.
type LinkExtractor interface {
	ExtractBlogPosts(htmlText, keyword string) []model.BlogPost
}

// CheckMetrics 는 순위 확인 결과를 기록하는 메트릭 인터페이스.
type CheckMetrics interface {
	RecordCheckSuccess()
	RecordCheckFailure()
	RecordCheckLatency(d time.Duration)
}

// Checker 는 3개 영역(스마트블록, 통합검색 블로그, 블로그 탭)의 순위를 한 번에 확인한다.
// 통합검색 페이지와 블로그 탭 페이지를 병렬로 가져온 뒤, 각 영역 윈도우에 대해
// 독립적으로 순위를 판정한다.
type Checker struct {
	fetcher   PageFetcher
	extractor LinkExtractor
	metrics   CheckMetrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewChecker 는 Checker의 새 인스턴스를 생성한다. metrics는 nil이어도 된다.
func NewChecker(fetcher PageFetcher, extractor LinkExtractor, metrics CheckMetrics, logger *slog.Logger) *Checker {
	return &Checker{
		fetcher:   fetcher,
		extractor: extractor,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// CheckAll 은 키워드에 대한 대상 URL의 순위를 3개 영역 모두에서 확인한다.
// 두 페이지 fetch 중 하나라도 실패하면 전체 확인이 실패한다. 부분 결과는 반환하지 않는다.
func (c *Checker) CheckAll(ctx context.Context, keyword, targetURL string) (*model.AllRankings, error) {
	start := c.now()

	c.logger.Info("전체 영역 랭킹 확인 시작",
		slog.String("keyword", keyword),
		slog.String("target_url", targetURL),
	)

	mainURL := fmt.Sprintf(mainSearchURLFormat, url.QueryEscape(keyword))
	tabURL := fmt.Sprintf(blogTabURLFormat, url.QueryEscape(keyword))

	// 두 페이지는 서로 독립이므로 병렬로 가져온다.
	var wg sync.WaitGroup
	var mainHTML, tabHTML string
	var mainErr, tabErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		mainHTML, mainErr = c.fetcher.FetchText(ctx, mainURL)
	}()
	go func() {
		defer wg.Done()
		tabHTML, tabErr = c.fetcher.FetchText(ctx, tabURL)
	}()
	wg.Wait()

	if mainErr != nil {
		c.recordFailure()
		return nil, fmt.Errorf("통합검색 페이지 확인에 실패했습니다: %w", mainErr)
	}
	if tabErr != nil {
		c.recordFailure()
		return nil, fmt.Errorf("블로그 탭 페이지 확인에 실패했습니다: %w", tabErr)
	}

	mainLinks := c.extractor.ExtractBlogPosts(mainHTML, keyword)
	tabLinks := c.extractor.ExtractBlogPosts(tabHTML, keyword)

	checkedAt := c.now()

	smartblock := toRankResult(
		FindRank(Window(mainLinks, 0, SmartblockWindow), targetURL),
		model.AreaSmartblock, checkedAt,
	)
	mainBlog := toRankResult(
		FindRank(Window(mainLinks, MainBlogStart, MainBlogEnd), targetURL),
		model.AreaMainBlog, checkedAt,
	)
	blogTab := toRankResult(
		FindRank(Window(tabLinks, 0, BlogTabWindow), targetURL),
		model.AreaBlogTab, checkedAt,
	)

	c.logger.Info("전체 영역 랭킹 확인 완료",
		slog.String("keyword", keyword),
		slog.Any("smartblock_rank", rankValue(smartblock.Rank)),
		slog.Any("main_blog_rank", rankValue(mainBlog.Rank)),
		slog.Any("blog_tab_rank", rankValue(blogTab.Rank)),
		slog.Float64("duration_ms", float64(c.now().Sub(start).Milliseconds())),
	)

	if c.metrics != nil {
		c.metrics.RecordCheckSuccess()
		c.metrics.RecordCheckLatency(c.now().Sub(start))
	}

	return &model.AllRankings{
		Smartblock: smartblock,
		MainBlog:   mainBlog,
		BlogTab:    blogTab,
	}, nil
}

func (c *Checker) recordFailure() {
	if c.metrics != nil {
		c.metrics.RecordCheckFailure()
	}
}

// toRankResult 는 윈도우 판정 결과를 영역 태그와 확인 시각이 붙은 RankResult로 변환한다.
func toRankResult(zr ZoneRank, area model.SearchArea, checkedAt time.Time) model.RankResult {
	return model.RankResult{
		Found:     zr.Found,
		Rank:      zr.Rank,
		Area:      area,
		AreaName:  area.Label(),
		Title:     zr.Title,
		CheckedAt: checkedAt,
	}
}

// rankValue 는 로그 출력용으로 nil 순위를 "순위 없음"으로 표현한다.
func rankValue(rank *int) any {
	if rank == nil {
		return "순위 없음"
	}
	return *rank
}
