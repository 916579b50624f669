// Package extract 는 네이버 검색 결과 HTML에서 블로그 포스트 링크를 추출한다.
//
// 검색 결과 마크업은 예고 없이 바뀌므로 3단계 추출 전략을 사용한다:
// 알려진 컨테이너 → 알려진 직접 셀렉터 → 점수 기반 휴리스틱.
// 앞 단계가 하나라도 찾으면 뒤 단계는 실행하지 않는다.
package extract

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/seungwoo/rankwatch/internal/model"
	"github.com/seungwoo/rankwatch/internal/rank"
)

// maxHeuristicPosts 는 휴리스틱 단계에서 취하는 최대 후보 수.
// 컨테이너/셀렉터 단계는 상한 없이 페이지의 모든 유효 링크를 추출한다.
// 블로그 탭은 최대 100위까지 판정하므로 여기서 잘라내면 안 된다.
const maxHeuristicPosts = 10

var (
	// postIDRe 는 개별 포스트 URL (블로그 ID + 숫자 포스트 ID).
	postIDRe = regexp.MustCompile(`blog\.naver\.com/[^/]+/\d+`)
	// mainpageRe 는 블로그 메인 페이지 URL. 포스트가 아니므로 제외 대상.
	mainpageRe = regexp.MustCompile(`blog\.naver\.com/[^/?#]+/?$`)
	// hangulNameRe 는 제목이 아니라 블로거 이름으로 보이는 짧은 한글 문자열.
	hangulNameRe = regexp.MustCompile(`^[가-힣]{2,5}$`)
	// bloggerSuffixRe 는 "홍길동님" 같은 블로거 표기.
	bloggerSuffixRe = regexp.MustCompile(`^[가-힣]+님?$`)
	// urlLikeRe 는 제목 자리에 URL이 들어간 경우.
	urlLikeRe    = regexp.MustCompile(`^https?://`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// containerSelectors 는 블로그 포스트를 감싸는 알려진 컨테이너.
const containerSelectors = ".api_ani_send, .blog_block, .view_wrap"

// directSelectors 는 제목 앵커를 직접 가리키는 알려진 셀렉터.
// 구형 마크업부터 최신 fds 계열까지 순서대로 시도한다.
var directSelectors = []string{
	"a.total_tit",
	"a.api_txt_lines.total_tit",
	".fds-comps-right-image-title a",
	".title_area > a.title_link",
	`a[data-cr-area="blg*t"]`,
}

// ScorePolicy 는 휴리스틱 단계의 점수 가중치.
// 양수는 포스트 제목다움, 음수는 블로거명/메뉴/메인페이지다움에 대한 가중치다.
type ScorePolicy struct {
	GoodTitleLength  int // 제목 길이가 15~120자
	PostIDURL        int // href가 개별 포스트 URL
	TitleClassAnchor int // 앵커 클래스에 "tit" 포함
	TitleClassParent int // 부모 클래스에 "tit" 포함
	NoBloggerSuffix  int // 제목에 "님" 미포함
	NoEllipsis       int // 제목에 "..." 미포함
	Punctuation      int // 제목에 "?" 또는 "!" 포함

	MainpageURL     int // href가 블로그 메인 페이지
	UserClassAnchor int // 앵커 클래스에 "user" 포함
	SubClass        int // 앵커 또는 부모 클래스에 "sub" 포함
	HangulName      int // 제목이 2~5자 한글 (블로거 이름 패턴)
	BlogWord        int // 제목에 "블로그" 포함
	URLLikeTitle    int // 제목이 URL로 시작
	DomainTitle     int // 제목이 도메인 문자열 (.com, .co.kr)
}

// DefaultScorePolicy 는 운영에서 사용하는 가중치를 반환한다.
func DefaultScorePolicy() ScorePolicy {
	return ScorePolicy{
		GoodTitleLength:  2,
		PostIDURL:        5,
		TitleClassAnchor: 3,
		TitleClassParent: 2,
		NoBloggerSuffix:  1,
		NoEllipsis:       1,
		Punctuation:      1,

		MainpageURL:     -10,
		UserClassAnchor: -5,
		SubClass:        -3,
		HangulName:      -10,
		BlogWord:        -3,
		URLLikeTitle:    -10,
		DomainTitle:     -10,
	}
}

// Extractor 는 검색 결과 HTML에서 블로그 포스트 목록을 뽑아낸다.
// rank.LinkExtractor 를 구현한다.
type Extractor struct {
	policy ScorePolicy
	logger *slog.Logger
}

// NewExtractor 는 기본 가중치의 Extractor를 생성한다.
func NewExtractor(logger *slog.Logger) *Extractor {
	return &Extractor{
		policy: DefaultScorePolicy(),
		logger: logger,
	}
}

// ExtractBlogPosts 는 HTML에서 블로그 포스트 링크를 추출한다.
// 컨테이너/셀렉터 단계는 문서 등장 순서를, 휴리스틱 단계는 점수 내림차순을 따른다.
// 어떤 단계로도 링크를 찾지 못하면 실패를 표시하는 플레이스홀더 3건을 반환한다.
// 플레이스홀더의 URL은 "#" 이므로 순위 판정과는 절대 일치하지 않는다.
func (e *Extractor) ExtractBlogPosts(htmlText, keyword string) []model.BlogPost {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		e.logger.Warn("HTML 파싱 실패", slog.String("error", err.Error()))
		return placeholderPosts(keyword)
	}

	links := e.fromContainers(doc)
	tier := "container"
	if len(links) == 0 {
		links = e.fromDirectSelectors(doc)
		tier = "selector"
	}
	if len(links) == 0 {
		links = e.fromHeuristic(doc)
		tier = "heuristic"
	}
	if len(links) == 0 {
		e.logger.Warn("블로그 링크 추출 실패, 플레이스홀더 반환",
			slog.String("keyword", keyword),
		)
		return placeholderPosts(keyword)
	}

	links = dedupe(links)

	e.logger.Info("블로그 링크 추출 완료",
		slog.String("tier", tier),
		slog.String("keyword", keyword),
		slog.Int("count", len(links)),
	)
	return links
}

// fromContainers 는 알려진 컨테이너마다 첫 번째 유효한 앵커를 1건씩 취한다.
func (e *Extractor) fromContainers(doc *goquery.Document) []model.BlogPost {
	var posts []model.BlogPost
	doc.Find(containerSelectors).Each(func(_ int, container *goquery.Selection) {
		container.Find(`a[href*="blog.naver.com"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
			href, ok := a.Attr("href")
			if !ok {
				return true
			}
			title := cleanTitle(a.Text())
			if !isValidTitle(title, href) {
				return true
			}
			posts = append(posts, model.BlogPost{Title: title, URL: href})
			return false
		})
	})
	return posts
}

// fromDirectSelectors 는 알려진 제목 셀렉터를 전부 순회한다.
func (e *Extractor) fromDirectSelectors(doc *goquery.Document) []model.BlogPost {
	var posts []model.BlogPost
	for _, selector := range directSelectors {
		doc.Find(selector).Each(func(_ int, a *goquery.Selection) {
			href, ok := a.Attr("href")
			if !ok || !strings.Contains(href, "blog.naver.com") {
				return
			}
			title := cleanTitle(a.Text())
			if !isValidTitle(title, href) {
				return
			}
			posts = append(posts, model.BlogPost{Title: title, URL: href})
		})
	}
	return posts
}

// fromHeuristic 은 blog.naver.com 앵커 전체에 점수를 매겨 양수 후보만 남긴 뒤
// 점수 내림차순 상위 maxHeuristicPosts 건을 취한다. 동점은 문서 등장 순서를 유지한다.
func (e *Extractor) fromHeuristic(doc *goquery.Document) []model.BlogPost {
	type candidate struct {
		post  model.BlogPost
		score int
	}
	var candidates []candidate
	doc.Find(`a[href*="blog.naver.com"]`).Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		title := cleanTitle(a.Text())
		if title == "" {
			return
		}
		if score := e.score(title, href, a); score > 0 {
			candidates = append(candidates, candidate{
				post:  model.BlogPost{Title: title, URL: href},
				score: score,
			})
		}
	})

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > maxHeuristicPosts {
		candidates = candidates[:maxHeuristicPosts]
	}

	posts := make([]model.BlogPost, 0, len(candidates))
	for _, c := range candidates {
		posts = append(posts, c.post)
	}
	return posts
}

// score 는 앵커 하나가 포스트 제목일 가능성을 점수화한다.
func (e *Extractor) score(title, href string, a *goquery.Selection) int {
	p := e.policy
	score := 0

	anchorClass, _ := a.Attr("class")
	parentClass, _ := a.Parent().Attr("class")

	titleLen := utf8.RuneCountInString(title)
	if titleLen >= 15 && titleLen <= 120 {
		score += p.GoodTitleLength
	}
	if postIDRe.MatchString(href) {
		score += p.PostIDURL
	}
	if strings.Contains(anchorClass, "tit") {
		score += p.TitleClassAnchor
	}
	if strings.Contains(parentClass, "tit") {
		score += p.TitleClassParent
	}
	if !strings.Contains(title, "님") {
		score += p.NoBloggerSuffix
	}
	if !strings.Contains(title, "...") {
		score += p.NoEllipsis
	}
	if strings.ContainsAny(title, "?!") {
		score += p.Punctuation
	}

	if mainpageRe.MatchString(href) {
		score += p.MainpageURL
	}
	if strings.Contains(anchorClass, "user") {
		score += p.UserClassAnchor
	}
	if strings.Contains(anchorClass, "sub") || strings.Contains(parentClass, "sub") {
		score += p.SubClass
	}
	if hangulNameRe.MatchString(title) {
		score += p.HangulName
	}
	if strings.Contains(title, "블로그") {
		score += p.BlogWord
	}
	if urlLikeRe.MatchString(title) || strings.HasPrefix(title, "blog.") {
		score += p.URLLikeTitle
	}
	if strings.Contains(title, ".com") || strings.Contains(title, ".co.kr") {
		score += p.DomainTitle
	}

	return score
}

// titleExclusions 는 제목이 아닌 것으로 확정하는 문자열.
var titleExclusions = []string{
	"님의 블로그",
	"님의 이글루스",
	"네이버 블로그",
}

// isValidTitle 은 컨테이너/셀렉터 단계에서 제목과 href의 유효성을 엄격하게 검사한다.
func isValidTitle(title, href string) bool {
	titleLen := utf8.RuneCountInString(title)
	if titleLen < 10 || titleLen > 150 {
		return false
	}
	if !postIDRe.MatchString(href) || mainpageRe.MatchString(href) {
		return false
	}
	for _, excl := range titleExclusions {
		if strings.Contains(title, excl) {
			return false
		}
	}
	if bloggerSuffixRe.MatchString(title) {
		return false
	}
	if urlLikeRe.MatchString(title) || strings.HasPrefix(title, "blog.") {
		return false
	}
	if strings.Contains(title, ".com") || strings.Contains(title, ".co.kr") {
		return false
	}
	if strings.Contains(title, "#") || strings.Contains(title, "...") {
		return false
	}
	return true
}

// cleanTitle 은 앵커 텍스트의 공백을 정리한다.
func cleanTitle(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// dedupe 는 정규형 URL 기준으로 중복을 제거하고
// 1부터 시작하는 순번 ID를 부여한다. 건수 상한은 두지 않는다.
// 순위 판정은 전체 링크 목록이 필요하고, 표시용 상한은 호출 쪽 몫이다.
func dedupe(posts []model.BlogPost) []model.BlogPost {
	seen := make(map[string]bool, len(posts))
	result := make([]model.BlogPost, 0, len(posts))
	for _, post := range posts {
		key := rank.Normalize(post.URL)
		if seen[key] {
			continue
		}
		seen[key] = true
		post.ID = len(result) + 1
		result = append(result, post)
	}
	return result
}

// placeholderPosts 는 추출 실패를 사용자에게 알리는 고정 3건을 반환한다.
func placeholderPosts(keyword string) []model.BlogPost {
	return []model.BlogPost{
		{ID: 1, Title: fmt.Sprintf("\"%s\" 관련 블로그 포스트 제목을 가져올 수 없습니다.", keyword), URL: "#"},
		{ID: 2, Title: "네이버 블로그 크롤링 기능이 일시적으로 제한되었습니다.", URL: "#"},
		{ID: 3, Title: "다른 키워드로 다시 시도해주세요.", URL: "#"},
	}
}
