package extract

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func testExtractor() *Extractor {
	return NewExtractor(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestExtractBlogPosts_ContainerTier(t *testing.T) {
	html := `<html><body>
		<div class="api_ani_send">
			<a href="https://blog.naver.com/user1/223001">첫 번째 맛집 후기 포스트입니다</a>
		</div>
		<div class="api_ani_send">
			<a href="https://blog.naver.com/user2/223002">두 번째 여행 기록 포스트입니다</a>
		</div>
		<div class="view_wrap">
			<a href="https://blog.naver.com/user3/223003">세 번째 제품 리뷰 포스트입니다</a>
		</div>
	</body></html>`

	posts := testExtractor().ExtractBlogPosts(html, "맛집")

	if len(posts) != 3 {
		t.Fatalf("추출 건수 = %d, want 3", len(posts))
	}
	if posts[0].URL != "https://blog.naver.com/user1/223001" {
		t.Errorf("posts[0].URL = %s", posts[0].URL)
	}
	if posts[0].ID != 1 || posts[1].ID != 2 || posts[2].ID != 3 {
		t.Errorf("ID는 1부터 순서대로 부여되어야 함: %d, %d, %d", posts[0].ID, posts[1].ID, posts[2].ID)
	}
}

func TestExtractBlogPosts_ContainerSkipsInvalidAnchor(t *testing.T) {
	// 컨테이너 안의 첫 앵커가 블로거명이면 건너뛰고 다음 앵커를 취해야 한다.
	html := `<html><body>
		<div class="blog_block">
			<a href="https://blog.naver.com/user1" class="user_info">홍길동</a>
			<a href="https://blog.naver.com/user1/223001">실제 포스트 제목이 여기 있습니다</a>
		</div>
	</body></html>`

	posts := testExtractor().ExtractBlogPosts(html, "키워드")

	if len(posts) != 1 {
		t.Fatalf("추출 건수 = %d, want 1", len(posts))
	}
	if posts[0].Title != "실제 포스트 제목이 여기 있습니다" {
		t.Errorf("title = %q", posts[0].Title)
	}
}

func TestExtractBlogPosts_DirectSelectorTier(t *testing.T) {
	// 알려진 컨테이너가 없으면 직접 셀렉터로 넘어간다.
	html := `<html><body>
		<ul>
			<li><a class="total_tit" href="https://blog.naver.com/user1/223001">직접 셀렉터로 찾은 포스트 제목</a></li>
			<li><a class="total_tit" href="https://blog.naver.com/user2/223002">두 번째 직접 셀렉터 포스트 제목</a></li>
		</ul>
	</body></html>`

	posts := testExtractor().ExtractBlogPosts(html, "키워드")

	if len(posts) != 2 {
		t.Fatalf("추출 건수 = %d, want 2", len(posts))
	}
}

func TestExtractBlogPosts_HeuristicTier(t *testing.T) {
	// 컨테이너도 알려진 셀렉터도 없으면 점수 기반 휴리스틱만 남는다.
	html := `<html><body>
		<a href="https://blog.naver.com/user1/223001">강남역 근처 혼밥하기 좋은 식당 추천!</a>
		<a href="https://blog.naver.com/user1">홍길동</a>
		<a href="https://blog.naver.com/user2/223002">blog.naver.com</a>
		<a href="https://blog.naver.com/user3/223003">제주도 2박 3일 여행 코스 총정리?</a>
	</body></html>`

	posts := testExtractor().ExtractBlogPosts(html, "키워드")

	if len(posts) != 2 {
		t.Fatalf("추출 건수 = %d, want 2 (블로거명과 URL형 제목은 제외)", len(posts))
	}
	if posts[0].Title != "강남역 근처 혼밥하기 좋은 식당 추천!" {
		t.Errorf("posts[0].Title = %q", posts[0].Title)
	}
	if posts[1].Title != "제주도 2박 3일 여행 코스 총정리?" {
		t.Errorf("posts[1].Title = %q", posts[1].Title)
	}
}

func TestExtractBlogPosts_DedupeKeepsAllLinks(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body>")
	// 동일 포스트의 쿼리 변형 → 1건으로 합쳐져야 한다.
	b.WriteString(`<div class="api_ani_send"><a href="https://blog.naver.com/dup/100">중복 제거 대상 포스트 제목입니다</a></div>`)
	b.WriteString(`<div class="api_ani_send"><a href="https://blog.naver.com/dup/100?from=search">중복 제거 대상 포스트 제목입니다</a></div>`)
	for i := 0; i < 15; i++ {
		fmt.Fprintf(&b, `<div class="api_ani_send"><a href="https://blog.naver.com/user%d/2230%02d">순번 %d번째 블로그 포스트 제목입니다</a></div>`, i, i, i)
	}
	b.WriteString("</body></html>")

	posts := testExtractor().ExtractBlogPosts(b.String(), "키워드")

	// 블로그 탭은 100위까지 판정하므로 10건에서 잘리면 안 된다.
	if len(posts) != 16 {
		t.Fatalf("추출 건수 = %d, want 16 (중복 1건만 제거, 상한 없음)", len(posts))
	}
	seen := make(map[string]bool)
	for i, p := range posts {
		if p.ID != i+1 {
			t.Errorf("posts[%d].ID = %d, want %d", i, p.ID, i+1)
		}
		if seen[p.URL] {
			t.Errorf("중복 URL: %s", p.URL)
		}
		seen[p.URL] = true
	}
}

func TestExtractBlogPosts_HeuristicSortsByScore(t *testing.T) {
	// 휴리스틱 단계는 문서 순서가 아니라 점수 내림차순이어야 한다.
	// 뒤에 있는 앵커가 "tit" 클래스와 문장부호로 더 높은 점수를 받는다.
	html := `<html><body>
		<a href="https://blog.naver.com/user1/223001">평범한 일상 기록 포스트 제목입니다</a>
		<a class="tit_area" href="https://blog.naver.com/user2/223002">강남 맛집 추천 리스트 완벽 정리!</a>
	</body></html>`

	posts := testExtractor().ExtractBlogPosts(html, "키워드")

	if len(posts) != 2 {
		t.Fatalf("추출 건수 = %d, want 2", len(posts))
	}
	if posts[0].URL != "https://blog.naver.com/user2/223002" {
		t.Errorf("점수가 높은 앵커가 먼저 와야 함, posts[0].URL = %s", posts[0].URL)
	}
	if posts[1].URL != "https://blog.naver.com/user1/223001" {
		t.Errorf("posts[1].URL = %s", posts[1].URL)
	}
}

func TestExtractBlogPosts_HeuristicCapsAtTen(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < 12; i++ {
		fmt.Fprintf(&b, `<a href="https://blog.naver.com/user%d/2230%02d">순번 %d번째 휴리스틱 후보 제목입니다</a>`, i, i, i)
	}
	b.WriteString("</body></html>")

	posts := testExtractor().ExtractBlogPosts(b.String(), "키워드")

	if len(posts) != 10 {
		t.Fatalf("휴리스틱 단계는 상위 10건만 취해야 함, got %d", len(posts))
	}
}

func TestExtractBlogPosts_PlaceholdersOnFailure(t *testing.T) {
	tests := []struct {
		name string
		html string
	}{
		{"빈 HTML", ""},
		{"링크 없는 HTML", "<html><body><p>검색 결과가 없습니다</p></body></html>"},
		{"차단 페이지", "<html><body><div>비정상적인 접근이 감지되었습니다</div></body></html>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			posts := testExtractor().ExtractBlogPosts(tt.html, "테스트키워드")

			if len(posts) != 3 {
				t.Fatalf("플레이스홀더는 정확히 3건이어야 함, got %d", len(posts))
			}
			for i, p := range posts {
				if p.ID != i+1 {
					t.Errorf("posts[%d].ID = %d, want %d", i, p.ID, i+1)
				}
				if p.URL != "#" {
					t.Errorf("posts[%d].URL = %q, want #", i, p.URL)
				}
			}
			if !strings.Contains(posts[0].Title, "테스트키워드") {
				t.Errorf("첫 플레이스홀더는 키워드를 포함해야 함: %q", posts[0].Title)
			}
		})
	}
}

func TestIsValidTitle(t *testing.T) {
	validHref := "https://blog.naver.com/user1/223001"

	tests := []struct {
		name  string
		title string
		href  string
		want  bool
	}{
		{"정상 제목", "강남역 근처 혼밥하기 좋은 식당", validHref, true},
		{"너무 짧은 제목", "짧은 제목", validHref, false},
		{"너무 긴 제목", strings.Repeat("가", 151), validHref, false},
		{"블로그 메인 페이지", "강남역 근처 혼밥하기 좋은 식당", "https://blog.naver.com/user1", false},
		{"님의 블로그 제외", "홍길동님의 블로그입니다 환영합니다", validHref, false},
		{"네이버 블로그 제외", "네이버 블로그 : 파워블로거 소개", validHref, false},
		{"URL형 제목", "https://blog.naver.com/user1/223001", validHref, false},
		{"말줄임 제목", "제목이 잘려서 표시되는 경우입니다...", validHref, false},
		{"도메인 제목", "mysite.com 공식 블로그입니다", validHref, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isValidTitle(tt.title, tt.href); got != tt.want {
				t.Errorf("isValidTitle(%q, %q) = %v, want %v", tt.title, tt.href, got, tt.want)
			}
		})
	}
}

func TestCleanTitle(t *testing.T) {
	got := cleanTitle("  제목에\n  공백이   많은\t경우  ")
	want := "제목에 공백이 많은 경우"
	if got != want {
		t.Errorf("cleanTitle = %q, want %q", got, want)
	}
}
