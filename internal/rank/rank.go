package rank

import (
	"github.com/seungwoo/rankwatch/internal/model"
)

// 영역별 순위 윈도우. 통합검색 결과 상위 10개를 스마트블록으로,
// 11~30번째를 블로그 영역으로 간주한다. 블로그 탭은 최대 100위까지 본다.
const (
	SmartblockWindow = 10
	MainBlogStart    = 10
	MainBlogEnd      = 30
	BlogTabWindow    = 100
)

// ZoneRank 는 한 윈도우 내에서의 순위 판정 결과.
type ZoneRank struct {
	Found bool
	Rank  *int // 윈도우 기준 1-based 순위. 미발견 시 nil.
	URL   string
	Title string
}

// FindRank 는 미리 잘라낸 링크 윈도우에서 대상 URL의 첫 번째 일치 위치를 찾는다.
// 순위는 윈도우 기준 1-based이며, 입력 순서를 그대로 따른다 (재정렬 없음).
func FindRank(links []model.BlogPost, targetURL string) ZoneRank {
	for i, link := range links {
		if IsSamePost(link.URL, targetURL) {
			r := i + 1
			return ZoneRank{Found: true, Rank: &r, URL: link.URL, Title: link.Title}
		}
	}
	return ZoneRank{Found: false, Rank: nil}
}

// Window 는 links의 [lo, hi) 구간을 반환한다. 경계는 리스트 길이에 맞춰 잘라낸다.
func Window(links []model.BlogPost, lo, hi int) []model.BlogPost {
	if lo >= len(links) {
		return nil
	}
	if hi > len(links) {
		hi = len(links)
	}
	return links[lo:hi]
}
